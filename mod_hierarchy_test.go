package snowscene

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func localAt(x, y, z float32) *LocalTransformComponent {
	return &LocalTransformComponent{
		Position: mgl32.Vec3{x, y, z},
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
	}
}

func worldOf(t *testing.T, cmd *Commands, eid EntityId) TransformComponent {
	t.Helper()
	tr, ok := Component[TransformComponent](cmd, eid)
	require.True(t, ok, "entity %d has no transform", eid)
	return tr
}

func TestTransformHierarchy(t *testing.T) {
	app := NewAppBuilder().UseModule(HierarchyModule{}).Build()
	cmd := app.Commands()

	root := IdentityTransform()
	root.Position = mgl32.Vec3{10, 0, 0}
	parent := cmd.AddEntity(&root)
	child := cmd.AddEntity(&Parent{Entity: parent}, localAt(0, 5, 0), &TransformComponent{})
	grandchild := cmd.AddEntity(&Parent{Entity: child}, localAt(0, 0, 2), &TransformComponent{})
	app.FlushCommands()

	PropagateTransforms(cmd, 8)

	assert.Equal(t, mgl32.Vec3{10, 5, 0}, worldOf(t, cmd, child).Position)
	assert.Equal(t, mgl32.Vec3{10, 5, 2}, worldOf(t, cmd, grandchild).Position)

	// Rotate the root 90 degrees around Y and move the child along X.
	root.Rotation = mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 1, 0})
	cmd.AddComponents(parent, root)
	cmd.AddComponents(child, *localAt(5, 0, 0))
	app.FlushCommands()

	PropagateTransforms(cmd, 8)

	got := worldOf(t, cmd, child).Position
	assert.InDelta(t, 10, got.X(), 1e-4)
	assert.InDelta(t, 0, got.Y(), 1e-4)
	assert.InDelta(t, -5, got.Z(), 1e-4)
}

func TestTransformHierarchy_ScaleIsInherited(t *testing.T) {
	app := NewAppBuilder().UseModule(HierarchyModule{}).Build()
	cmd := app.Commands()

	root := IdentityTransform()
	root.Scale = mgl32.Vec3{0.5, 0.5, 0.5}
	root.Position = mgl32.Vec3{0, -0.75, 0}
	parent := cmd.AddEntity(&root)
	child := cmd.AddEntity(&Parent{Entity: parent}, localAt(0, 4, 0), &TransformComponent{})

	app.Step()

	tr := worldOf(t, cmd, child)
	assert.InDelta(t, 1.25, tr.Position.Y(), 1e-5)
	assert.Equal(t, mgl32.Vec3{0.5, 0.5, 0.5}, tr.Scale)
}

func TestTransformHierarchy_OrphanKeepsTransform(t *testing.T) {
	app := NewAppBuilder().Build()
	cmd := app.Commands()

	orphan := cmd.AddEntity(&Parent{Entity: 999}, localAt(1, 2, 3), &TransformComponent{Position: mgl32.Vec3{7, 7, 7}})
	app.FlushCommands()

	PropagateTransforms(cmd, 4)

	assert.Equal(t, mgl32.Vec3{7, 7, 7}, worldOf(t, cmd, orphan).Position)
}

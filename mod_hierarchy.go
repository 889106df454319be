package snowscene

import (
	"github.com/go-gl/mathgl/mgl32"
)

// HierarchyModule propagates LocalTransformComponent through Parent links into world
// TransformComponents. Loaded models arrive as node trees and rely on it.
type HierarchyModule struct {
	// MaxDepth bounds the propagation passes per frame. Zero means 8.
	MaxDepth int
}

type hierarchySettings struct {
	maxDepth int
}

func (mod HierarchyModule) Install(app *App, cmd *Commands) {
	depth := mod.MaxDepth
	if depth <= 0 {
		depth = 8
	}
	app.addResources(&hierarchySettings{maxDepth: depth})
	app.UseSystem(
		System(hierarchySystem).
			InStage(PostUpdate).
			RunAlways(),
	)
}

func hierarchySystem(settings *hierarchySettings, cmd *Commands) {
	PropagateTransforms(cmd, settings.maxDepth)
}

// PropagateTransforms runs up to maxPasses passes and stops early once nothing moved.
// Each pass settles one more level of the tree.
func PropagateTransforms(cmd *Commands, maxPasses int) {
	for pass := 0; pass < maxPasses; pass++ {
		changed := false
		MakeQuery3[LocalTransformComponent, Parent, TransformComponent](cmd).Map(func(eid EntityId, local *LocalTransformComponent, parent *Parent, world *TransformComponent) bool {
			parentWorld, ok := Component[TransformComponent](cmd, parent.Entity)
			if !ok {
				return true
			}
			next := composeTransform(parentWorld, *local)
			if next != *world {
				*world = next
				changed = true
			}
			return true
		})
		if !changed {
			return
		}
	}
}

// composeTransform keeps scale per axis so mirrored nodes stay mirrored.
func composeTransform(parent TransformComponent, local LocalTransformComponent) TransformComponent {
	scaledLocalPos := mgl32.Vec3{
		local.Position.X() * parent.Scale.X(),
		local.Position.Y() * parent.Scale.Y(),
		local.Position.Z() * parent.Scale.Z(),
	}
	return TransformComponent{
		Position: parent.Position.Add(parent.Rotation.Rotate(scaledLocalPos)),
		Rotation: parent.Rotation.Mul(local.Rotation).Normalize(),
		Scale: mgl32.Vec3{
			parent.Scale.X() * local.Scale.X(),
			parent.Scale.Y() * local.Scale.Y(),
			parent.Scale.Z() * local.Scale.Z(),
		},
	}
}

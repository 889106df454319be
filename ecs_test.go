package snowscene

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEcs_MakeEcs(t *testing.T) {
	ecs := MakeEcs()

	assert.Empty(t, ecs.archetypes)
	assert.Empty(t, ecs.entityIndex)
	assert.Equal(t, EntityId(0), ecs.entityIdCounter)
	assert.Equal(t, componentId(0), ecs.componentIdCounter)
}

func TestEcs_AddEntity(t *testing.T) {
	type TestComponent struct{ x string }

	ecs := MakeEcs()
	empty := ecs.addEntity()
	withComp := ecs.addEntity(TestComponent{x: "test"})

	require.True(t, ecs.hasEntity(empty))
	require.True(t, ecs.hasEntity(withComp))
	assert.NotEqual(t, ecs.entityIndex[empty], ecs.entityIndex[withComp],
		"entities with different components must not share an archetype")
	assert.Equal(t, 2, ecs.entityCount())
}

func TestEcs_AddComponents(t *testing.T) {
	type TestComponent0 struct{ a int }
	type TestComponent1 struct{ x string }
	type TestComponent2 struct{ y string }
	type TestComponent3 struct{ z string }

	ecs := MakeEcs()
	entityId := ecs.addEntity(TestComponent0{a: 1337})

	ecs.addComponents(entityId, TestComponent1{x: "test"}, TestComponent2{y: "hello"})
	ecs.addComponents(entityId, &TestComponent3{z: "test-2"})

	arch := ecs.archetypes[ecs.entityIndex[entityId]]
	assert.Len(t, arch.componentData, 4)

	r := arch.entities[entityId]
	id0 := ecs.getComponentId(reflect.TypeOf(TestComponent0{}))
	assert.Equal(t, TestComponent0{a: 1337}, arch.componentData[id0].([]TestComponent0)[r],
		"existing components survive the archetype move")
}

func TestEcs_AddComponents_SameArchetypeOverwrites(t *testing.T) {
	type Position struct{ X, Y float64 }

	ecs := MakeEcs()
	id := ecs.addEntity(Position{1, 2})
	before := ecs.entityIndex[id]

	ecs.addComponents(id, Position{3, 4})

	assert.Equal(t, before, ecs.entityIndex[id])
	arch := ecs.archetypes[before]
	posId := ecs.getComponentId(reflect.TypeOf(Position{}))
	assert.Equal(t, Position{3, 4}, arch.componentData[posId].([]Position)[arch.entities[id]])
}

func TestEcs_RemoveComponents(t *testing.T) {
	type Position struct{ X, Y float64 }
	type Velocity struct{ X, Y float64 }

	ecs := MakeEcs()
	id := ecs.addEntity(Position{1, 2}, Velocity{3, 4})
	ecs.removeComponents(id, Velocity{})

	arch := ecs.archetypes[ecs.entityIndex[id]]
	require.Len(t, arch.componentData, 1)
	posId := ecs.getComponentId(reflect.TypeOf(Position{}))
	assert.Equal(t, Position{1, 2}, arch.componentData[posId].([]Position)[arch.entities[id]])
}

func TestEcs_AddInvalidComponentShouldPanic(t *testing.T) {
	ecs := MakeEcs()
	assert.Panics(t, func() { ecs.addEntity(123) })
}

func TestEcs_ComponentRegistration(t *testing.T) {
	type Position struct{ x, y float64 }

	ecs := MakeEcs()
	id1 := ecs.getComponentId(reflect.TypeOf(Position{}))
	id2 := ecs.getComponentId(reflect.TypeOf(Position{}))

	assert.Equal(t, id1, id2)
	assert.Equal(t, reflect.TypeOf(Position{}), ecs.componentIdTypeMap[id1])
}

func TestEcs_ArchetypeKeyDedup(t *testing.T) {
	assert.Equal(t, archetypeKey{1, 2, 3}, dedupAndSortArchetypeKey([]componentId{3, 1, 2, 1, 3}))
	assert.Equal(t, getArchetypeId(archetypeKey{1, 2}), getArchetypeId(dedupAndSortArchetypeKey([]componentId{2, 1, 2})))
}

func TestEcs_RemoveEntity(t *testing.T) {
	type Position struct{ X, Y float64 }

	ecs := MakeEcs()
	id := ecs.addEntity(Position{1, 2})
	ecs.removeEntity(id)
	ecs.removeEntity(id)

	assert.False(t, ecs.hasEntity(id))
}

func TestEcs_RecycledRowIsReused(t *testing.T) {
	type Position struct{ X, Y float64 }

	ecs := MakeEcs()
	first := ecs.addEntity(Position{1, 2})
	arch := ecs.archetypes[ecs.entityIndex[first]]
	firstRow := arch.entities[first]

	ecs.removeEntity(first)
	second := ecs.addEntity(Position{5, 6})

	assert.Equal(t, firstRow, arch.entities[second])
	assert.Empty(t, arch.recycled)
}

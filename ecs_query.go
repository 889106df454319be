package snowscene

import (
	"reflect"
)

// Queries visit every entity that carries all of the requested component types.
// Types passed as optionals may be missing; the callback then receives nil for them.
// Returning false from the callback stops the iteration.
type Query1[A any] struct{ ecs *Ecs }
type Query2[A, B any] struct{ ecs *Ecs }
type Query3[A, B, C any] struct{ ecs *Ecs }
type Query4[A, B, C, D any] struct{ ecs *Ecs }

func MakeQuery1[A any](cmd *Commands) Query1[A]             { return Query1[A]{ecs: cmd.app.ecs} }
func MakeQuery2[A, B any](cmd *Commands) Query2[A, B]       { return Query2[A, B]{ecs: cmd.app.ecs} }
func MakeQuery3[A, B, C any](cmd *Commands) Query3[A, B, C] { return Query3[A, B, C]{ecs: cmd.app.ecs} }
func MakeQuery4[A, B, C, D any](cmd *Commands) Query4[A, B, C, D] {
	return Query4[A, B, C, D]{ecs: cmd.app.ecs}
}

// column resolves one query argument against an archetype.
// ok is false when the archetype cannot satisfy the query.
func column[T any](arch *archetype, id componentId, opt set[componentId]) (comps []T, ok bool) {
	if data, found := arch.componentData[id]; found {
		return data.([]T), true
	}
	if _, optional := opt[id]; optional {
		return nil, true
	}
	return nil, false
}

func at[T any](comps []T, r row) *T {
	if comps == nil {
		return nil
	}
	return &comps[r]
}

func (q Query1[A]) Map(m func(EntityId, *A) bool, optionals ...any) {
	id1 := identifyComponent[A](q.ecs)
	opt := identifyOptionals(q.ecs, optionals...)

	for _, arch := range q.ecs.archetypes {
		comps1, ok := column[A](arch, id1, opt)
		if !ok {
			continue
		}
		for entityId, r := range arch.entities {
			if !m(entityId, at(comps1, r)) {
				return
			}
		}
	}
}

// Count returns the number of matching entities.
func (q Query1[A]) Count() int {
	n := 0
	q.Map(func(EntityId, *A) bool {
		n++
		return true
	})
	return n
}

func (q Query2[A, B]) Map(m func(EntityId, *A, *B) bool, optionals ...any) {
	id1 := identifyComponent[A](q.ecs)
	id2 := identifyComponent[B](q.ecs)
	opt := identifyOptionals(q.ecs, optionals...)

	for _, arch := range q.ecs.archetypes {
		comps1, ok1 := column[A](arch, id1, opt)
		comps2, ok2 := column[B](arch, id2, opt)
		if !ok1 || !ok2 {
			continue
		}
		for entityId, r := range arch.entities {
			if !m(entityId, at(comps1, r), at(comps2, r)) {
				return
			}
		}
	}
}

func (q Query3[A, B, C]) Map(m func(EntityId, *A, *B, *C) bool, optionals ...any) {
	id1 := identifyComponent[A](q.ecs)
	id2 := identifyComponent[B](q.ecs)
	id3 := identifyComponent[C](q.ecs)
	opt := identifyOptionals(q.ecs, optionals...)

	for _, arch := range q.ecs.archetypes {
		comps1, ok1 := column[A](arch, id1, opt)
		comps2, ok2 := column[B](arch, id2, opt)
		comps3, ok3 := column[C](arch, id3, opt)
		if !ok1 || !ok2 || !ok3 {
			continue
		}
		for entityId, r := range arch.entities {
			if !m(entityId, at(comps1, r), at(comps2, r), at(comps3, r)) {
				return
			}
		}
	}
}

func (q Query4[A, B, C, D]) Map(m func(EntityId, *A, *B, *C, *D) bool, optionals ...any) {
	id1 := identifyComponent[A](q.ecs)
	id2 := identifyComponent[B](q.ecs)
	id3 := identifyComponent[C](q.ecs)
	id4 := identifyComponent[D](q.ecs)
	opt := identifyOptionals(q.ecs, optionals...)

	for _, arch := range q.ecs.archetypes {
		comps1, ok1 := column[A](arch, id1, opt)
		comps2, ok2 := column[B](arch, id2, opt)
		comps3, ok3 := column[C](arch, id3, opt)
		comps4, ok4 := column[D](arch, id4, opt)
		if !ok1 || !ok2 || !ok3 || !ok4 {
			continue
		}
		for entityId, r := range arch.entities {
			if !m(entityId, at(comps1, r), at(comps2, r), at(comps3, r), at(comps4, r)) {
				return
			}
		}
	}
}

func identifyOptionals(ecs *Ecs, components ...any) set[componentId] {
	res := make(set[componentId], len(components))
	for _, c := range components {
		res[ecs.getComponentId(componentType(c))] = struct{}{}
	}
	return res
}

func identifyComponent[T any](ecs *Ecs) componentId {
	return ecs.getComponentId(reflect.TypeOf((*T)(nil)).Elem())
}

package gekko2d

import (
	"reflect"
)

// Queries visit archetypes in creation order and rows in storage order, so
// two runs over the same world yield entities in the same sequence.
//
// Components passed as optionals may be missing on an entity; Map then hands
// the callback a nil pointer for them. Returning false from the callback
// stops the iteration.
type Query1[A any] struct{ ecs *Ecs }
type Query2[A, B any] struct{ ecs *Ecs }
type Query3[A, B, C any] struct{ ecs *Ecs }

func MakeQuery1[A any](cmd *Commands) Query1[A]             { return Query1[A]{ecs: cmd.app.ecs} }
func MakeQuery2[A, B any](cmd *Commands) Query2[A, B]       { return Query2[A, B]{ecs: cmd.app.ecs} }
func MakeQuery3[A, B, C any](cmd *Commands) Query3[A, B, C] { return Query3[A, B, C]{ecs: cmd.app.ecs} }

// column returns the typed component slice of arch for id. absent reports that
// arch lacks the component but it was requested as optional; ok is false when
// arch does not match at all.
func column[T any](arch *archetype, id componentId, opt set[componentId]) (comps []T, absent bool, ok bool) {
	if data, found := arch.componentData[id]; found {
		return data.([]T), false, true
	}
	if _, optional := opt[id]; optional {
		return nil, true, true
	}
	return nil, false, false
}

func at[T any](comps []T, absent bool, r int) *T {
	if absent {
		return nil
	}
	return &comps[r]
}

func (q Query1[A]) Map(m func(EntityId, *A) bool, optionals ...any) {
	id1 := identifyComponents1[A](q.ecs)
	opt := identifyOptionals(q.ecs, optionals...)

	for _, arch := range q.ecs.archetypeOrder {
		comps1, no_a, ok := column[A](arch, id1, opt)
		if !ok {
			continue
		}

		for r, entityId := range arch.entities {
			if !m(entityId, at(comps1, no_a, r)) {
				return
			}
		}
	}
}

func (q Query2[A, B]) Map(m func(EntityId, *A, *B) bool, optionals ...any) {
	id1, id2 := identifyComponents2[A, B](q.ecs)
	opt := identifyOptionals(q.ecs, optionals...)

	for _, arch := range q.ecs.archetypeOrder {
		comps1, no_a, ok := column[A](arch, id1, opt)
		if !ok {
			continue
		}
		comps2, no_b, ok := column[B](arch, id2, opt)
		if !ok {
			continue
		}

		for r, entityId := range arch.entities {
			if !m(entityId, at(comps1, no_a, r), at(comps2, no_b, r)) {
				return
			}
		}
	}
}

func (q Query3[A, B, C]) Map(m func(EntityId, *A, *B, *C) bool, optionals ...any) {
	id1, id2, id3 := identifyComponents3[A, B, C](q.ecs)
	opt := identifyOptionals(q.ecs, optionals...)

	for _, arch := range q.ecs.archetypeOrder {
		comps1, no_a, ok := column[A](arch, id1, opt)
		if !ok {
			continue
		}
		comps2, no_b, ok := column[B](arch, id2, opt)
		if !ok {
			continue
		}
		comps3, no_c, ok := column[C](arch, id3, opt)
		if !ok {
			continue
		}

		for r, entityId := range arch.entities {
			if !m(entityId, at(comps1, no_a, r), at(comps2, no_b, r), at(comps3, no_c, r)) {
				return
			}
		}
	}
}

// Count returns the number of entities that carry both A and B.
func (q Query2[A, B]) Count() int {
	id1, id2 := identifyComponents2[A, B](q.ecs)
	n := 0
	for _, arch := range q.ecs.archetypeOrder {
		_, has1 := arch.componentData[id1]
		_, has2 := arch.componentData[id2]
		if has1 && has2 {
			n += len(arch.entities)
		}
	}
	return n
}

func identifyOptionals(ecs *Ecs, optionals ...any) set[componentId] {
	res := make(set[componentId], len(optionals))
	for _, o := range optionals {
		t := reflect.TypeOf(o)
		if t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
		res[ecs.getComponentId(t)] = struct{}{}
	}
	return res
}

func identifyComponents1[A any](ecs *Ecs) componentId {
	return ecs.getComponentId(reflect.TypeFor[A]())
}

func identifyComponents2[A, B any](ecs *Ecs) (componentId, componentId) {
	return ecs.getComponentId(reflect.TypeFor[A]()), ecs.getComponentId(reflect.TypeFor[B]())
}

func identifyComponents3[A, B, C any](ecs *Ecs) (componentId, componentId, componentId) {
	return ecs.getComponentId(reflect.TypeFor[A]()), ecs.getComponentId(reflect.TypeFor[B]()), ecs.getComponentId(reflect.TypeFor[C]())
}

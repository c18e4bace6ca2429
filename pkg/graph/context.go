package graph

import "reflect"

func keyOf[T any]() reflect.Type {
	return reflect.TypeFor[T]()
}

// Provide makes v available to s and every scope under it.
func Provide[T any](s *Scope, v T) {
	if s.values == nil {
		s.values = make(map[any]any)
	}
	s.values[keyOf[T]()] = v
}

// Consume returns the closest value of type T provided at or above s.
func Consume[T any](s *Scope) (T, bool) {
	key := keyOf[T]()
	for cur := s; cur != nil; cur = cur.parent {
		if v, ok := cur.values[key]; ok {
			return v.(T), true
		}
	}
	var zero T
	return zero, false
}

// ProvideRootContext makes v available to every scope in g.
func ProvideRootContext[T any](g *Graph, v T) {
	Provide(g.root, v)
}

// ConsumeRootContext returns the value of type T provided at the root.
func ConsumeRootContext[T any](g *Graph) (T, bool) {
	return Consume[T](g.root)
}

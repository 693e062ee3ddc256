package tape

import "github.com/born-ml/adtape/internal/index"

// Expression is the right-hand side of a statement.
type Expression[T any] interface {
	// Value returns the primal value.
	Value() T
	// MaxArgs bounds the number of arguments the expression can push.
	MaxArgs() int
	// Jacobians calls push for every leaf with seed times the partial of
	// the expression with respect to that leaf. Shared leaves accumulate
	// instead of pushing.
	Jacobians(seed T, push func(id index.Identifier, jac T))
	// Delayed flushes the accumulated partials of shared leaves. Each
	// shared leaf pushes at most once.
	Delayed(push func(id index.Identifier, jac T))
}

// Active is a differentiable variable: a primal value and the identifier of
// its derivative slot.
//
// The zero value is a passive zero.
type Active[T any] struct {
	value T
	id    index.Identifier
}

// NewPassive creates a passive variable holding v.
func NewPassive[T any](v T) Active[T] {
	return Active[T]{value: v}
}

func (a *Active[T]) Value() T {
	return a.value
}

// SetValue changes the primal value without recording anything. Use it to
// initialise inputs before RegisterInput.
func (a *Active[T]) SetValue(v T) {
	a.value = v
}

func (a *Active[T]) Identifier() index.Identifier {
	return a.id
}

// IsActive reports whether the variable depends on a registered input.
func (a *Active[T]) IsActive() bool {
	return index.Valid(a.id)
}

func (a *Active[T]) MaxArgs() int {
	return 1
}

func (a *Active[T]) Jacobians(seed T, push func(index.Identifier, T)) {
	push(a.id, seed)
}

func (a *Active[T]) Delayed(func(index.Identifier, T)) {}

// Shared is a leaf that appears several times in one expression. Its
// partials are summed and pushed once, so replay does not propagate them
// once per occurrence.
//
// A Shared value lives for one statement. Create it with Share, use it in
// any number of places of one right-hand side and drop it after Store.
type Shared[T Zeroer[T]] struct {
	leaf *Active[T]
	acc  T
	hit  bool
}

// Zeroer is the arithmetic a Shared accumulator needs.
type Zeroer[T any] interface {
	Add(b T) T
	IsZero() bool
}

// Share wraps a for repeated use in one expression.
func Share[T Zeroer[T]](a *Active[T]) *Shared[T] {
	return &Shared[T]{leaf: a}
}

func (s *Shared[T]) Value() T {
	return s.leaf.value
}

func (s *Shared[T]) MaxArgs() int {
	return 1
}

func (s *Shared[T]) Jacobians(seed T, _ func(index.Identifier, T)) {
	if s.hit {
		s.acc = s.acc.Add(seed)
	} else {
		s.acc, s.hit = seed, true
	}
}

func (s *Shared[T]) Delayed(push func(index.Identifier, T)) {
	if !s.hit {
		return
	}
	acc := s.acc
	var zero T
	s.acc, s.hit = zero, false
	if !acc.IsZero() {
		push(s.leaf.id, acc)
	}
}

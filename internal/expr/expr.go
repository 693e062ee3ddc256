// Package expr builds right-hand sides for tape statements.
//
// Every node is evaluated eagerly: its value and the local partials with
// respect to its operands are computed when the node is built. Storing the
// expression walks the tree once and multiplies the partials down to the
// leaves.
//
//	var f expr.Ops[numeric.Float]
//	t.Store(&y, f.Sin(f.Mul(&a, &b)))
package expr

import (
	"github.com/born-ml/adtape/internal/index"
	"github.com/born-ml/adtape/internal/numeric"
	"github.com/born-ml/adtape/internal/tape"
)

// Expression is a tape statement right-hand side.
type Expression[T any] = tape.Expression[T]

// Ops builds expressions over values of type T. The zero value is ready to
// use.
type Ops[T numeric.Number[T]] struct{}

type constant[T any] struct {
	value T
}

func (c constant[T]) Value() T                               { return c.value }
func (c constant[T]) MaxArgs() int                           { return 0 }
func (c constant[T]) Jacobians(T, func(index.Identifier, T)) {}
func (c constant[T]) Delayed(func(index.Identifier, T))      {}

type unary[T numeric.Number[T]] struct {
	a     Expression[T]
	value T
	da    T
}

func (e *unary[T]) Value() T     { return e.value }
func (e *unary[T]) MaxArgs() int { return e.a.MaxArgs() }

func (e *unary[T]) Jacobians(seed T, push func(index.Identifier, T)) {
	e.a.Jacobians(seed.Mul(e.da), push)
}

func (e *unary[T]) Delayed(push func(index.Identifier, T)) {
	e.a.Delayed(push)
}

type binary[T numeric.Number[T]] struct {
	a, b   Expression[T]
	value  T
	da, db T
}

func (e *binary[T]) Value() T     { return e.value }
func (e *binary[T]) MaxArgs() int { return e.a.MaxArgs() + e.b.MaxArgs() }

func (e *binary[T]) Jacobians(seed T, push func(index.Identifier, T)) {
	e.a.Jacobians(seed.Mul(e.da), push)
	e.b.Jacobians(seed.Mul(e.db), push)
}

func (e *binary[T]) Delayed(push func(index.Identifier, T)) {
	e.a.Delayed(push)
	e.b.Delayed(push)
}

type sum[T numeric.Number[T]] struct {
	terms []Expression[T]
	value T
}

func (e *sum[T]) Value() T { return e.value }

func (e *sum[T]) MaxArgs() int {
	n := 0
	for _, a := range e.terms {
		n += a.MaxArgs()
	}
	return n
}

func (e *sum[T]) Jacobians(seed T, push func(index.Identifier, T)) {
	for _, a := range e.terms {
		a.Jacobians(seed, push)
	}
}

func (e *sum[T]) Delayed(push func(index.Identifier, T)) {
	for _, a := range e.terms {
		a.Delayed(push)
	}
}

func (Ops[T]) num(f float64) T {
	var z T
	return z.FromFloat(f)
}

// Const is a passive value.
func (o Ops[T]) Const(v float64) Expression[T] {
	return constant[T]{value: o.num(v)}
}

// Value wraps a passive value of type T.
func (Ops[T]) Value(v T) Expression[T] {
	return constant[T]{value: v}
}

func (o Ops[T]) Add(a, b Expression[T]) Expression[T] {
	one := o.num(1)
	return &binary[T]{a: a, b: b, value: a.Value().Add(b.Value()), da: one, db: one}
}

func (o Ops[T]) Sub(a, b Expression[T]) Expression[T] {
	one := o.num(1)
	return &binary[T]{a: a, b: b, value: a.Value().Sub(b.Value()), da: one, db: one.Neg()}
}

func (o Ops[T]) Mul(a, b Expression[T]) Expression[T] {
	va, vb := a.Value(), b.Value()
	return &binary[T]{a: a, b: b, value: va.Mul(vb), da: vb, db: va}
}

func (o Ops[T]) Div(a, b Expression[T]) Expression[T] {
	va, vb := a.Value(), b.Value()
	q := va.Div(vb)
	inv := o.num(1).Div(vb)
	return &binary[T]{a: a, b: b, value: q, da: inv, db: q.Neg().Mul(inv)}
}

// Sum adds any number of terms with one node.
func (o Ops[T]) Sum(terms ...Expression[T]) Expression[T] {
	v := o.num(0)
	for _, a := range terms {
		v = v.Add(a.Value())
	}
	return &sum[T]{terms: terms, value: v}
}

func (o Ops[T]) Neg(a Expression[T]) Expression[T] {
	return &unary[T]{a: a, value: a.Value().Neg(), da: o.num(-1)}
}

// Scale multiplies a by the passive factor c.
func (o Ops[T]) Scale(c float64, a Expression[T]) Expression[T] {
	f := o.num(c)
	return &unary[T]{a: a, value: f.Mul(a.Value()), da: f}
}

func (o Ops[T]) Square(a Expression[T]) Expression[T] {
	v := a.Value()
	return &unary[T]{a: a, value: v.Mul(v), da: v.Add(v)}
}

func (o Ops[T]) Sin(a Expression[T]) Expression[T] {
	v := a.Value()
	return &unary[T]{a: a, value: v.Sin(), da: v.Cos()}
}

func (o Ops[T]) Cos(a Expression[T]) Expression[T] {
	v := a.Value()
	return &unary[T]{a: a, value: v.Cos(), da: v.Sin().Neg()}
}

func (o Ops[T]) Exp(a Expression[T]) Expression[T] {
	e := a.Value().Exp()
	return &unary[T]{a: a, value: e, da: e}
}

func (o Ops[T]) Log(a Expression[T]) Expression[T] {
	v := a.Value()
	return &unary[T]{a: a, value: v.Log(), da: o.num(1).Div(v)}
}

func (o Ops[T]) Sqrt(a Expression[T]) Expression[T] {
	r := a.Value().Sqrt()
	return &unary[T]{a: a, value: r, da: o.num(0.5).Div(r)}
}

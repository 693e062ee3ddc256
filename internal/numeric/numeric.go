// Package numeric defines the value types a tape can differentiate.
//
// Float is the plain first-order type. Dual carries one directional
// derivative along with its value; a tape over Dual values yields second
// derivatives.
package numeric

import "math"

// Real is what a tape needs from its partial and adjoint values.
type Real[T any] interface {
	Add(b T) T
	Mul(b T) T
	// FMA returns v + b*c.
	FMA(b, c T) T
	IsZero() bool
	IsFinite() bool
	// FromFloat converts a constant. The receiver is ignored.
	FromFloat(f float64) T
	// Float returns the underlying primal value.
	Float() float64
}

// Number is a Real with the elementary functions the expression front-end
// differentiates.
type Number[T any] interface {
	Real[T]
	Sub(b T) T
	Div(b T) T
	Neg() T
	Sin() T
	Cos() T
	Exp() T
	Log() T
	Sqrt() T
}

// Float is a first-order value.
type Float float64

func (v Float) Add(b Float) Float       { return v + b }
func (v Float) Sub(b Float) Float       { return v - b }
func (v Float) Mul(b Float) Float       { return v * b }
func (v Float) Div(b Float) Float       { return v / b }
func (v Float) Neg() Float              { return -v }
func (v Float) FMA(b, c Float) Float    { return Float(math.FMA(float64(b), float64(c), float64(v))) }
func (v Float) IsZero() bool            { return v == 0 }
func (v Float) IsFinite() bool          { return !math.IsInf(float64(v), 0) && !math.IsNaN(float64(v)) }
func (v Float) Sin() Float              { return Float(math.Sin(float64(v))) }
func (v Float) Cos() Float              { return Float(math.Cos(float64(v))) }
func (v Float) Exp() Float              { return Float(math.Exp(float64(v))) }
func (v Float) Log() Float              { return Float(math.Log(float64(v))) }
func (v Float) Sqrt() Float             { return Float(math.Sqrt(float64(v))) }
func (Float) FromFloat(f float64) Float { return Float(f) }
func (v Float) Float() float64          { return float64(v) }

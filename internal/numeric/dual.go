package numeric

import (
	"fmt"
	"math"
)

// Dual is a value with one tangent: Value + Tangent·ε where ε² = 0.
type Dual struct {
	Value   float64
	Tangent float64
}

// Seed returns a dual number with a unit tangent.
func Seed(v float64) Dual {
	return Dual{Value: v, Tangent: 1}
}

func (d Dual) Add(b Dual) Dual {
	return Dual{d.Value + b.Value, d.Tangent + b.Tangent}
}

func (d Dual) Sub(b Dual) Dual {
	return Dual{d.Value - b.Value, d.Tangent - b.Tangent}
}

func (d Dual) Mul(b Dual) Dual {
	return Dual{d.Value * b.Value, d.Tangent*b.Value + d.Value*b.Tangent}
}

func (d Dual) Div(b Dual) Dual {
	q := d.Value / b.Value
	return Dual{q, (d.Tangent - q*b.Tangent) / b.Value}
}

func (d Dual) Neg() Dual {
	return Dual{-d.Value, -d.Tangent}
}

func (d Dual) FMA(b, c Dual) Dual {
	return Dual{
		Value:   math.FMA(b.Value, c.Value, d.Value),
		Tangent: d.Tangent + b.Tangent*c.Value + b.Value*c.Tangent,
	}
}

func (d Dual) IsZero() bool {
	return d.Value == 0 && d.Tangent == 0
}

func (d Dual) IsFinite() bool {
	return Float(d.Value).IsFinite() && Float(d.Tangent).IsFinite()
}

func (d Dual) Sin() Dual {
	s, c := math.Sincos(d.Value)
	return Dual{s, c * d.Tangent}
}

func (d Dual) Cos() Dual {
	s, c := math.Sincos(d.Value)
	return Dual{c, -s * d.Tangent}
}

func (d Dual) Exp() Dual {
	e := math.Exp(d.Value)
	return Dual{e, e * d.Tangent}
}

func (d Dual) Log() Dual {
	return Dual{math.Log(d.Value), d.Tangent / d.Value}
}

func (d Dual) Sqrt() Dual {
	r := math.Sqrt(d.Value)
	return Dual{r, d.Tangent / (2 * r)}
}

func (Dual) FromFloat(f float64) Dual {
	return Dual{Value: f}
}

func (d Dual) Float() float64 {
	return d.Value
}

func (d Dual) String() string {
	return fmt.Sprintf("%g%+gε", d.Value, d.Tangent)
}

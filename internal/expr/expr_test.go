package expr_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/adtape/internal/expr"
	"github.com/born-ml/adtape/internal/numeric"
	"github.com/born-ml/adtape/internal/tape"
)

type F = numeric.Float

var ops expr.Ops[F]

// gradient records y = build(a, b) and returns y and its partials.
func gradient(t *testing.T, a, b float64, build func(x, y expr.Expression[F]) expr.Expression[F]) (float64, float64, float64) {
	t.Helper()
	tp := tape.New[F](tape.DefaultOptions())
	tp.SetActive()

	var x, y, out tape.Active[F]
	x.SetValue(F(a))
	y.SetValue(F(b))
	tp.RegisterInput(&x)
	tp.RegisterInput(&y)
	tp.Store(&out, build(&x, &y))
	tp.SetPassive()

	if !out.IsActive() {
		return float64(out.Value()), 0, 0
	}
	tp.SetGradient(out.Identifier(), 1)
	tp.Evaluate(tp.Position(), tp.ZeroPosition())
	return float64(out.Value()), float64(tp.GetGradient(x.Identifier())[0]), float64(tp.GetGradient(y.Identifier())[0])
}

func TestOps(t *testing.T) {
	const a, b = 1.3, 0.4

	tests := []struct {
		name   string
		build  func(x, y expr.Expression[F]) expr.Expression[F]
		value  float64
		da, db float64
	}{
		{"add", ops.Add, a + b, 1, 1},
		{"sub", ops.Sub, a - b, 1, -1},
		{"mul", ops.Mul, a * b, b, a},
		{"div", ops.Div, a / b, 1 / b, -a / (b * b)},
		{"sum", func(x, y expr.Expression[F]) expr.Expression[F] { return ops.Sum(x, y, x) }, 2*a + b, 2, 1},
		{"neg", func(x, _ expr.Expression[F]) expr.Expression[F] { return ops.Neg(x) }, -a, -1, 0},
		{"scale", func(x, _ expr.Expression[F]) expr.Expression[F] { return ops.Scale(2.5, x) }, 2.5 * a, 2.5, 0},
		{"square", func(x, _ expr.Expression[F]) expr.Expression[F] { return ops.Square(x) }, a * a, 2 * a, 0},
		{"sin", func(x, _ expr.Expression[F]) expr.Expression[F] { return ops.Sin(x) }, math.Sin(a), math.Cos(a), 0},
		{"cos", func(x, _ expr.Expression[F]) expr.Expression[F] { return ops.Cos(x) }, math.Cos(a), -math.Sin(a), 0},
		{"exp", func(x, _ expr.Expression[F]) expr.Expression[F] { return ops.Exp(x) }, math.Exp(a), math.Exp(a), 0},
		{"log", func(x, _ expr.Expression[F]) expr.Expression[F] { return ops.Log(x) }, math.Log(a), 1 / a, 0},
		{"sqrt", func(x, _ expr.Expression[F]) expr.Expression[F] { return ops.Sqrt(x) }, math.Sqrt(a), 0.5 / math.Sqrt(a), 0},
		{"const", func(_, _ expr.Expression[F]) expr.Expression[F] { return ops.Const(7) }, 7, 0, 0},
		{"nested", func(x, y expr.Expression[F]) expr.Expression[F] {
			return ops.Mul(ops.Exp(x), ops.Add(y, ops.Value(2)))
		}, math.Exp(a) * (b + 2), math.Exp(a) * (b + 2), math.Exp(a)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, da, db := gradient(t, a, b, tt.build)
			assert.InDelta(t, tt.value, v, 1e-14)
			assert.InDelta(t, tt.da, da, 1e-14)
			assert.InDelta(t, tt.db, db, 1e-14)
		})
	}
}

func TestOps_MaxArgs(t *testing.T) {
	var x, y tape.Active[F]
	e := ops.Add(ops.Mul(&x, &y), ops.Sin(ops.Sum(&x, &y, ops.Const(1))))
	assert.Equal(t, 4, e.MaxArgs())
	assert.Zero(t, ops.Const(3).MaxArgs())
}

// Over dual numbers the partials carry their own derivative.
func TestOps_Dual(t *testing.T) {
	var d expr.Ops[numeric.Dual]
	tp := tape.New[numeric.Dual](tape.DefaultOptions())
	tp.SetActive()

	var x, y tape.Active[numeric.Dual]
	x.SetValue(numeric.Seed(0.5))
	tp.RegisterInput(&x)
	// y = x * sin(x)
	tp.Store(&y, d.Mul(&x, d.Sin(&x)))
	tp.SetPassive()

	tp.SetGradient(y.Identifier(), numeric.Dual{Value: 1})
	tp.Evaluate(tp.Position(), tp.ZeroPosition())
	g := tp.GetGradient(x.Identifier())[0]

	require.InDelta(t, math.Sin(0.5)+0.5*math.Cos(0.5), g.Value, 1e-14)
	assert.InDelta(t, 2*math.Cos(0.5)-0.5*math.Sin(0.5), g.Tangent, 1e-14)
}

package algorithms_test

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/adtape/internal/algorithms"
	"github.com/born-ml/adtape/internal/expr"
	"github.com/born-ml/adtape/internal/index"
	"github.com/born-ml/adtape/internal/numeric"
	"github.com/born-ml/adtape/internal/stream"
	"github.com/born-ml/adtape/internal/tape"
)

type (
	F    = numeric.Float
	Dual = numeric.Dual
)

var policies = []index.Policy{index.PolicyLinear, index.PolicyReuse}

func newTape[T numeric.Real[T]](p index.Policy, width int) *tape.Tape[T] {
	opts := tape.DefaultOptions()
	opts.Policy = p
	opts.Width = width
	opts.ChunkSize = 16
	return tape.New[T](opts)
}

func TestChoose(t *testing.T) {
	assert.Equal(t, algorithms.Forward, algorithms.Choose(2, 5))
	assert.Equal(t, algorithms.Reverse, algorithms.Choose(5, 2))
	assert.Equal(t, algorithms.Forward, algorithms.Choose(3, 3))
	assert.Equal(t, "forward", algorithms.Forward.String())
	assert.Equal(t, "reverse", algorithms.Reverse.String())
}

func TestSweeps(t *testing.T) {
	tests := []struct {
		inputs, outputs, width, want int
	}{
		{2, 5, 1, 2},
		{5, 2, 1, 2},
		{5, 2, 2, 1},
		{4, 9, 3, 2},
		{7, 3, 4, 1},
		{9, 4, 3, 2},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%dx%d/w%d", tt.inputs, tt.outputs, tt.width), func(t *testing.T) {
			assert.Equal(t, tt.want, algorithms.Sweeps(tt.inputs, tt.outputs, tt.width))
		})
	}
}

type jacobianCase struct {
	name string
	x    []float64
	fn   func(x []*tape.Active[F]) []expr.Expression[F]
	want func(x []float64) [][]float64
}

var jacobianCases = []jacobianCase{
	{
		// Two inputs and five outputs take the forward path.
		name: "forward",
		x:    []float64{1.5, -0.5},
		fn: func(x []*tape.Active[F]) []expr.Expression[F] {
			var f expr.Ops[F]
			return []expr.Expression[F]{
				f.Mul(x[0], x[1]),
				f.Sin(x[0]),
				f.Add(x[0], x[1]),
				f.Exp(x[1]),
				f.Div(x[0], x[1]),
			}
		},
		want: func(x []float64) [][]float64 {
			return [][]float64{
				{x[1], x[0]},
				{math.Cos(x[0]), 0},
				{1, 1},
				{0, math.Exp(x[1])},
				{1 / x[1], -x[0] / (x[1] * x[1])},
			}
		},
	},
	{
		// Five inputs and two outputs take the reverse path.
		name: "reverse",
		x:    []float64{0.5, 2, -1, 3, 0.25},
		fn: func(x []*tape.Active[F]) []expr.Expression[F] {
			var f expr.Ops[F]
			return []expr.Expression[F]{
				f.Sum(f.Mul(x[0], x[1]), f.Mul(x[2], x[3]), f.Sin(x[4])),
				f.Sub(f.Mul(x[0], x[4]), x[2]),
			}
		},
		want: func(x []float64) [][]float64 {
			return [][]float64{
				{x[1], x[0], x[3], x[2], math.Cos(x[4])},
				{x[4], 0, -1, 0, x[0]},
			}
		},
	},
}

// recordJacobian records tc on tp and returns the input and output
// identifiers.
func recordJacobian(tp *tape.Tape[F], tc jacobianCase) (in, out []index.Identifier) {
	x := make([]tape.Active[F], len(tc.x))
	ptrs := make([]*tape.Active[F], len(tc.x))
	tp.SetActive()
	for i, v := range tc.x {
		x[i].SetValue(F(v))
		tp.RegisterInput(&x[i])
		ptrs[i] = &x[i]
	}
	exprs := tc.fn(ptrs)
	y := make([]tape.Active[F], len(exprs))
	for i, e := range exprs {
		tp.Store(&y[i], e)
		tp.RegisterOutput(&y[i])
	}
	tp.SetPassive()
	return algorithms.Identifiers(x), algorithms.Identifiers(y)
}

func requireCleared[T numeric.Real[T]](t *testing.T, tp *tape.Tape[T]) {
	t.Helper()
	for id := index.Identifier(0); id <= tp.LargestIdentifier(); id++ {
		for d, g := range tp.GetGradient(id) {
			require.True(t, g.IsZero(), "slot %d direction %d holds %v", id, d, g)
		}
	}
}

func TestComputeJacobian(t *testing.T) {
	for _, tc := range jacobianCases {
		for _, p := range policies {
			for _, width := range []int{1, 2, 4} {
				t.Run(fmt.Sprintf("%s/%s/w%d", tc.name, p, width), func(t *testing.T) {
					tp := newTape[F](p, width)
					in, out := recordJacobian(tp, tc)

					jac := algorithms.NewDense[F](len(out), len(in))
					algorithms.ComputeJacobian[F](tp, tp.ZeroPosition(), tp.Position(), in, out, jac)

					want := tc.want(tc.x)
					for i := range want {
						for j := range want[i] {
							assert.InDelta(t, want[i][j], float64(jac.At(i, j)), 1e-12, "J[%d][%d]", i, j)
						}
					}
					requireCleared(t, tp)
				})
			}
		}
	}
}

func TestComputeJacobian_Repeated(t *testing.T) {
	tc := jacobianCases[1]
	tp := newTape[F](index.PolicyLinear, 1)
	in, out := recordJacobian(tp, tc)

	first := algorithms.NewDense[F](len(out), len(in))
	second := algorithms.NewDense[F](len(out), len(in))
	algorithms.ComputeJacobian[F](tp, tp.ZeroPosition(), tp.Position(), in, out, first)
	algorithms.ComputeJacobian[F](tp, tp.ZeroPosition(), tp.Position(), in, out, second)

	for i := range len(out) {
		assert.Equal(t, first.Row(i), second.Row(i))
	}
}

// hessianCase holds a function with known first and second derivatives.
type hessianCase struct {
	name    string
	x       []float64
	outputs int
	fn      algorithms.Function
	jac     func(x []float64) [][]float64
	hes     func(x []float64) [][][]float64
}

var hessianCases = []hessianCase{
	{
		// f0 = x0²·x1 + sin(x0), f1 = exp(x1)·x2
		name:    "reverse",
		x:       []float64{0.7, 1.2, -0.4},
		outputs: 2,
		fn: func(tp *tape.Tape[Dual], x, y []tape.Active[Dual]) {
			var f expr.Ops[Dual]
			tp.Store(&y[0], f.Add(f.Mul(f.Mul(&x[0], &x[0]), &x[1]), f.Sin(&x[0])))
			tp.Store(&y[1], f.Mul(f.Exp(&x[1]), &x[2]))
		},
		jac: func(x []float64) [][]float64 {
			e := math.Exp(x[1])
			return [][]float64{
				{2*x[0]*x[1] + math.Cos(x[0]), x[0] * x[0], 0},
				{0, e * x[2], e},
			}
		},
		hes: func(x []float64) [][][]float64 {
			e := math.Exp(x[1])
			return [][][]float64{
				{
					{2*x[1] - math.Sin(x[0]), 2 * x[0], 0},
					{2 * x[0], 0, 0},
					{0, 0, 0},
				},
				{
					{0, 0, 0},
					{0, e * x[2], e},
					{0, e, 0},
				},
			}
		},
	},
	{
		// f0 = x0²·x1 + sin(x0), f1 = exp(x1)·x0, f2 = x1²
		name:    "forward",
		x:       []float64{-0.3, 0.9},
		outputs: 3,
		fn: func(tp *tape.Tape[Dual], x, y []tape.Active[Dual]) {
			var f expr.Ops[Dual]
			tp.Store(&y[0], f.Add(f.Mul(f.Mul(&x[0], &x[0]), &x[1]), f.Sin(&x[0])))
			tp.Store(&y[1], f.Mul(f.Exp(&x[1]), &x[0]))
			tp.Store(&y[2], f.Square(&x[1]))
		},
		jac: func(x []float64) [][]float64 {
			e := math.Exp(x[1])
			return [][]float64{
				{2*x[0]*x[1] + math.Cos(x[0]), x[0] * x[0]},
				{e, x[0] * e},
				{0, 2 * x[1]},
			}
		},
		hes: func(x []float64) [][][]float64 {
			e := math.Exp(x[1])
			return [][][]float64{
				{
					{2*x[1] - math.Sin(x[0]), 2 * x[0]},
					{2 * x[0], 0},
				},
				{
					{0, e},
					{e, x[0] * e},
				},
				{
					{0, 0},
					{0, 2},
				},
			}
		},
	},
}

func (hc hessianCase) variables() (in, out []tape.Active[Dual]) {
	in = make([]tape.Active[Dual], len(hc.x))
	for i, v := range hc.x {
		in[i].SetValue(Dual{Value: v})
	}
	return in, make([]tape.Active[Dual], hc.outputs)
}

func (hc hessianCase) check(t *testing.T, hes *algorithms.Dense3[float64], jac *algorithms.Dense[float64]) {
	t.Helper()
	wantH, wantJ := hc.hes(hc.x), hc.jac(hc.x)
	for i := range wantH {
		for j := range wantH[i] {
			assert.InDelta(t, wantJ[i][j], jac.At(i, j), 1e-12, "J[%d][%d]", i, j)
			for k := range wantH[i][j] {
				assert.InDelta(t, wantH[i][j][k], hes.At(i, j, k), 1e-12, "H[%d][%d][%d]", i, j, k)
			}
		}
	}
}

func TestComputeHessian(t *testing.T) {
	for _, hc := range hessianCases {
		for _, p := range policies {
			for _, width := range []int{1, 2} {
				t.Run(fmt.Sprintf("%s/%s/w%d", hc.name, p, width), func(t *testing.T) {
					tp := newTape[Dual](p, width)
					in, out := hc.variables()
					hes := algorithms.NewDense3[float64](hc.outputs, len(hc.x))
					jac := algorithms.NewDense[float64](hc.outputs, len(hc.x))

					algorithms.ComputeHessian(tp, hc.fn, in, out, hes, jac)

					hc.check(t, hes, jac)
					requireCleared(t, tp)
					for _, v := range in {
						assert.Zero(t, v.Value().Tangent, "input tangents are restored")
					}
				})
			}
		}
	}
}

func TestComputeHessian_NilJacobian(t *testing.T) {
	hc := hessianCases[0]
	tp := newTape[Dual](index.PolicyLinear, 1)
	in, out := hc.variables()
	hes := algorithms.NewDense3[float64](hc.outputs, len(hc.x))

	algorithms.ComputeHessian(tp, hc.fn, in, out, hes, nil)

	assert.InDelta(t, math.Exp(hc.x[1]), hes.At(1, 1, 2), 1e-12)
}

// rerecordingTape imitates a primal value tape on top of a Jacobian tape: a
// changed primal value is propagated by recording the function again.
type rerecordingTape struct {
	*tape.Tape[Dual]
	fn      algorithms.Function
	in, out []tape.Active[Dual]
	dirty   bool
	records int
}

func newRerecordingTape(hc hessianCase) *rerecordingTape {
	r := &rerecordingTape{Tape: newTape[Dual](index.PolicyLinear, 1), fn: hc.fn}
	r.in, r.out = hc.variables()
	r.record()
	return r
}

func (r *rerecordingTape) record() {
	r.Reset(false)
	r.SetActive()
	for i := range r.in {
		r.RegisterInput(&r.in[i])
	}
	r.fn(r.Tape, r.in, r.out)
	for i := range r.out {
		r.RegisterOutput(&r.out[i])
	}
	r.SetPassive()
	r.dirty = false
	r.records++
}

func (r *rerecordingTape) input(id index.Identifier) (*tape.Active[Dual], error) {
	for i := range r.in {
		if r.in[i].Identifier() == id {
			return &r.in[i], nil
		}
	}
	return nil, fmt.Errorf("identifier %d is not an input", id)
}

func (r *rerecordingTape) Primal(id index.Identifier) (Dual, error) {
	v, err := r.input(id)
	if err != nil {
		return Dual{}, err
	}
	return v.Value(), nil
}

func (r *rerecordingTape) SetPrimal(id index.Identifier, d Dual) error {
	v, err := r.input(id)
	if err != nil {
		return err
	}
	v.SetValue(d)
	r.dirty = true
	return nil
}

func (r *rerecordingTape) RevertPrimals(stream.Position) error {
	r.record()
	return nil
}

func (r *rerecordingTape) EvaluatePrimal(_, _ stream.Position) error {
	r.record()
	return nil
}

// EvaluateForward recomputes the primal values first, as a primal value
// tape does during a forward sweep.
func (r *rerecordingTape) EvaluateForward(start, end stream.Position) {
	if r.dirty {
		r.record()
	}
	r.Tape.EvaluateForward(start, end)
}

func TestComputeHessianPrimalValueTape(t *testing.T) {
	for _, hc := range hessianCases {
		t.Run(hc.name, func(t *testing.T) {
			r := newRerecordingTape(hc)
			in, out := algorithms.Identifiers(r.in), algorithms.Identifiers(r.out)
			hes := algorithms.NewDense3[float64](hc.outputs, len(hc.x))
			jac := algorithms.NewDense[float64](hc.outputs, len(hc.x))

			err := algorithms.ComputeHessianPrimalValueTape(r, r.ZeroPosition(), r.Position(), in, out, hes, jac)
			require.NoError(t, err)

			hc.check(t, hes, jac)
			requireCleared(t, r.Tape)
			assert.Greater(t, r.records, 1)
		})
	}
}

func TestComputeHessianPrimalValueTape_JacobianTape(t *testing.T) {
	hc := hessianCases[0]
	tp := newTape[Dual](index.PolicyLinear, 1)
	x, y := hc.variables()
	tp.SetActive()
	for i := range x {
		tp.RegisterInput(&x[i])
	}
	hc.fn(tp, x, y)
	tp.SetPassive()

	hes := algorithms.NewDense3[float64](hc.outputs, len(hc.x))
	err := algorithms.ComputeHessianPrimalValueTape(tp, tp.ZeroPosition(), tp.Position(),
		algorithms.Identifiers(x), algorithms.Identifiers(y), hes, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, tape.ErrUnsupported))
}

func TestDense(t *testing.T) {
	m := algorithms.NewDense[float64](2, 3)
	m.Set(1, 2, 5)
	assert.Equal(t, 2, m.Rows())
	assert.Equal(t, 3, m.Cols())
	assert.Equal(t, 5.0, m.At(1, 2))
	assert.Equal(t, []float64{0, 0, 5}, m.Row(1))

	assert.Panics(t, func() { m.At(2, 0) })
	assert.Panics(t, func() { m.Set(0, 3, 1) })
	assert.Panics(t, func() { m.At(-1, 0) })
}

func TestDense3(t *testing.T) {
	h := algorithms.NewDense3[float64](2, 3)
	h.Set(1, 0, 2, 4)
	assert.Equal(t, 2, h.Outputs())
	assert.Equal(t, 3, h.Inputs())
	assert.Equal(t, 4.0, h.At(1, 0, 2))
	assert.Len(t, h.Matrix(1), 9)
	assert.Equal(t, 4.0, h.Matrix(1)[2])

	assert.Panics(t, func() { h.At(2, 0, 0) })
	assert.Panics(t, func() { h.Set(0, 0, 3, 1) })
}

func TestComputeHessian_Discard(t *testing.T) {
	hc := hessianCases[1]
	tp := newTape[Dual](index.PolicyReuse, 1)
	in, out := hc.variables()
	jac := algorithms.NewDense[float64](hc.outputs, len(hc.x))

	algorithms.ComputeHessian(tp, hc.fn, in, out, algorithms.Discard3[float64]{}, jac)

	assert.InDelta(t, 2*hc.x[1], jac.At(2, 1), 1e-12)
	requireCleared(t, tp)
}

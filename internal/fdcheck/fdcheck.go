// Package fdcheck compares tape derivatives with central finite differences.
package fdcheck

import (
	"fmt"
	"math"
	"slices"

	"github.com/samber/lo"

	"github.com/born-ml/adtape/internal/algorithms"
	"github.com/born-ml/adtape/internal/numeric"
	"github.com/born-ml/adtape/internal/parallel"
	"github.com/born-ml/adtape/internal/tape"
)

// Real is the value type of checked functions.
type Real = numeric.Float

// Func is a plain vector function.
type Func func(x []float64) []float64

// Taped computes outputs from inputs by storing statements on t.
type Taped func(t *tape.Tape[Real], x, y []tape.Active[Real])

// Options configures a check.
type Options struct {
	// Step is the finite-difference step relative to max(1, |x_j|).
	Step float64
	// RTol and ATol bound |ad - fd| by ATol + RTol·|fd|.
	RTol     float64
	ATol     float64
	Parallel parallel.Config
}

// DefaultOptions returns tolerances suitable for smooth float64 functions.
func DefaultOptions() Options {
	return Options{
		Step:     1e-6,
		RTol:     1e-5,
		ATol:     1e-7,
		Parallel: parallel.DefaultConfig(),
	}
}

// Jacobian approximates the Jacobian of f at x with central differences.
// Row i holds the derivatives of output i. Perturbations run in parallel
// according to opts.Parallel, so f must be safe for concurrent use.
func Jacobian(f Func, x []float64, outputs int, opts Options) [][]float64 {
	cols := parallel.Map(len(x), func(j int) []float64 {
		h := opts.Step * math.Max(1, math.Abs(x[j]))
		xp, xm := slices.Clone(x), slices.Clone(x)
		xp[j] += h
		xm[j] -= h
		fp, fm := f(xp), f(xm)
		col := make([]float64, outputs)
		for i := range col {
			col[i] = (fp[i] - fm[i]) / (2 * h)
		}
		return col
	}, opts.Parallel)

	jac := make([][]float64, outputs)
	for i := range jac {
		jac[i] = lo.Map(cols, func(col []float64, _ int) float64 { return col[i] })
	}
	return jac
}

// Plain turns fn into a plain function. Every call evaluates fn on its own
// passive tape, so the result is safe for concurrent use.
func Plain(opts tape.Options, fn Taped, outputs int) Func {
	opts.Events = nil
	return func(x []float64) []float64 {
		t := tape.New[Real](opts)
		in := inputs(x)
		out := make([]tape.Active[Real], outputs)
		fn(t, in, out)
		return values(out)
	}
}

// TapeJacobian records fn at x on a new tape and computes its Jacobian with
// algorithms.ComputeJacobian. It also returns the output values.
func TapeJacobian(opts tape.Options, fn Taped, x []float64, outputs int) ([][]float64, []float64) {
	t := tape.New[Real](opts)
	in := inputs(x)
	out := make([]tape.Active[Real], outputs)

	t.SetActive()
	for i := range in {
		t.RegisterInput(&in[i])
	}
	fn(t, in, out)
	for i := range out {
		t.RegisterOutput(&out[i])
	}
	t.SetPassive()

	jac := algorithms.NewDense[Real](outputs, len(x))
	algorithms.ComputeJacobian[Real](t, t.ZeroPosition(), t.Position(),
		algorithms.Identifiers(in), algorithms.Identifiers(out), jac)

	rows := make([][]float64, outputs)
	for i := range rows {
		rows[i] = lo.Map(jac.Row(i), func(v Real, _ int) float64 { return float64(v) })
	}
	return rows, values(out)
}

// Mismatch is a Jacobian entry outside the tolerance.
type Mismatch struct {
	Output, Input int
	Tape, Finite  float64
}

func (m Mismatch) String() string {
	return fmt.Sprintf("d y%d / d x%d: tape %g, finite differences %g", m.Output, m.Input, m.Tape, m.Finite)
}

// Report is the result of Check.
type Report struct {
	Values     []float64
	Tape       [][]float64
	Finite     [][]float64
	MaxError   float64
	Mismatches []Mismatch
}

// OK reports whether every entry is within the tolerance.
func (r Report) OK() bool {
	return len(r.Mismatches) == 0
}

// Check compares the tape Jacobian of fn at x with finite differences.
func Check(topts tape.Options, fn Taped, x []float64, outputs int, opts Options) Report {
	ad, vals := TapeJacobian(topts, fn, x, outputs)
	fd := Jacobian(Plain(topts, fn, outputs), x, outputs, opts)

	r := Report{Values: vals, Tape: ad, Finite: fd}
	for i := range ad {
		for j := range ad[i] {
			diff := math.Abs(ad[i][j] - fd[i][j])
			r.MaxError = math.Max(r.MaxError, diff)
			if diff > opts.ATol+opts.RTol*math.Abs(fd[i][j]) || math.IsNaN(diff) {
				r.Mismatches = append(r.Mismatches, Mismatch{Output: i, Input: j, Tape: ad[i][j], Finite: fd[i][j]})
			}
		}
	}
	return r
}

func inputs(x []float64) []tape.Active[Real] {
	return lo.Map(x, func(v float64, _ int) tape.Active[Real] {
		var a tape.Active[Real]
		a.SetValue(Real(v))
		return a
	})
}

func values(vars []tape.Active[Real]) []float64 {
	return lo.Map(vars, func(v tape.Active[Real], _ int) float64 { return float64(v.Value()) })
}

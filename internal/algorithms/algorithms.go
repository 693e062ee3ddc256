// Package algorithms assembles Jacobians and Hessians from repeated tape
// sweeps.
//
// Every driver seeds Width directions per sweep and leaves every derivative
// slot it touched at zero when it returns. The slots must be zero on entry.
package algorithms

import (
	"github.com/samber/lo"

	"github.com/born-ml/adtape/internal/index"
	"github.com/born-ml/adtape/internal/numeric"
	"github.com/born-ml/adtape/internal/stream"
	"github.com/born-ml/adtape/internal/tape"
)

// Evaluation is a sweep direction.
type Evaluation int

const (
	Forward Evaluation = iota
	Reverse
)

func (e Evaluation) String() string {
	if e == Forward {
		return "forward"
	}
	return "reverse"
}

// Choose returns the direction that needs fewer sweeps: one forward sweep
// per input or one reverse sweep per output.
func Choose(inputs, outputs int) Evaluation {
	if inputs <= outputs {
		return Forward
	}
	return Reverse
}

// Sweeps returns the number of sweeps ComputeJacobian performs.
func Sweeps(inputs, outputs, width int) int {
	n := outputs
	if Choose(inputs, outputs) == Forward {
		n = inputs
	}
	return (n + width - 1) / width
}

// Tape is what the Jacobian drivers need from a tape.
type Tape[T any] interface {
	Width() int
	Gradient(id index.Identifier) []T
	GetGradient(id index.Identifier) []T
	Evaluate(start, end stream.Position)
	EvaluateForward(start, end stream.Position)
	ClearAdjointsRange(start, end stream.Position)
}

// Matrix receives Jacobian entries.
type Matrix[T any] interface {
	Set(i, j int, v T)
}

// Tensor receives Hessian entries.
type Tensor[T any] interface {
	Set(i, j, k int, v T)
}

// Identifiers returns the identifiers of vars.
func Identifiers[T any](vars []tape.Active[T]) []index.Identifier {
	return lo.Map(vars, func(v tape.Active[T], _ int) index.Identifier {
		return v.Identifier()
	})
}

// ComputeJacobian fills jac(i, j) with the derivative of output i with
// respect to input j over the tape range [start, end].
func ComputeJacobian[T numeric.Real[T]](t Tape[T], start, end stream.Position, inputs, outputs []index.Identifier, jac Matrix[T]) {
	var zero T
	one := zero.FromFloat(1)
	w := t.Width()

	if Choose(len(inputs), len(outputs)) == Forward {
		for j := 0; j < len(inputs); j += w {
			seed(t, inputs, j, w, one)
			t.EvaluateForward(start, end)
			for i, out := range outputs {
				g := t.GetGradient(out)
				for d := 0; d < w && j+d < len(inputs); d++ {
					jac.Set(i, j+d, g[d])
				}
			}
			seed(t, inputs, j, w, zero)
		}
		t.ClearAdjointsRange(end, start)
		return
	}

	for i := 0; i < len(outputs); i += w {
		seed(t, outputs, i, w, one)
		t.Evaluate(end, start)
		for j, in := range inputs {
			g := t.Gradient(in)
			for d := 0; d < w && i+d < len(outputs); d++ {
				jac.Set(i+d, j, g[d])
			}
			clear(g)
		}
		seed(t, outputs, i, w, zero)
		t.ClearAdjointsRange(end, start)
	}
}

// seed sets direction d of ids[pos+d] to v for every d below w.
func seed[T any](t Tape[T], ids []index.Identifier, pos, w int, v T) {
	for d := 0; d < w && pos+d < len(ids); d++ {
		t.Gradient(ids[pos+d])[d] = v
	}
}

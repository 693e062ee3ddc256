package algorithms

import (
	"fmt"

	"github.com/born-ml/adtape/internal/index"
	"github.com/born-ml/adtape/internal/numeric"
	"github.com/born-ml/adtape/internal/stream"
	"github.com/born-ml/adtape/internal/tape"
)

// Dual is the second-order value type of the Hessian drivers. The primal
// tangent carries the second direction, the tape's derivative vector the
// first.
type Dual = numeric.Dual

// PrimalTape is a tape that keeps primal values and can restore and
// re-evaluate them. The Jacobian tape of package tape does not, and
// reports tape.ErrUnsupported.
type PrimalTape interface {
	Tape[Dual]
	Primal(id index.Identifier) (Dual, error)
	SetPrimal(id index.Identifier, v Dual) error
	RevertPrimals(pos stream.Position) error
	EvaluatePrimal(start, end stream.Position) error
}

// ComputeHessianPrimalValueTape fills hes(i, j, k) with the second
// derivative of output i with respect to inputs j and k, and jac when it is
// not nil, from a tape recorded over [start, end]. The second direction is
// seeded through the recorded primal values, so no re-recording is needed.
func ComputeHessianPrimalValueTape(t PrimalTape, start, end stream.Position, inputs, outputs []index.Identifier, hes Tensor[float64], jac Matrix[float64]) error {
	if Choose(len(inputs), len(outputs)) == Forward {
		return hessianPrimalForward(t, start, end, inputs, outputs, hes, jac)
	}
	return hessianPrimalReverse(t, start, end, inputs, outputs, hes, jac)
}

func hessianPrimalForward(t PrimalTape, start, end stream.Position, inputs, outputs []index.Identifier, hes Tensor[float64], jac Matrix[float64]) error {
	if err := t.RevertPrimals(start); err != nil {
		return fmt.Errorf("hessian: %w", err)
	}
	w := t.Width()
	one := Dual{Value: 1}

	for j := range inputs {
		if err := seedPrimal(t, inputs[j], 1); err != nil {
			return err
		}
		// Entries below the diagonal follow from symmetry.
		for k := j; k < len(inputs); k += w {
			seed[Dual](t, inputs, k, w, one)
			t.EvaluateForward(start, end)
			for i, out := range outputs {
				g := t.GetGradient(out)
				for d := 0; d < w && k+d < len(inputs); d++ {
					hes.Set(i, j, k+d, g[d].Tangent)
					hes.Set(i, k+d, j, g[d].Tangent)
					if j == 0 && jac != nil {
						jac.Set(i, k+d, g[d].Value)
					}
				}
			}
			seed[Dual](t, inputs, k, w, Dual{})
		}
		if err := seedPrimal(t, inputs[j], 0); err != nil {
			return err
		}
	}
	t.ClearAdjointsRange(end, start)
	return nil
}

func hessianPrimalReverse(t PrimalTape, start, end stream.Position, inputs, outputs []index.Identifier, hes Tensor[float64], jac Matrix[float64]) error {
	if err := t.RevertPrimals(start); err != nil {
		return fmt.Errorf("hessian: %w", err)
	}
	w := t.Width()
	one := Dual{Value: 1}

	for j := range inputs {
		if err := seedPrimal(t, inputs[j], 1); err != nil {
			return err
		}
		if err := t.EvaluatePrimal(start, end); err != nil {
			return fmt.Errorf("hessian: %w", err)
		}
		for i := 0; i < len(outputs); i += w {
			seed[Dual](t, outputs, i, w, one)
			t.Evaluate(end, start)
			for k, in := range inputs {
				g := t.Gradient(in)
				for d := 0; d < w && i+d < len(outputs); d++ {
					hes.Set(i+d, j, k, g[d].Tangent)
					if j == 0 && jac != nil {
						jac.Set(i+d, k, g[d].Value)
					}
				}
				clear(g)
			}
			seed[Dual](t, outputs, i, w, Dual{})
			t.ClearAdjointsRange(end, start)
		}
		if err := seedPrimal(t, inputs[j], 0); err != nil {
			return err
		}
		if err := t.RevertPrimals(start); err != nil {
			return fmt.Errorf("hessian: %w", err)
		}
	}
	return nil
}

func seedPrimal(t PrimalTape, id index.Identifier, tangent float64) error {
	p, err := t.Primal(id)
	if err != nil {
		return fmt.Errorf("hessian: %w", err)
	}
	p.Tangent = tangent
	if err := t.SetPrimal(id, p); err != nil {
		return fmt.Errorf("hessian: %w", err)
	}
	return nil
}

// Function computes outputs from inputs by storing statements on a tape.
type Function func(t *tape.Tape[Dual], inputs, outputs []tape.Active[Dual])

// ComputeHessian records fn once per input, with that input's primal
// tangent seeded, and fills hes and, when it is not nil, jac. The tape is
// reset after every recording.
func ComputeHessian(t *tape.Tape[Dual], fn Function, inputs, outputs []tape.Active[Dual], hes Tensor[float64], jac Matrix[float64]) {
	if Choose(len(inputs), len(outputs)) == Forward {
		hessianForward(t, fn, inputs, outputs, hes, jac)
		return
	}
	hessianReverse(t, fn, inputs, outputs, hes, jac)
}

func hessianForward(t *tape.Tape[Dual], fn Function, inputs, outputs []tape.Active[Dual], hes Tensor[float64], jac Matrix[float64]) {
	w := t.Width()
	one := Dual{Value: 1}

	for j := range inputs {
		setTangent(&inputs[j], 1)
		record(t, fn, inputs, outputs)
		ids, outs := Identifiers(inputs), Identifiers(outputs)

		for k := j; k < len(inputs); k += w {
			seed[Dual](t, ids, k, w, one)
			t.EvaluateForward(t.ZeroPosition(), t.Position())
			for i, out := range outs {
				g := t.GetGradient(out)
				for d := 0; d < w && k+d < len(inputs); d++ {
					hes.Set(i, j, k+d, g[d].Tangent)
					hes.Set(i, k+d, j, g[d].Tangent)
					if j == 0 && jac != nil {
						jac.Set(i, k+d, g[d].Value)
					}
				}
			}
			seed[Dual](t, ids, k, w, Dual{})
		}

		setTangent(&inputs[j], 0)
		t.Reset(true)
	}
}

func hessianReverse(t *tape.Tape[Dual], fn Function, inputs, outputs []tape.Active[Dual], hes Tensor[float64], jac Matrix[float64]) {
	w := t.Width()
	one := Dual{Value: 1}

	for j := range inputs {
		setTangent(&inputs[j], 1)
		record(t, fn, inputs, outputs)
		ids, outs := Identifiers(inputs), Identifiers(outputs)

		for i := 0; i < len(outs); i += w {
			seed[Dual](t, outs, i, w, one)
			t.Evaluate(t.Position(), t.ZeroPosition())
			for k, in := range ids {
				g := t.Gradient(in)
				for d := 0; d < w && i+d < len(outs); d++ {
					hes.Set(i+d, j, k, g[d].Tangent)
					if j == 0 && jac != nil {
						jac.Set(i+d, k, g[d].Value)
					}
				}
				clear(g)
			}
			seed[Dual](t, outs, i, w, Dual{})
			t.ClearAdjointsRange(t.Position(), t.ZeroPosition())
		}

		setTangent(&inputs[j], 0)
		t.Reset(true)
	}
}

func setTangent(v *tape.Active[Dual], tangent float64) {
	d := v.Value()
	d.Tangent = tangent
	v.SetValue(d)
}

func record(t *tape.Tape[Dual], fn Function, inputs, outputs []tape.Active[Dual]) {
	t.SetActive()
	for i := range inputs {
		t.RegisterInput(&inputs[i])
	}
	fn(t, inputs, outputs)
	for i := range outputs {
		t.RegisterOutput(&outputs[i])
	}
	t.SetPassive()
}

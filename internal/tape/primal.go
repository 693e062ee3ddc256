package tape

import (
	"errors"
	"fmt"

	"github.com/born-ml/adtape/internal/index"
	"github.com/born-ml/adtape/internal/stream"
)

// ErrUnsupported is returned for operations a Jacobian tape cannot perform.
// A Jacobian tape stores partials only, so primal values are gone once a
// statement is recorded.
var ErrUnsupported = errors.New("unsupported operation")

// Primal returns the recorded primal value of id.
func (t *Tape[T]) Primal(id index.Identifier) (T, error) {
	var zero T
	return zero, fmt.Errorf("primal of identifier %d: %w", id, ErrUnsupported)
}

// SetPrimal changes the recorded primal value of id.
func (t *Tape[T]) SetPrimal(id index.Identifier, _ T) error {
	return fmt.Errorf("set primal of identifier %d: %w", id, ErrUnsupported)
}

// EvaluatePrimal re-evaluates the primal values between start and end.
func (t *Tape[T]) EvaluatePrimal(start, end stream.Position) error {
	return fmt.Errorf("primal evaluation from %v to %v: %w", start, end, ErrUnsupported)
}

// RevertPrimals restores the primal values recorded at pos.
func (t *Tape[T]) RevertPrimals(pos stream.Position) error {
	return fmt.Errorf("revert primals to %v: %w", pos, ErrUnsupported)
}

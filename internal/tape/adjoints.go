package tape

import (
	"slices"

	"github.com/born-ml/adtape/internal/index"
	"github.com/born-ml/adtape/internal/stream"
)

// Gradient returns the Width adjoint entries of id. The slice aliases the
// adjoint vector, which grows to cover every assigned identifier first.
func (t *Tape[T]) Gradient(id index.Identifier) []T {
	if id < 0 {
		panic(stream.Violation("gradient of identifier %d", id))
	}
	t.ensureAdjoints()
	if int(id) >= len(t.adjoints)/t.width {
		t.resizeAdjoints(int(id) + 1)
	}
	base := int(id) * t.width
	return t.adjoints[base : base+t.width : base+t.width]
}

// GetGradient returns a copy of the adjoint entries of id without growing
// the adjoint vector. Identifiers outside the vector read as zero.
func (t *Tape[T]) GetGradient(id index.Identifier) []T {
	out := make([]T, t.width)
	if id < 0 || int(id) >= len(t.adjoints)/t.width {
		return out
	}
	copy(out, t.adjoints[int(id)*t.width:])
	return out
}

// SetGradient sets the first adjoint entry of id.
func (t *Tape[T]) SetGradient(id index.Identifier, v T) {
	t.Gradient(id)[0] = v
}

// ClearAdjoints zeroes the whole adjoint vector.
func (t *Tape[T]) ClearAdjoints() {
	clear(t.adjoints)
}

// ClearAdjointsRange zeroes the adjoints of the outputs of every statement
// between start and end, start not preceding end.
func (t *Tape[T]) ClearAdjointsRange(start, end stream.Position) {
	if start.Compare(end) < 0 {
		panic(stream.Violation("clearing adjoints from %v to the later position %v", start, end))
	}
	size := len(t.adjoints) / t.width

	var w stream.Window
	t.arguments.EvaluateReverse(start, end, &w, func(w *stream.Window) {
		args := w.Cursor(levelArgument)
		stmts := t.statements(w)
		for {
			lhs, n, ok := stmts.prev()
			if !ok {
				break
			}
			if n != InputTag {
				args.Pos -= int(n)
			}
			if int(lhs) < size {
				clear(t.adjoints[int(lhs)*t.width : int(lhs)*t.width+t.width])
			}
		}
	})
}

// DeleteAdjointVector releases the adjoint vector.
func (t *Tape[T]) DeleteAdjointVector() {
	t.adjoints = nil
}

// ensureAdjoints grows the adjoint vector to cover LargestIdentifier.
func (t *Tape[T]) ensureAdjoints() {
	if need := int(t.LargestIdentifier()) + 1; len(t.adjoints) < need*t.width {
		t.resizeAdjoints(need)
	}
}

// resizeAdjoints sets the adjoint vector to n identifiers. New entries are
// zero.
func (t *Tape[T]) resizeAdjoints(n int) {
	size := n * t.width
	if size <= len(t.adjoints) {
		t.adjoints = slices.Clip(t.adjoints[:size])
		return
	}
	old := len(t.adjoints)
	t.adjoints = slices.Grow(t.adjoints, size-old)[:size]
	clear(t.adjoints[old:])
}

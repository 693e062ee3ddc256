package tape

import (
	"github.com/born-ml/adtape/internal/events"
	"github.com/born-ml/adtape/internal/stream"
)

// Position returns the current end of the recording.
func (t *Tape[T]) Position() stream.Position {
	return t.arguments.Position()
}

// ZeroPosition returns the start of the recording.
func (t *Tape[T]) ZeroPosition() stream.Position {
	return t.arguments.ZeroPosition()
}

// ResetTo discards everything recorded after pos and zeroes the adjoints of
// the discarded statements. pos must not follow the current position.
func (t *Tape[T]) ResetTo(pos stream.Position) {
	cur := t.Position()
	if pos.Compare(cur) > 0 {
		panic(stream.Violation("reset to %v beyond the current position %v", pos, cur))
	}
	t.notifyReset(pos, false)
	t.ClearAdjointsRange(cur, pos)
	t.arguments.ResetTo(pos)
}

// Reset discards the whole recording. With clearAdjoints the adjoint vector
// is zeroed as well.
func (t *Tape[T]) Reset(clearAdjoints bool) {
	t.notifyReset(t.ZeroPosition(), clearAdjoints)
	if clearAdjoints {
		t.ClearAdjoints()
	}
	t.arguments.Reset()
	t.indices.Reset()
}

// ResetHard discards the recording and releases all memory.
func (t *Tape[T]) ResetHard() {
	t.notifyReset(t.ZeroPosition(), true)
	t.arguments.ResetHard()
	t.DeleteAdjointVector()
}

func (t *Tape[T]) notifyReset(pos stream.Position, clearAdjoints bool) {
	if t.events.Enabled(events.Reset) {
		t.events.Notify(&events.Event{Kind: events.Reset, Tape: t, Start: pos, ClearAdjoints: clearAdjoints})
	}
}

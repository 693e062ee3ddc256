// Package stream implements chunked, append-only record storage that nests
// level by level.
//
// A tape keeps records that are produced at different rates in separate
// streams: one entry per statement in one stream, one entry per statement
// argument in another. Each stream is nested on the next slower one, so a
// Position captures the write offset of every level at once and replay can
// walk all levels in lockstep:
//
//	arguments (Stream2[partial, identifier])
//	  └─ statements (Stream1[size] or Stream2[identifier, size])
//	       └─ identifier manager or Terminal
//
// EvaluateForward and EvaluateReverse hand the callback a Window holding one
// Cursor per level. The cursors cover the in-bounds part of one chunk per
// level and the callback advances them while it consumes records.
package stream

import (
	"errors"
	"fmt"
)

// ErrContract marks misuse of the stream or tape API. It is raised with
// panic, never returned.
var ErrContract = errors.New("contract violation")

// Violation builds a contract violation error that wraps ErrContract.
func Violation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrContract, fmt.Sprintf(format, args...))
}

// Level is one level of a stream hierarchy.
type Level interface {
	// Depth returns the number of levels from this one inwards.
	Depth() int
	Position() Position
	ZeroPosition() Position
	Reset()
	// ResetTo truncates to pos. Memory is kept.
	ResetTo(pos Position)
	// ResetHard truncates to the zero position and releases memory.
	ResetHard()
	EvaluateForward(start, end Position, w *Window, fn func(*Window))
	EvaluateReverse(start, end Position, w *Window, fn func(*Window))
	ForEachChunk(fn func(Chunk), recursive bool)
}

// Cursor is the in-bounds view of one level during an evaluation.
//
// For chunked levels Chunk holds the records and Pos moves towards End as
// records are consumed: upwards in forward evaluations, downwards in reverse
// ones. Levels without records use Pos and End for their own counters.
type Cursor struct {
	Chunk Chunk
	Pos   int
	End   int
}

// Window holds the cursors of all levels for one callback invocation.
type Window struct {
	cursors [MaxDepth]Cursor
}

// Cursor returns the cursor of the given level.
func (w *Window) Cursor(level int) *Cursor {
	return &w.cursors[level]
}

// Terminal is the innermost level of a hierarchy that records nothing.
type Terminal struct{}

func (Terminal) Depth() int { return 1 }

func (Terminal) Position() Position { return Root(Offset{}) }

func (Terminal) ZeroPosition() Position { return Root(Offset{}) }

func (Terminal) Reset() {}

func (Terminal) ResetTo(pos Position) {
	if pos.Depth() != 1 {
		panic(Violation("terminal reset to a position of depth %d", pos.Depth()))
	}
}

func (Terminal) ResetHard() {}

func (Terminal) EvaluateForward(_, _ Position, w *Window, fn func(*Window)) {
	w.cursors[0] = Cursor{}
	fn(w)
}

func (Terminal) EvaluateReverse(_, _ Position, w *Window, fn func(*Window)) {
	w.cursors[0] = Cursor{}
	fn(w)
}

func (Terminal) ForEachChunk(func(Chunk), bool) {}

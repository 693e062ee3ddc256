package index

import (
	"github.com/born-ml/adtape/internal/stats"
	"github.com/born-ml/adtape/internal/stream"
)

// Linear issues counter+1 on every assignment and never reuses an
// identifier within a recording segment.
type Linear struct {
	count Identifier
}

// NewLinear creates a Linear manager starting at identifier 1.
func NewLinear() *Linear {
	return &Linear{}
}

func (m *Linear) AssignIndex(id *Identifier) bool {
	m.count++
	*id = m.count
	return true
}

func (m *Linear) AssignUnusedIndex(id *Identifier) bool {
	return m.AssignIndex(id)
}

func (m *Linear) CopyIndex(lhs *Identifier, rhs Identifier) {
	*lhs = rhs
}

// FreeIndex only clears the handle. The slot is reclaimed on reset.
func (m *Linear) FreeIndex(id *Identifier) {
	*id = Unused
}

func (m *Linear) LargestAssignedIndex() Identifier {
	return m.count
}

func (m *Linear) CopyNeedsStatement() bool { return false }

func (m *Linear) IsLinear() bool { return true }

func (m *Linear) Swap(other Manager) {
	o, ok := other.(*Linear)
	if !ok {
		panic(stream.Violation("swapping a linear index manager with %T", other))
	}
	m.count, o.count = o.count, m.count
}

func (m *Linear) AddStats(v *stats.Values) {
	v.AddSection("Indices")
	v.AddCount("Max. live indices", int(m.count))
	v.AddCount("Cur. live indices", int(m.count))
}

func (m *Linear) Depth() int { return 1 }

func (m *Linear) Position() stream.Position {
	return stream.Root(stream.Offset{Data: int(m.count)})
}

func (m *Linear) ZeroPosition() stream.Position {
	return stream.Root(stream.Offset{})
}

func (m *Linear) Reset() {
	m.count = 0
}

func (m *Linear) ResetTo(pos stream.Position) {
	if pos.Depth() != 1 {
		panic(stream.Violation("index reset to a position of depth %d", pos.Depth()))
	}
	n := Identifier(pos.Outer().Data)
	if n > m.count {
		panic(stream.Violation("index reset to %d beyond the current count %d", n, m.count))
	}
	m.count = n
}

func (m *Linear) ResetHard() {
	m.count = 0
}

// EvaluateForward exposes the counter range (start, end] through the
// level 0 cursor.
func (m *Linear) EvaluateForward(start, end stream.Position, w *stream.Window, fn func(*stream.Window)) {
	m.evaluate(start, end, w, fn)
}

// EvaluateReverse exposes the counter range (end, start] through the
// level 0 cursor.
func (m *Linear) EvaluateReverse(start, end stream.Position, w *stream.Window, fn func(*stream.Window)) {
	m.evaluate(start, end, w, fn)
}

func (m *Linear) evaluate(start, end stream.Position, w *stream.Window, fn func(*stream.Window)) {
	c := w.Cursor(0)
	*c = stream.Cursor{Pos: start.Outer().Data, End: end.Outer().Data}
	fn(w)
	if c.Pos != c.End {
		panic(stream.Violation("identifier replay stopped at %d, expected %d", c.Pos, c.End))
	}
}

func (m *Linear) ForEachChunk(func(stream.Chunk), bool) {}

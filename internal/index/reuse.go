package index

import (
	"slices"
	"unsafe"

	"github.com/born-ml/adtape/internal/stats"
	"github.com/born-ml/adtape/internal/stream"
)

// Reuse keeps freed identifiers on free lists and reissues them.
//
// Identifiers freed since the last reset may still be the output of a
// recorded statement. They are kept apart from those freed before it and
// are never handed out by AssignUnusedIndex. Reset merges the two lists.
//
// The largest assigned identifier is a high-water mark. It never decreases,
// not even on Reset, because variables may still hold any identifier issued
// so far.
type Reuse struct {
	used        []Identifier
	unused      []Identifier
	largest     Identifier
	sortOnReset bool
}

// NewReuse creates a Reuse manager. With sortOnReset the free list is
// sorted on every reset so that small identifiers are handed out first.
func NewReuse(sortOnReset bool) *Reuse {
	return &Reuse{sortOnReset: sortOnReset}
}

// AssignIndex keeps a live identifier and issues one otherwise, preferring
// identifiers freed during the current recording.
func (m *Reuse) AssignIndex(id *Identifier) bool {
	if Valid(*id) {
		return false
	}
	if n := len(m.used); n > 0 {
		*id = m.used[n-1]
		m.used = m.used[:n-1]
		return true
	}
	*id = m.nextUnused()
	return true
}

// AssignUnusedIndex issues an identifier no statement of the current
// recording refers to.
func (m *Reuse) AssignUnusedIndex(id *Identifier) bool {
	m.FreeIndex(id)
	*id = m.nextUnused()
	return true
}

func (m *Reuse) nextUnused() Identifier {
	if n := len(m.unused); n > 0 {
		id := m.unused[n-1]
		m.unused = m.unused[:n-1]
		return id
	}
	m.largest++
	return m.largest
}

// CopyIndex is never valid for Reuse: two live variables would share one
// slot and freeing either would release it.
func (m *Reuse) CopyIndex(*Identifier, Identifier) {
	panic(stream.Violation("identifier copy on a reuse index manager"))
}

func (m *Reuse) FreeIndex(id *Identifier) {
	if Valid(*id) {
		m.used = append(m.used, *id)
	}
	*id = Unused
}

func (m *Reuse) LargestAssignedIndex() Identifier {
	return m.largest
}

func (m *Reuse) CopyNeedsStatement() bool { return true }

func (m *Reuse) IsLinear() bool { return false }

// Live returns the number of identifiers currently held by variables.
func (m *Reuse) Live() int {
	return int(m.largest) - m.stored()
}

func (m *Reuse) stored() int {
	return len(m.used) + len(m.unused)
}

func (m *Reuse) Swap(other Manager) {
	o, ok := other.(*Reuse)
	if !ok {
		panic(stream.Violation("swapping a reuse index manager with %T", other))
	}
	m.used, o.used = o.used, m.used
	m.unused, o.unused = o.unused, m.unused
	m.largest, o.largest = o.largest, m.largest
}

func (m *Reuse) AddStats(v *stats.Values) {
	v.AddSection("Indices")
	v.AddCount("Max. live indices", int(m.largest))
	v.AddCount("Cur. live indices", m.Live())
	v.AddCount("Indices stored", m.stored())
	entry := uint64(unsafe.Sizeof(Identifier(0)))
	v.AddMemory("Memory used", uint64(m.stored())*entry, true, false)
	v.AddMemory("Memory allocated", uint64(cap(m.used)+cap(m.unused))*entry, false, true)
}

func (m *Reuse) Depth() int { return 1 }

func (m *Reuse) Position() stream.Position {
	return stream.Root(stream.Offset{})
}

func (m *Reuse) ZeroPosition() stream.Position {
	return stream.Root(stream.Offset{})
}

// Reset keeps every issued identifier. The identifiers freed during the
// recording become unused.
func (m *Reuse) Reset() {
	m.unused = append(m.unused, m.used...)
	m.used = m.used[:0]
	if m.sortOnReset {
		// Popped from the back, so sort descending to hand out small ones first.
		slices.SortFunc(m.unused, func(a, b Identifier) int { return int(b - a) })
	}
}

// ResetTo leaves the free lists alone. Statements before pos are kept and
// may still write to identifiers freed during the recording.
func (m *Reuse) ResetTo(pos stream.Position) {
	if pos.Depth() != 1 {
		panic(stream.Violation("index reset to a position of depth %d", pos.Depth()))
	}
}

// ResetHard shrinks the free list storage to its length. The high-water
// mark stays.
func (m *Reuse) ResetHard() {
	m.Reset()
	m.used = nil
	m.unused = slices.Clone(m.unused)
}

func (m *Reuse) EvaluateForward(_, _ stream.Position, w *stream.Window, fn func(*stream.Window)) {
	*w.Cursor(0) = stream.Cursor{}
	fn(w)
}

func (m *Reuse) EvaluateReverse(_, _ stream.Position, w *stream.Window, fn func(*stream.Window)) {
	*w.Cursor(0) = stream.Cursor{}
	fn(w)
}

func (m *Reuse) ForEachChunk(func(stream.Chunk), bool) {}

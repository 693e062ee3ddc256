package stream

import "github.com/born-ml/adtape/internal/stats"

// DefaultChunkSize is the number of records per chunk when none is given.
const DefaultChunkSize = 64 * 1024

// chunked is the storage shared by Stream1 and Stream2.
//
// positions[i] is the nested position at the moment chunk i became the
// current chunk. It is what keeps the nested levels aligned with this one
// during evaluation.
type chunked[C Chunk] struct {
	chunks    []C
	positions []Position
	current   int
	chunkSize int
	// reserved is the chunk-local end of the last ReserveItems call.
	reserved int

	nested Level
	alloc  func(size int) C
}

func (s *chunked[C]) init(chunkSize int, nested Level, alloc func(int) C) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if nested == nil {
		nested = Terminal{}
	}
	if nested.Depth() >= MaxDepth {
		panic(Violation("stream nested %d levels deep, limit is %d", nested.Depth()+1, MaxDepth))
	}
	s.chunkSize = chunkSize
	s.nested = nested
	s.alloc = alloc
	s.chunks = []C{alloc(chunkSize)}
	s.positions = []Position{nested.ZeroPosition()}
}

func (s *chunked[C]) level() int {
	return s.nested.Depth()
}

// Nested returns the next inner level.
func (s *chunked[C]) Nested() Level {
	return s.nested
}

func (s *chunked[C]) Depth() int {
	return s.nested.Depth() + 1
}

func (s *chunked[C]) Position() Position {
	return s.nested.Position().Wrap(Offset{Chunk: s.current, Data: s.chunks[s.current].Len()})
}

func (s *chunked[C]) ZeroPosition() Position {
	return s.nested.ZeroPosition().Wrap(Offset{})
}

// ChunkSize returns the capacity of newly allocated chunks.
func (s *chunked[C]) ChunkSize() int {
	return s.chunkSize
}

// ReserveItems declares that up to n records are about to be pushed and
// returns a handle for PushedDataCount. All n records land in the same
// chunk, which is enlarged when n exceeds its capacity.
func (s *chunked[C]) ReserveItems(n int) int {
	c := s.chunks[s.current]
	if c.Len()+n > c.Cap() {
		if c.Len() > 0 {
			s.nextChunk()
			c = s.chunks[s.current]
		}
		if c.Cap() < n {
			c.Resize(n)
		}
	}
	s.reserved = c.Len() + n
	return c.Len()
}

// Current returns the chunk that receives the next record.
func (s *chunked[C]) Current() C {
	return s.chunks[s.current]
}

// PushedDataCount returns the number of records pushed since the
// ReserveItems call that returned handle.
func (s *chunked[C]) PushedDataCount(handle int) int {
	return s.chunks[s.current].Len() - handle
}

func (s *chunked[C]) nextChunk() {
	s.current++
	if s.current == len(s.chunks) {
		s.chunks = append(s.chunks, s.alloc(s.chunkSize))
		s.positions = append(s.positions, Position{})
	} else {
		s.chunks[s.current].SetLen(0)
	}
	s.positions[s.current] = s.nested.Position()
}

// slot returns the current chunk after checking that the next record is
// covered by a reservation.
func (s *chunked[C]) slot() C {
	c := s.chunks[s.current]
	if c.Len() >= s.reserved {
		panic(Violation("push at offset %d without a covering reservation (reserved up to %d)", c.Len(), s.reserved))
	}
	return c
}

// DataSize returns the number of stored records.
func (s *chunked[C]) DataSize() int {
	n := 0
	for i := 0; i <= s.current; i++ {
		n += s.chunks[i].Len()
	}
	return n
}

// Capacity returns the number of allocated records.
func (s *chunked[C]) Capacity() int {
	n := 0
	s.ForEachChunk(func(c Chunk) {
		n += c.Cap()
	}, false)
	return n
}

// Resize allocates or releases chunks so that n records fit. Chunks in use
// are never released.
func (s *chunked[C]) Resize(n int) {
	need := max((n+s.chunkSize-1)/s.chunkSize, s.current+1)
	for len(s.chunks) < need {
		s.chunks = append(s.chunks, s.alloc(s.chunkSize))
		s.positions = append(s.positions, s.nested.ZeroPosition())
	}
	if len(s.chunks) > need {
		clear(s.chunks[need:])
		s.chunks = s.chunks[:need]
		s.positions = s.positions[:need]
	}
}

func (s *chunked[C]) Reset() {
	s.ResetTo(s.ZeroPosition())
}

func (s *chunked[C]) ResetTo(pos Position) {
	if pos.Depth() != s.Depth() {
		panic(Violation("reset to a position of depth %d on a stream of depth %d", pos.Depth(), s.Depth()))
	}
	if cur := s.Position(); pos.Compare(cur) > 0 {
		panic(Violation("reset to %v beyond the current position %v", pos, cur))
	}
	o := pos.Outer()
	for i := o.Chunk + 1; i <= s.current; i++ {
		s.chunks[i].SetLen(0)
	}
	s.current = o.Chunk
	s.chunks[s.current].SetLen(o.Data)
	s.reserved = o.Data
	s.nested.ResetTo(pos.Inner())
}

func (s *chunked[C]) ResetHard() {
	clear(s.chunks)
	s.chunks = []C{s.alloc(s.chunkSize)}
	s.positions = []Position{s.nested.ZeroPosition()}
	s.current = 0
	s.reserved = 0
	s.nested.ResetHard()
	s.positions[0] = s.nested.ZeroPosition()
}

func (s *chunked[C]) EvaluateForward(start, end Position, w *Window, fn func(*Window)) {
	l := s.level()
	so, eo := start.Outer(), end.Outer()
	cur := &w.cursors[l]
	for c := so.Chunk; c <= eo.Chunk; c++ {
		chunk := s.chunks[c]

		lo, innerStart := 0, s.positions[c]
		if c == so.Chunk {
			lo, innerStart = so.Data, start.Inner()
		}
		var (
			hi       int
			innerEnd Position
		)
		if c == eo.Chunk {
			hi, innerEnd = eo.Data, end.Inner()
		} else {
			hi, innerEnd = chunk.Len(), s.positions[c+1]
		}

		*cur = Cursor{Chunk: chunk, Pos: lo, End: hi}
		s.nested.EvaluateForward(innerStart, innerEnd, w, fn)
		if cur.Pos != hi {
			panic(Violation("forward evaluation stopped at %d of %d on level %d", cur.Pos, hi, l))
		}
	}
}

func (s *chunked[C]) EvaluateReverse(start, end Position, w *Window, fn func(*Window)) {
	l := s.level()
	so, eo := start.Outer(), end.Outer()
	cur := &w.cursors[l]
	for c := so.Chunk; c >= eo.Chunk; c-- {
		chunk := s.chunks[c]

		var (
			hi         int
			innerStart Position
		)
		if c == so.Chunk {
			hi, innerStart = so.Data, start.Inner()
		} else {
			hi, innerStart = chunk.Len(), s.positions[c+1]
		}
		lo, innerEnd := 0, s.positions[c]
		if c == eo.Chunk {
			lo, innerEnd = eo.Data, end.Inner()
		}

		*cur = Cursor{Chunk: chunk, Pos: hi, End: lo}
		s.nested.EvaluateReverse(innerStart, innerEnd, w, fn)
		if cur.Pos != lo {
			panic(Violation("reverse evaluation stopped at %d above %d on level %d", cur.Pos, lo, l))
		}
	}
}

func (s *chunked[C]) ForEachChunk(fn func(Chunk), recursive bool) {
	for _, c := range s.chunks {
		fn(c)
	}
	if recursive {
		s.nested.ForEachChunk(fn, recursive)
	}
}

// ForEachForward calls fn for every record of this level between start
// and end, in record order.
func (s *chunked[C]) ForEachForward(start, end Position, fn func(c C, i int)) {
	so, eo := start.Outer(), end.Outer()
	if so.Chunk > eo.Chunk || so.Chunk == eo.Chunk && so.Data > eo.Data {
		panic(Violation("forward iteration from %v to %v", start, end))
	}
	for c := so.Chunk; c <= eo.Chunk; c++ {
		lo, hi := 0, s.chunks[c].Len()
		if c == so.Chunk {
			lo = so.Data
		}
		if c == eo.Chunk {
			hi = eo.Data
		}
		for i := lo; i < hi; i++ {
			fn(s.chunks[c], i)
		}
	}
}

// ForEachReverse calls fn for every record of this level between start
// and end, in reverse record order.
func (s *chunked[C]) ForEachReverse(start, end Position, fn func(c C, i int)) {
	so, eo := start.Outer(), end.Outer()
	if so.Chunk < eo.Chunk || so.Chunk == eo.Chunk && so.Data < eo.Data {
		panic(Violation("reverse iteration from %v to %v", start, end))
	}
	for c := so.Chunk; c >= eo.Chunk; c-- {
		lo, hi := 0, s.chunks[c].Len()
		if c == so.Chunk {
			hi = so.Data
		}
		if c == eo.Chunk {
			lo = eo.Data
		}
		for i := hi - 1; i >= lo; i-- {
			fn(s.chunks[c], i)
		}
	}
}

// AddStats reports the size of this level.
func (s *chunked[C]) AddStats(v *stats.Values) {
	used := s.DataSize()
	entry := s.chunks[0].EntrySize()
	v.AddCount("Total number", used)
	v.AddCount("Number of chunks", len(s.chunks))
	v.AddMemory("Memory used", uint64(used*entry), true, false)
	v.AddMemory("Memory allocated", uint64(s.Capacity()*entry), false, true)
}

// swap exchanges the records of this level only. Nested levels are left in
// place and must be swapped by the owner.
func (s *chunked[C]) swap(o *chunked[C]) {
	s.chunks, o.chunks = o.chunks, s.chunks
	s.positions, o.positions = o.positions, s.positions
	s.current, o.current = o.current, s.current
	s.chunkSize, o.chunkSize = o.chunkSize, s.chunkSize
	s.reserved, o.reserved = o.reserved, s.reserved
}

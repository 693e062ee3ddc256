package stream

import (
	"cmp"
	"fmt"
	"strings"
)

// MaxDepth bounds the number of levels in a stream hierarchy.
const MaxDepth = 4

// Offset is the write offset of one level: the chunk index and the number
// of items used inside that chunk.
type Offset struct {
	Chunk int
	Data  int
}

// Position is a snapshot of the write offsets of every level in a stream
// hierarchy. Level 0 is the innermost level.
//
// Positions are plain values and can be compared with ==. Positions taken
// from the same hierarchy are totally ordered by Compare.
type Position struct {
	offsets [MaxDepth]Offset
	depth   int
}

// Root returns a single-level position.
func Root(o Offset) Position {
	return Position{}.Wrap(o)
}

// Depth returns the number of levels in the position.
func (p Position) Depth() int {
	return p.depth
}

// At returns the offset of the given level.
func (p Position) At(level int) Offset {
	if level < 0 || level >= p.depth {
		panic(Violation("level %d outside a position of depth %d", level, p.depth))
	}
	return p.offsets[level]
}

// Outer returns the offset of the outermost level.
func (p Position) Outer() Offset {
	return p.At(p.depth - 1)
}

// Inner drops the outermost level.
func (p Position) Inner() Position {
	if p.depth == 0 {
		return p
	}
	q := p
	q.depth--
	q.offsets[q.depth] = Offset{}
	return q
}

// Wrap adds o as a new outermost level.
func (p Position) Wrap(o Offset) Position {
	if p.depth == MaxDepth {
		panic(Violation("position deeper than %d levels", MaxDepth))
	}
	q := p
	q.offsets[q.depth] = o
	q.depth++
	return q
}

// Compare orders two positions of the same hierarchy along the record
// sequence. It returns -1, 0 or +1.
func (p Position) Compare(q Position) int {
	if p.depth != q.depth {
		panic(Violation("comparing positions of depth %d and %d", p.depth, q.depth))
	}
	for l := p.depth - 1; l >= 0; l-- {
		if c := cmp.Compare(p.offsets[l].Chunk, q.offsets[l].Chunk); c != 0 {
			return c
		}
		if c := cmp.Compare(p.offsets[l].Data, q.offsets[l].Data); c != 0 {
			return c
		}
	}
	return 0
}

// String formats the position outermost level first, e.g. "[0:12 1:3 7]".
func (p Position) String() string {
	parts := make([]string, 0, p.depth)
	for l := p.depth - 1; l >= 0; l-- {
		o := p.offsets[l]
		if o.Chunk == 0 && l == 0 {
			parts = append(parts, fmt.Sprint(o.Data))
			continue
		}
		parts = append(parts, fmt.Sprintf("%d:%d", o.Chunk, o.Data))
	}
	return "[" + strings.Join(parts, " ") + "]"
}

package stream

import "unsafe"

// Chunk is a fixed-capacity block of records stored column by column.
type Chunk interface {
	// Len returns the number of used records.
	Len() int
	// Cap returns the number of allocated records.
	Cap() int
	// SetLen truncates or extends the used part. Data is not cleared.
	SetLen(n int)
	// Resize reallocates the chunk with capacity n.
	Resize(n int)
	// EntrySize returns the size of one record in bytes.
	EntrySize() int
}

// Chunk1 stores single-field records.
type Chunk1[A any] struct {
	Data []A
	used int
}

// NewChunk1 allocates a chunk with room for size records.
func NewChunk1[A any](size int) *Chunk1[A] {
	return &Chunk1[A]{Data: make([]A, size)}
}

func (c *Chunk1[A]) Len() int { return c.used }
func (c *Chunk1[A]) Cap() int { return len(c.Data) }

func (c *Chunk1[A]) SetLen(n int) {
	checkLen(n, len(c.Data))
	c.used = n
}

func (c *Chunk1[A]) Resize(n int) {
	data := make([]A, n)
	c.used = copy(data, c.Data[:min(c.used, n)])
	c.Data = data
}

func (c *Chunk1[A]) EntrySize() int {
	var a A
	return int(unsafe.Sizeof(a))
}

func (c *Chunk1[A]) push(a A) {
	c.Data[c.used] = a
	c.used++
}

// Chunk2 stores two-field records in two parallel columns.
type Chunk2[A, B any] struct {
	First  []A
	Second []B
	used   int
}

// NewChunk2 allocates a chunk with room for size records.
func NewChunk2[A, B any](size int) *Chunk2[A, B] {
	return &Chunk2[A, B]{First: make([]A, size), Second: make([]B, size)}
}

func (c *Chunk2[A, B]) Len() int { return c.used }
func (c *Chunk2[A, B]) Cap() int { return len(c.First) }

func (c *Chunk2[A, B]) SetLen(n int) {
	checkLen(n, len(c.First))
	c.used = n
}

func (c *Chunk2[A, B]) Resize(n int) {
	first := make([]A, n)
	second := make([]B, n)
	keep := min(c.used, n)
	copy(first, c.First[:keep])
	copy(second, c.Second[:keep])
	c.First, c.Second, c.used = first, second, keep
}

func (c *Chunk2[A, B]) EntrySize() int {
	var (
		a A
		b B
	)
	return int(unsafe.Sizeof(a) + unsafe.Sizeof(b))
}

func (c *Chunk2[A, B]) push(a A, b B) {
	c.First[c.used] = a
	c.Second[c.used] = b
	c.used++
}

func checkLen(n, capacity int) {
	if n < 0 || n > capacity {
		panic(Violation("chunk length %d outside [0, %d]", n, capacity))
	}
}

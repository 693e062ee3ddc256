package stream

// Stream1 is a chunked stream of single-field records.
type Stream1[A any] struct {
	chunked[*Chunk1[A]]
}

// NewStream1 creates a stream nested on nested. A nil nested level is
// replaced by Terminal.
func NewStream1[A any](chunkSize int, nested Level) *Stream1[A] {
	s := &Stream1[A]{}
	s.init(chunkSize, nested, NewChunk1[A])
	return s
}

// PushData appends one record. It must be covered by ReserveItems.
func (s *Stream1[A]) PushData(a A) {
	s.slot().push(a)
}

// Swap exchanges the records of this level with o.
func (s *Stream1[A]) Swap(o *Stream1[A]) {
	s.swap(&o.chunked)
}

// Stream2 is a chunked stream of two-field records.
type Stream2[A, B any] struct {
	chunked[*Chunk2[A, B]]
}

// NewStream2 creates a stream nested on nested. A nil nested level is
// replaced by Terminal.
func NewStream2[A, B any](chunkSize int, nested Level) *Stream2[A, B] {
	s := &Stream2[A, B]{}
	s.init(chunkSize, nested, NewChunk2[A, B])
	return s
}

// PushData appends one record. It must be covered by ReserveItems.
func (s *Stream2[A, B]) PushData(a A, b B) {
	s.slot().push(a, b)
}

// Swap exchanges the records of this level with o.
func (s *Stream2[A, B]) Swap(o *Stream2[A, B]) {
	s.swap(&o.chunked)
}

// Package tape records statements and replays them to propagate
// derivatives.
//
// A Tape keeps two streams nested on its index manager:
//
//	arguments   Stream2[partial, identifier]      one entry per argument
//	statements  Stream1[size]                     Linear policy
//	            Stream2[identifier, size]         Reuse policy
//	indices     index.Linear or index.Reuse
//
// Under the Linear policy the output identifier of a statement is implied by
// its position: the identifier counter advances exactly once per statement.
//
// Usage:
//
//	var f expr.Ops[numeric.Float]
//	t := tape.New[numeric.Float](tape.DefaultOptions())
//	t.SetActive()
//	var x, y tape.Active[numeric.Float]
//	x.SetValue(2)
//	t.RegisterInput(&x)
//	t.Store(&y, f.Sin(&x))
//	t.RegisterOutput(&y)
//	t.SetPassive()
//	t.Gradient(y.Identifier())[0] = 1
//	t.Evaluate(t.Position(), t.ZeroPosition())
//	dx := t.Gradient(x.Identifier())[0]
package tape

import (
	"fmt"
	"unsafe"

	"github.com/born-ml/adtape/internal/events"
	"github.com/born-ml/adtape/internal/index"
	"github.com/born-ml/adtape/internal/numeric"
	"github.com/born-ml/adtape/internal/stats"
	"github.com/born-ml/adtape/internal/stream"
)

// ArgumentSize is the number of arguments of one statement.
type ArgumentSize uint8

const (
	// MaxArguments is the largest number of arguments of one statement.
	MaxArguments = 254
	// InputTag marks the statement of a registered input under the Linear
	// policy.
	InputTag ArgumentSize = 255
)

// Options configures a tape.
type Options struct {
	// ChunkSize is the number of records per stream chunk.
	ChunkSize int
	Policy    index.Policy
	// Width is the number of adjoint or tangent directions per identifier.
	Width int

	// CheckZeroIndex skips arguments whose identifier is passive.
	CheckZeroIndex bool
	// IgnoreInvalidJacobians skips non-finite partials.
	IgnoreInvalidJacobians bool
	// CheckJacobianIsZero skips zero partials.
	CheckJacobianIsZero bool
	// SkipZeroAdjointEvaluation skips statements with a zero output adjoint
	// during reverse replay.
	SkipZeroAdjointEvaluation bool
	// RemoveDuplicateJacobianArguments merges arguments with the same
	// identifier before a statement is committed.
	RemoveDuplicateJacobianArguments bool
	// CopyOptimization lets copies share an identifier where the index
	// policy allows it.
	CopyOptimization bool
	// ReversalZeroesAdjoints zeroes output adjoints during reverse replay
	// under the Linear policy. Reuse always zeroes them.
	ReversalZeroesAdjoints bool
	SortIndicesOnReset     bool

	Events *events.Registry
}

// DefaultOptions returns the options of a Linear tape with scalar adjoints.
func DefaultOptions() Options {
	return Options{
		ChunkSize:                 stream.DefaultChunkSize,
		Policy:                    index.PolicyLinear,
		Width:                     1,
		CheckZeroIndex:            true,
		IgnoreInvalidJacobians:    true,
		CheckJacobianIsZero:       true,
		SkipZeroAdjointEvaluation: true,
		CopyOptimization:          true,
		SortIndicesOnReset:        true,
	}
}

type statementLevel interface {
	stream.Level
	ReserveItems(n int) int
	DataSize() int
	Capacity() int
	Resize(n int)
	AddStats(v *stats.Values)
}

// Tape records and replays statements over values of type T.
//
// A tape is not safe for concurrent use.
type Tape[T numeric.Real[T]] struct {
	opts    Options
	width   int
	linear  bool
	active  bool
	indices index.Manager

	// Exactly one of linearStmts and reuseStmts is set; stmts is that one.
	linearStmts *stream.Stream1[ArgumentSize]
	reuseStmts  *stream.Stream2[index.Identifier, ArgumentSize]
	stmts       statementLevel
	arguments   *stream.Stream2[T, index.Identifier]

	adjoints []T
	// scratch holds one seed or tangent of width entries during replay.
	scratch []T
	merge   []argument[T]
	push    func(id index.Identifier, jac T)

	events *events.Registry
}

// New creates an empty, passive tape.
func New[T numeric.Real[T]](opts Options) *Tape[T] {
	if opts.Width <= 0 {
		opts.Width = 1
	}
	t := &Tape[T]{
		opts:    opts,
		width:   opts.Width,
		indices: index.New(opts.Policy, opts.SortIndicesOnReset),
		scratch: make([]T, opts.Width),
		events:  opts.Events,
	}
	t.linear = t.indices.IsLinear()
	if t.linear {
		t.linearStmts = stream.NewStream1[ArgumentSize](opts.ChunkSize, t.indices)
		t.stmts = t.linearStmts
	} else {
		t.reuseStmts = stream.NewStream2[index.Identifier, ArgumentSize](opts.ChunkSize, t.indices)
		t.stmts = t.reuseStmts
	}
	t.arguments = stream.NewStream2[T, index.Identifier](opts.ChunkSize, t.stmts)
	t.push = t.pushArgument
	return t
}

// Options returns the options the tape was created with.
func (t *Tape[T]) Options() Options {
	return t.opts
}

// Width returns the number of directions per identifier.
func (t *Tape[T]) Width() int {
	return t.width
}

// Policy returns the index management policy.
func (t *Tape[T]) Policy() index.Policy {
	if t.linear {
		return index.PolicyLinear
	}
	return index.PolicyReuse
}

// Events returns the registry the tape notifies, possibly nil.
func (t *Tape[T]) Events() *events.Registry {
	return t.events
}

// SetEvents replaces the registry the tape notifies.
func (t *Tape[T]) SetEvents(r *events.Registry) {
	t.events = r
}

// SetActive starts recording.
func (t *Tape[T]) SetActive() {
	t.active = true
	t.notify(events.StartRecording)
}

// SetPassive stops recording.
func (t *Tape[T]) SetPassive() {
	t.active = false
	t.notify(events.StopRecording)
}

// IsActive reports whether the tape is recording.
func (t *Tape[T]) IsActive() bool {
	return t.active
}

// LargestIdentifier returns the largest identifier the adjoint vector must
// cover.
func (t *Tape[T]) LargestIdentifier() index.Identifier {
	return t.indices.LargestAssignedIndex()
}

// Swap exchanges the recorded data, the identifiers and the adjoint vector
// with other. Both tapes must use the same policy and width.
func (t *Tape[T]) Swap(other *Tape[T]) {
	if t.linear != other.linear || t.width != other.width {
		panic(stream.Violation("swapping tapes with policies %s/%s and widths %d/%d",
			t.Policy(), other.Policy(), t.width, other.width))
	}
	t.arguments.Swap(other.arguments)
	if t.linear {
		t.linearStmts.Swap(other.linearStmts)
	} else {
		t.reuseStmts.Swap(other.reuseStmts)
	}
	t.indices.Swap(other.indices)
	t.adjoints, other.adjoints = other.adjoints, t.adjoints
}

// Stats reports the size of every part of the tape.
func (t *Tape[T]) Stats() *stats.Values {
	v := stats.New(fmt.Sprintf("Jacobian tape (%s index policy)", t.Policy()))

	var zero T
	entry := uint64(unsafe.Sizeof(zero))
	v.AddSection("Adjoint vector")
	v.AddCount("Number of adjoints", len(t.adjoints)/t.width)
	v.AddCount("Vector width", t.width)
	v.AddMemory("Memory allocated", uint64(cap(t.adjoints))*entry, false, true)

	t.indices.AddStats(v)

	v.AddSection("Statement entries")
	t.stmts.AddStats(v)

	v.AddSection("Jacobian entries")
	t.arguments.AddStats(v)
	return v
}

func (t *Tape[T]) notify(k events.Kind) {
	if t.events.Enabled(k) {
		t.events.Notify(&events.Event{Kind: k, Tape: t})
	}
}

func (t *Tape[T]) notifyIdentifier(k events.Kind, id index.Identifier, value float64) {
	if t.events.Enabled(k) {
		t.events.Notify(&events.Event{Kind: k, Tape: t, Identifier: id, Value: value})
	}
}

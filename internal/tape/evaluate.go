package tape

import (
	"github.com/born-ml/adtape/internal/events"
	"github.com/born-ml/adtape/internal/index"
	"github.com/born-ml/adtape/internal/stream"
)

// Window levels of a tape.
const (
	levelIndex = iota
	levelStatement
	levelArgument
)

// Evaluate runs a reverse sweep from start back to end over the tape's own
// adjoint vector. start must not precede end.
//
// For every statement the adjoint of the output is multiplied with each
// partial and added to the adjoint of the argument. Statements whose output
// adjoint is zero are skipped when SkipZeroAdjointEvaluation is set.
func (t *Tape[T]) Evaluate(start, end stream.Position) {
	t.ensureAdjoints()
	t.EvaluateWith(start, end, t.adjoints)
}

// EvaluateForward runs a forward sweep from start to end over the tape's
// own vector, which then holds tangents. start must not follow end.
func (t *Tape[T]) EvaluateForward(start, end stream.Position) {
	t.ensureAdjoints()
	t.EvaluateForwardWith(start, end, t.adjoints)
}

// EvaluateKeepState runs Evaluate. A Jacobian tape has no primal state to
// restore afterwards.
func (t *Tape[T]) EvaluateKeepState(start, end stream.Position) {
	t.Evaluate(start, end)
}

// EvaluateForwardKeepState runs EvaluateForward.
func (t *Tape[T]) EvaluateForwardKeepState(start, end stream.Position) {
	t.EvaluateForward(start, end)
}

// EvaluateWith runs a reverse sweep over buf, which must hold Width
// entries for every identifier up to LargestIdentifier.
func (t *Tape[T]) EvaluateWith(start, end stream.Position, buf []T) {
	if start.Compare(end) < 0 {
		panic(stream.Violation("reverse evaluation from %v to the later position %v", start, end))
	}
	t.checkBuffer(buf)
	t.notifyEvaluate(start, end, false)

	var w stream.Window
	t.arguments.EvaluateReverse(start, end, &w, func(w *stream.Window) {
		t.reverseWindow(w, buf)
	})
}

// EvaluateForwardWith runs a forward sweep over buf.
func (t *Tape[T]) EvaluateForwardWith(start, end stream.Position, buf []T) {
	if start.Compare(end) > 0 {
		panic(stream.Violation("forward evaluation from %v to the earlier position %v", start, end))
	}
	t.checkBuffer(buf)
	t.notifyEvaluate(start, end, true)

	var w stream.Window
	t.arguments.EvaluateForward(start, end, &w, func(w *stream.Window) {
		t.forwardWindow(w, buf)
	})
}

func (t *Tape[T]) checkBuffer(buf []T) {
	if need := (int(t.LargestIdentifier()) + 1) * t.width; len(buf) < need {
		panic(stream.Violation("derivative buffer holds %d entries, tape needs %d", len(buf), need))
	}
}

func (t *Tape[T]) notifyEvaluate(start, end stream.Position, forward bool) {
	if t.events.Enabled(events.Evaluate) {
		t.events.Notify(&events.Event{Kind: events.Evaluate, Tape: t, Start: start, End: end, Forward: forward})
	}
}

// statementCursor walks the statements of one window and yields the output
// identifier and argument count of each.
type statementCursor struct {
	idx, stmt *stream.Cursor
	sizes     []ArgumentSize
	lhs       []index.Identifier
}

func (t *Tape[T]) statements(w *stream.Window) statementCursor {
	c := statementCursor{idx: w.Cursor(levelIndex), stmt: w.Cursor(levelStatement)}
	if t.linear {
		c.sizes = c.stmt.Chunk.(*stream.Chunk1[ArgumentSize]).Data
	} else {
		chunk := c.stmt.Chunk.(*stream.Chunk2[index.Identifier, ArgumentSize])
		c.lhs, c.sizes = chunk.First, chunk.Second
	}
	return c
}

// prev moves to the previous statement.
func (c *statementCursor) prev() (index.Identifier, ArgumentSize, bool) {
	if c.stmt.Pos <= c.stmt.End {
		return 0, 0, false
	}
	c.stmt.Pos--
	n := c.sizes[c.stmt.Pos]
	if c.lhs == nil {
		id := index.Identifier(c.idx.Pos)
		c.idx.Pos--
		return id, n, true
	}
	return c.lhs[c.stmt.Pos], n, true
}

// next moves to the next statement.
func (c *statementCursor) next() (index.Identifier, ArgumentSize, bool) {
	if c.stmt.Pos >= c.stmt.End {
		return 0, 0, false
	}
	n := c.sizes[c.stmt.Pos]
	c.stmt.Pos++
	if c.lhs == nil {
		c.idx.Pos++
		return index.Identifier(c.idx.Pos), n, true
	}
	return c.lhs[c.stmt.Pos-1], n, true
}

func (t *Tape[T]) reverseWindow(w *stream.Window, adj []T) {
	args := w.Cursor(levelArgument)
	chunk := args.Chunk.(*stream.Chunk2[T, index.Identifier])
	jacs, ids := chunk.First, chunk.Second
	stmts := t.statements(w)

	width := t.width
	seed := t.scratch
	zeroLHS := !t.linear || t.opts.ReversalZeroesAdjoints

	for {
		lhs, n, ok := stmts.prev()
		if !ok {
			break
		}
		if n == InputTag {
			continue
		}

		out := adj[int(lhs)*width : int(lhs)*width+width]
		if t.opts.SkipZeroAdjointEvaluation && allZero(out) {
			args.Pos -= int(n)
			continue
		}
		copy(seed, out)
		if zeroLHS {
			clear(out)
		}

		for k := 0; k < int(n); k++ {
			args.Pos--
			base := int(ids[args.Pos]) * width
			jac := jacs[args.Pos]
			for d := 0; d < width; d++ {
				adj[base+d] = adj[base+d].FMA(jac, seed[d])
			}
		}
	}
}

func (t *Tape[T]) forwardWindow(w *stream.Window, tan []T) {
	args := w.Cursor(levelArgument)
	chunk := args.Chunk.(*stream.Chunk2[T, index.Identifier])
	jacs, ids := chunk.First, chunk.Second
	stmts := t.statements(w)

	width := t.width
	acc := t.scratch

	for {
		lhs, n, ok := stmts.next()
		if !ok {
			break
		}
		if n == InputTag {
			continue
		}

		clear(acc)
		for k := 0; k < int(n); k++ {
			base := int(ids[args.Pos]) * width
			jac := jacs[args.Pos]
			for d := 0; d < width; d++ {
				acc[d] = acc[d].FMA(jac, tan[base+d])
			}
			args.Pos++
		}
		copy(tan[int(lhs)*width:], acc)
	}
}

func allZero[T interface{ IsZero() bool }](v []T) bool {
	for _, x := range v {
		if !x.IsZero() {
			return false
		}
	}
	return true
}

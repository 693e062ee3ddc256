package tape

import (
	"cmp"
	"slices"

	"github.com/born-ml/adtape/internal/events"
	"github.com/born-ml/adtape/internal/index"
	"github.com/born-ml/adtape/internal/stream"
)

type argument[T any] struct {
	jac T
	id  index.Identifier
}

// Store records lhs = rhs.
//
// Partials that are zero, non-finite or taken with respect to passive
// values are dropped according to the options. If nothing is left the
// statement is not recorded and lhs becomes passive. The primal value is
// always written.
func (t *Tape[T]) Store(lhs *Active[T], rhs Expression[T]) {
	value := rhs.Value()
	if !t.active {
		t.freeIndex(&lhs.id)
		lhs.value = value
		return
	}

	maxArgs := rhs.MaxArgs()
	if maxArgs > MaxArguments {
		panic(stream.Violation("statement with up to %d arguments, limit is %d", maxArgs, MaxArguments))
	}

	t.stmts.ReserveItems(1)
	handle := t.arguments.ReserveItems(maxArgs)

	var zero T
	rhs.Jacobians(zero.FromFloat(1), t.push)
	rhs.Delayed(t.push)
	if t.opts.RemoveDuplicateJacobianArguments {
		t.mergeArguments(handle)
	}

	if n := t.arguments.PushedDataCount(handle); n > 0 {
		t.commit(&lhs.id, ArgumentSize(n))
	} else {
		t.freeIndex(&lhs.id)
	}
	lhs.value = value
}

// StoreCopy records lhs = rhs. With CopyOptimization on a Linear tape lhs
// shares the identifier of rhs and nothing is recorded.
func (t *Tape[T]) StoreCopy(lhs, rhs *Active[T]) {
	if t.active && t.opts.CopyOptimization && !t.indices.CopyNeedsStatement() {
		t.indices.CopyIndex(&lhs.id, rhs.id)
		lhs.value = rhs.value
		return
	}
	t.Store(lhs, rhs)
}

// StorePassive makes lhs a passive variable holding v.
func (t *Tape[T]) StorePassive(lhs *Active[T], v T) {
	t.freeIndex(&lhs.id)
	lhs.value = v
}

// RegisterInput turns v into an independent variable with a fresh
// identifier. Under the Linear policy the input is marked on the tape.
func (t *Tape[T]) RegisterInput(v *Active[T]) {
	if t.linear {
		t.stmts.ReserveItems(1)
		t.indices.AssignUnusedIndex(&v.id)
		t.linearStmts.PushData(InputTag)
	} else {
		t.indices.AssignUnusedIndex(&v.id)
	}
	t.notifyIdentifier(events.IndexAssign, v.id, v.value.Float())
	t.notifyIdentifier(events.RegisterInput, v.id, v.value.Float())
}

// RegisterExternalFunctionOutput registers v as computed outside the tape.
// A Jacobian tape treats it as an input and, keeping no primal values,
// returns the zero value as the previous primal.
func (t *Tape[T]) RegisterExternalFunctionOutput(v *Active[T]) T {
	t.RegisterInput(v)
	var zero T
	return zero
}

// RegisterOutput records v = v for an active v. Under the Linear policy
// this gives v an identifier no other variable shares.
func (t *Tape[T]) RegisterOutput(v *Active[T]) {
	if t.active && v.IsActive() {
		t.Store(v, v)
	}
	t.notifyIdentifier(events.RegisterOutput, v.id, v.value.Float())
}

// StoreManual starts a statement whose n partials are pushed by the caller
// with PushJacobianManual. The tape must be active.
func (t *Tape[T]) StoreManual(value T, lhs *Active[T], n int) {
	if !t.active {
		panic(stream.Violation("manual statement on a passive tape"))
	}
	if n < 0 || n > MaxArguments {
		panic(stream.Violation("manual statement with %d arguments, limit is %d", n, MaxArguments))
	}
	t.stmts.ReserveItems(1)
	t.arguments.ReserveItems(n)
	t.commit(&lhs.id, ArgumentSize(n))
	lhs.value = value
}

// PushJacobianManual pushes one partial of the statement started by
// StoreManual. No filtering is applied.
func (t *Tape[T]) PushJacobianManual(jac T, id index.Identifier) {
	t.arguments.PushData(jac, id)
}

// Destroy releases the identifier of a variable that goes out of use.
func (t *Tape[T]) Destroy(v *Active[T]) {
	t.freeIndex(&v.id)
}

func (t *Tape[T]) pushArgument(id index.Identifier, jac T) {
	if t.opts.CheckZeroIndex && !index.Valid(id) {
		return
	}
	if t.opts.IgnoreInvalidJacobians && !jac.IsFinite() {
		return
	}
	if t.opts.CheckJacobianIsZero && jac.IsZero() {
		return
	}
	t.arguments.PushData(jac, id)
}

// commit assigns the output identifier and pushes the statement record.
func (t *Tape[T]) commit(lhs *index.Identifier, n ArgumentSize) {
	if t.indices.AssignIndex(lhs) {
		t.notifyIdentifier(events.IndexAssign, *lhs, 0)
	}
	if t.linear {
		t.linearStmts.PushData(n)
	} else {
		t.reuseStmts.PushData(*lhs, n)
	}
}

func (t *Tape[T]) freeIndex(id *index.Identifier) {
	if index.Valid(*id) && t.events.Enabled(events.IndexFree) {
		t.notifyIdentifier(events.IndexFree, *id, 0)
	}
	t.indices.FreeIndex(id)
}

// mergeArguments sums the partials of arguments pushed since handle that
// share an identifier.
func (t *Tape[T]) mergeArguments(handle int) {
	c := t.arguments.Current()
	end := c.Len()
	if end-handle < 2 {
		return
	}

	t.merge = t.merge[:0]
	for i := handle; i < end; i++ {
		t.merge = append(t.merge, argument[T]{jac: c.First[i], id: c.Second[i]})
	}
	slices.SortStableFunc(t.merge, func(a, b argument[T]) int {
		return cmp.Compare(a.id, b.id)
	})

	out := handle
	for i := 0; i < len(t.merge); {
		a := t.merge[i]
		for i++; i < len(t.merge) && t.merge[i].id == a.id; i++ {
			a.jac = a.jac.Add(t.merge[i].jac)
		}
		if t.opts.CheckJacobianIsZero && a.jac.IsZero() {
			continue
		}
		c.First[out], c.Second[out] = a.jac, a.id
		out++
	}
	c.SetLen(out)
}

// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package autodiff provides tape-based algorithmic differentiation.
//
// A Tape records every statement computed on active variables as the
// partial derivatives of its output with respect to its arguments. A
// reverse sweep over the recording yields gradients, a forward sweep yields
// directional derivatives.
//
// Example:
//
//	import (
//	    "github.com/born-ml/adtape/autodiff"
//	    "github.com/born-ml/adtape/expr"
//	)
//
//	func main() {
//	    t := autodiff.New[autodiff.Float](autodiff.DefaultOptions())
//	    var f expr.Ops[autodiff.Float]
//
//	    var a, b, y autodiff.Active[autodiff.Float]
//	    a.SetValue(2)
//	    b.SetValue(3)
//
//	    t.SetActive()
//	    t.RegisterInput(&a)
//	    t.RegisterInput(&b)
//	    t.Store(&y, f.Sin(f.Mul(&a, &b)))  // Statement recorded on tape
//	    t.RegisterOutput(&y)
//	    t.SetPassive()
//
//	    // Compute gradients
//	    t.SetGradient(y.Identifier(), 1)
//	    t.Evaluate(t.Position(), t.ZeroPosition())
//	    da := t.GetGradient(a.Identifier())[0]
//	}
package autodiff

import (
	"github.com/born-ml/adtape/internal/config"
	"github.com/born-ml/adtape/internal/events"
	"github.com/born-ml/adtape/internal/index"
	"github.com/born-ml/adtape/internal/numeric"
	"github.com/born-ml/adtape/internal/stream"
	"github.com/born-ml/adtape/internal/tape"
)

// Value types.
type (
	// Real is the constraint on values a tape can store.
	Real[T any] = numeric.Real[T]
	// Number extends Real with the arithmetic expressions need.
	Number[T any] = numeric.Number[T]
	// Float is a float64 value.
	Float = numeric.Float
	// Dual is a float64 value with one tangent, for second derivatives.
	Dual = numeric.Dual
)

// Tape records statements over values of type T.
type Tape[T Real[T]] = tape.Tape[T]

// Active is a variable whose computations a tape can record.
type Active[T any] = tape.Active[T]

// Expression is the right-hand side of a statement.
type Expression[T any] = tape.Expression[T]

// Shared is a variable used many times in one statement whose partials are
// pushed once.
type Shared[T tape.Zeroer[T]] = tape.Shared[T]

// Options configures a tape.
type Options = tape.Options

// Identifier is the handle a tape gives an active variable.
type Identifier = index.Identifier

// Policy selects how identifiers are issued.
type Policy = index.Policy

// Index policies.
const (
	PolicyLinear = index.PolicyLinear
	PolicyReuse  = index.PolicyReuse
)

// Position is a snapshot of a recording.
type Position = stream.Position

// Parameter names a size of a tape.
type Parameter = tape.Parameter

// Tape parameters.
const (
	AdjointSize       = tape.AdjointSize
	ArgumentCapacity  = tape.ArgumentCapacity
	LargestIdentifier = tape.LargestIdentifier
	StatementCapacity = tape.StatementCapacity
)

// Errors.
var (
	// ErrContract is wrapped by the values of panics raised on API misuse.
	ErrContract = stream.ErrContract
	// ErrUnsupported is returned for primal operations of a Jacobian tape.
	ErrUnsupported = tape.ErrUnsupported
)

// Registry holds tape event listeners.
type Registry = events.Registry

// Event describes one tape notification.
type Event = events.Event

// EventKind identifies a tape lifecycle point.
type EventKind = events.Kind

// Event kinds.
const (
	StartRecording = events.StartRecording
	StopRecording  = events.StopRecording
	RegisterInput  = events.RegisterInput
	RegisterOutput = events.RegisterOutput
	Evaluate       = events.Evaluate
	Reset          = events.Reset
	IndexAssign    = events.IndexAssign
	IndexFree      = events.IndexFree
)

// DefaultOptions returns the options of a Linear tape with scalar adjoints.
func DefaultOptions() Options {
	return tape.DefaultOptions()
}

// New creates a tape.
func New[T Real[T]](opts Options) *Tape[T] {
	return tape.New[T](opts)
}

// NewFromEnv creates a tape configured by the ADTAPE_ environment variables.
// The tape notifies a registry gated by the same variables.
func NewFromEnv[T Real[T]]() (*Tape[T], error) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, err
	}
	return tape.New[T](cfg.TapeOptions(cfg.Registry())), nil
}

// NewRegistry creates an event registry with both gates open.
func NewRegistry() *Registry {
	return events.NewRegistry()
}

// Share wraps a for repeated use in one statement.
func Share[T tape.Zeroer[T]](a *Active[T]) *Shared[T] {
	return tape.Share(a)
}

// Seed returns a dual number with a unit tangent.
func Seed(v float64) Dual {
	return numeric.Seed(v)
}

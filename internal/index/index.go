// Package index manages the identifiers that name derivative slots.
//
// Two policies are provided. Linear hands out strictly increasing
// identifiers and reclaims them only when the tape is reset. Reuse keeps a
// free list and reissues identifiers as soon as their variables are gone.
//
// A Manager is also the innermost level of a tape's stream hierarchy. Linear
// contributes its counter to every stream.Position, which is what lets a
// tape leave the output identifier of a statement implicit. Reuse has no
// position of its own.
package index

import (
	"github.com/born-ml/adtape/internal/stats"
	"github.com/born-ml/adtape/internal/stream"
)

// Identifier names a derivative slot.
type Identifier int

const (
	// Unused marks a passive value. It is never issued as a live handle.
	Unused Identifier = 0
	// Invalid marks a handle that must not be used to address a slot.
	Invalid Identifier = -1
)

// Policy selects an index management strategy.
type Policy string

const (
	PolicyLinear Policy = "linear"
	PolicyReuse  Policy = "reuse"
)

// Manager assigns, copies and frees identifiers.
type Manager interface {
	stream.Level

	// AssignIndex makes id a live identifier. It reports whether a new
	// identifier was generated.
	AssignIndex(id *Identifier) bool
	// AssignUnusedIndex always issues an identifier that no variable holds.
	AssignUnusedIndex(id *Identifier) bool
	// CopyIndex gives lhs the identity of rhs. Only valid when
	// CopyNeedsStatement is false.
	CopyIndex(lhs *Identifier, rhs Identifier)
	// FreeIndex releases id and sets it to Unused.
	FreeIndex(id *Identifier)
	// LargestAssignedIndex is the highest identifier issued since the last
	// reset. The adjoint vector must cover it.
	LargestAssignedIndex() Identifier
	// CopyNeedsStatement reports whether a copy must be recorded as a
	// statement instead of aliasing the identifier.
	CopyNeedsStatement() bool
	// IsLinear reports whether identifiers follow the statement order.
	IsLinear() bool
	Swap(other Manager)
	AddStats(v *stats.Values)
}

// New creates a manager for the given policy.
func New(p Policy, sortOnReset bool) Manager {
	switch p {
	case PolicyReuse:
		return NewReuse(sortOnReset)
	case PolicyLinear, "":
		return NewLinear()
	default:
		panic(stream.Violation("unknown index policy %q", p))
	}
}

// Valid reports whether id addresses a derivative slot.
func Valid(id Identifier) bool {
	return id > Unused
}

// Package events is the notification hook of a tape.
//
// Listeners subscribe per event kind and are called synchronously, in
// registration order. Workflow events (recording, registration, evaluation,
// reset) and identifier events are gated separately; a tape asks Enabled
// before it builds an event, so a kind nobody listens to costs one branch.
package events

import (
	"fmt"

	"github.com/born-ml/adtape/internal/index"
	"github.com/born-ml/adtape/internal/stats"
	"github.com/born-ml/adtape/internal/stream"
)

// Kind identifies a lifecycle point.
type Kind int

const (
	StartRecording Kind = iota
	StopRecording
	RegisterInput
	RegisterOutput
	Evaluate
	Reset
	IndexAssign
	IndexFree

	numKinds
)

var kindNames = [numKinds]string{
	StartRecording: "start_recording",
	StopRecording:  "stop_recording",
	RegisterInput:  "register_input",
	RegisterOutput: "register_output",
	Evaluate:       "evaluate",
	Reset:          "reset",
	IndexAssign:    "index_assign",
	IndexFree:      "index_free",
}

func (k Kind) String() string {
	if k < 0 || k >= numKinds {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// LowLevel reports whether k fires per identifier rather than per workflow
// step.
func (k Kind) LowLevel() bool {
	return k == IndexAssign || k == IndexFree
}

// Kinds returns every event kind.
func Kinds() []Kind {
	out := make([]Kind, numKinds)
	for i := range out {
		out[i] = Kind(i)
	}
	return out
}

// Inspector is the read-only view of a tape handed to listeners.
type Inspector interface {
	IsActive() bool
	Position() stream.Position
	LargestIdentifier() index.Identifier
	Stats() *stats.Values
}

// Event describes one notification. Fields that do not apply to Kind are
// zero.
type Event struct {
	Kind Kind
	Tape Inspector

	// Identifier is set for registration and index events.
	Identifier index.Identifier
	// Value is the primal value of a registered input or output.
	Value float64

	// Start and End bound an evaluation. Start is also the reset target.
	Start stream.Position
	End   stream.Position
	// Forward is set for forward evaluations.
	Forward bool
	// ClearAdjoints is set when a reset also cleared the adjoint vector.
	ClearAdjoints bool
}

// Listener receives events. It must not keep the event after returning.
type Listener func(e *Event)

package tape

import (
	"fmt"

	"github.com/born-ml/adtape/internal/stream"
)

// Parameter names a tunable or observable size of a tape.
type Parameter int

const (
	// AdjointSize is the number of identifiers the adjoint vector covers.
	AdjointSize Parameter = iota
	// ArgumentCapacity is the number of allocated argument entries.
	ArgumentCapacity
	// LargestIdentifier is the largest assigned identifier. Read-only.
	LargestIdentifier
	// StatementCapacity is the number of allocated statement entries.
	StatementCapacity
)

func (p Parameter) String() string {
	switch p {
	case AdjointSize:
		return "AdjointSize"
	case ArgumentCapacity:
		return "ArgumentCapacity"
	case LargestIdentifier:
		return "LargestIdentifier"
	case StatementCapacity:
		return "StatementCapacity"
	default:
		return fmt.Sprintf("Parameter(%d)", int(p))
	}
}

// Parameter returns the current value of p.
func (t *Tape[T]) Parameter(p Parameter) int {
	switch p {
	case AdjointSize:
		return len(t.adjoints) / t.width
	case ArgumentCapacity:
		return t.arguments.Capacity()
	case LargestIdentifier:
		return int(t.LargestIdentifier())
	case StatementCapacity:
		return t.stmts.Capacity()
	default:
		panic(stream.Violation("unknown tape parameter %v", p))
	}
}

// SetParameter resizes the storage behind p. Setting a read-only parameter
// is a contract violation.
func (t *Tape[T]) SetParameter(p Parameter, v int) {
	if v < 0 {
		panic(stream.Violation("negative value %d for %v", v, p))
	}
	switch p {
	case AdjointSize:
		t.resizeAdjoints(v)
	case ArgumentCapacity:
		t.arguments.Resize(v)
	case StatementCapacity:
		t.stmts.Resize(v)
	case LargestIdentifier:
		panic(stream.Violation("parameter %v is read-only", p))
	default:
		panic(stream.Violation("unknown tape parameter %v", p))
	}
}

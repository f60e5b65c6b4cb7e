package flow

import (
	"fmt"
	"strings"

	"github.com/joeycumines/reactree/internal/world"
)

// Outcome is the terminal result of a node run.
type Outcome uint8

const (
	// Success is the outcome of a node that achieved what it set out to do.
	Success Outcome = iota + 1
	// Failure is the outcome of a node that did not.
	Failure
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case Failure:
		return "failure"
	default:
		return fmt.Sprintf("Outcome(%d)", uint8(o))
	}
}

// Valid reports whether o is Success or Failure.
func (o Outcome) Valid() bool { return o == Success || o == Failure }

// Invert swaps Success and Failure.
func (o Outcome) Invert() Outcome {
	if o == Success {
		return Failure
	}
	return Success
}

// MarshalText implements encoding.TextMarshaler.
func (o Outcome) MarshalText() ([]byte, error) {
	if !o.Valid() {
		return nil, fmt.Errorf("invalid outcome %d", uint8(o))
	}
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Outcome) UnmarshalText(b []byte) error {
	v, err := ParseOutcome(string(b))
	if err != nil {
		return err
	}
	*o = v
	return nil
}

// ParseOutcome parses "success" or "failure" (case-insensitive).
func ParseOutcome(s string) (Outcome, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "success":
		return Success, nil
	case "failure":
		return Failure, nil
	default:
		return 0, fmt.Errorf("invalid outcome %q: want success or failure", s)
	}
}

// Score is a utility value a child offers to a score-based parent. The
// range is open; the constants below are the conventional anchors.
type Score float64

const (
	ScoreFail    Score = 0
	ScoreNeutral Score = 0.5
	ScorePass    Score = 1
)

// Running marks a node that is currently active.
type Running struct{}

// RunResult carries the outcome a node produced and the tick it was
// produced on. It is removed at the start of the following tick.
type RunResult struct {
	Outcome Outcome
	Tick    uint64
}

// NoInterrupt opts a node, and the subtree below it, out of the default
// interrupt cascade. The owning action becomes responsible for clearing
// Running itself.
type NoInterrupt struct{}

// TargetAgent is the resolved entity a node's actions read and mutate.
type TargetAgent struct {
	Entity world.Entity
}

// TargetRoot asks for the node's target to be resolved to the root of its
// tree when the tree is attached.
type TargetRoot struct{}

// epoch counts runs of a node; async completions carry the epoch they were
// issued for so late arrivals can be recognised.
type epoch uint64

package dispatch

import "fmt"

// State is a step in the life of one invocation.
type State int

const (
	Start State = iota
	Parsed
	Validated
	Dispatched
	Rejected
)

func (s State) String() string {
	switch s {
	case Start:
		return "START"
	case Parsed:
		return "PARSED"
	case Validated:
		return "VALIDATED"
	case Dispatched:
		return "DISPATCHED"
	case Rejected:
		return "REJECTED"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// next lists the legal transitions. Start may be rejected too: grammar
// failures surface before a configuration exists.
var next = map[State][]State{
	Start:     {Parsed, Rejected},
	Parsed:    {Validated, Rejected},
	Validated: {Dispatched},
}

// Tracker records the linear pass of a single invocation.
type Tracker struct {
	state State
}

// State reports the current step.
func (t *Tracker) State() State { return t.state }

// Advance moves to s. A step is never revisited.
func (t *Tracker) Advance(s State) error {
	for _, ok := range next[t.state] {
		if ok == s {
			t.state = s
			return nil
		}
	}
	return fmt.Errorf("invalid transition %s -> %s", t.state, s)
}

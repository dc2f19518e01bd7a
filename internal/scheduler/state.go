package scheduler

import "fmt"

// State is the poll cycle state.
//
// Valid state graph:
//
//	IDLE ──► FETCHING ──► EVALUATING ──► IDLE
//	             │             │
//	             └─────────────┴──► FAILED ──► IDLE
type State string

const (
	StateIdle       State = "IDLE"
	StateFetching   State = "FETCHING"
	StateEvaluating State = "EVALUATING"
	StateFailed     State = "FAILED"
)

// validTransitions lists every allowed (from → to) pair.
var validTransitions = map[State][]State{
	StateIdle:       {StateFetching},
	StateFetching:   {StateEvaluating, StateFailed},
	StateEvaluating: {StateIdle, StateFailed},
	StateFailed:     {StateIdle},
}

// ParseState converts a raw string to a State, returning an error for
// unknown values.
func ParseState(s string) (State, error) {
	st := State(s)
	switch st {
	case StateIdle, StateFetching, StateEvaluating, StateFailed:
		return st, nil
	}
	return "", fmt.Errorf("unknown scheduler state %q", s)
}

// IsTransitionAllowed returns true when moving from → to is permitted by the
// state machine.
func IsTransitionAllowed(from, to State) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsBusy returns true while a cycle is fetching or evaluating.
func IsBusy(s State) bool { return s == StateFetching || s == StateEvaluating }

package domain

import (
	"maps"
	"slices"
)

// Index keys injected into every recorded state.
const (
	KeyRun  = "run"
	KeyStep = "step"
)

// State is a snapshot of simulated quantities keyed by name.
// Values are scalars (numbers, strings, booleans). A State stored in a
// History must not be mutated; use Merge to derive the next one.
type State map[string]any

// Clone returns a shallow copy of the state.
func (s State) Clone() State {
	if s == nil {
		return State{}
	}
	return maps.Clone(s)
}

// Merge derives the next state: the receiver overlaid with updates, then the
// run and step index fields. Updates win over prior values on key collision
// and the index fields always win.
func (s State) Merge(updates State, run, step int) State {
	next := make(State, len(s)+len(updates)+2)
	maps.Copy(next, s)
	maps.Copy(next, updates)
	next[KeyRun] = run
	next[KeyStep] = step
	return next
}

// Run returns the run index, or -1 when absent.
func (s State) Run() int {
	return s.index(KeyRun)
}

// Step returns the step index, or -1 when absent.
func (s State) Step() int {
	return s.index(KeyStep)
}

func (s State) index(key string) int {
	switch v := s[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return -1
	}
}

// Keys returns the state's keys in lexical order.
func (s State) Keys() []string {
	return slices.Sorted(maps.Keys(s))
}

// Has reports whether the quantity is present.
func (s State) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// History is the ordered, append-only sequence of states recorded in the
// current run. Systems receive it read-only.
type History []State

// Last returns the most recent state.
func (h History) Last() (State, bool) {
	if len(h) == 0 {
		return nil, false
	}
	return h[len(h)-1], true
}

package domain

import (
	"slices"
	"strings"
)

// Watchlist is the set of quantities retained in the results.
// Order is irrelevant; names are kept sorted and deduplicated.
type Watchlist struct {
	names []string
}

// NewWatchlist builds a watchlist from quantity names. Empty names and the
// index keys are ignored since the index is always retained.
func NewWatchlist(names ...string) Watchlist {
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || n == KeyRun || n == KeyStep {
			continue
		}
		out = append(out, n)
	}
	slices.Sort(out)
	return Watchlist{names: slices.Compact(out)}
}

// Names returns the watched quantities in lexical order.
func (w Watchlist) Names() []string {
	return slices.Clone(w.names)
}

// Len returns the number of watched quantities.
func (w Watchlist) Len() int {
	return len(w.names)
}

// Contains reports whether the quantity is watched.
func (w Watchlist) Contains(name string) bool {
	_, ok := slices.BinarySearch(w.names, name)
	return ok
}

// Filter restricts the state to the watched quantities plus the run and
// step index. It fails with a *MissingQuantityError naming the first watched
// quantity absent from the state.
func (w Watchlist) Filter(state State) (State, error) {
	record := make(State, len(w.names)+2)
	for _, name := range w.names {
		v, ok := state[name]
		if !ok {
			return nil, &MissingQuantityError{Quantity: name, State: state.Clone()}
		}
		record[name] = v
	}
	record[KeyRun] = state[KeyRun]
	record[KeyStep] = state[KeyStep]
	return record, nil
}

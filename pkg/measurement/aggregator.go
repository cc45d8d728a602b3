package measurement

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Aggregator holds the current ResultSet and applies settled outcomes to it.
// It is safe for concurrent use.
type Aggregator struct {
	mu         sync.RWMutex
	generation uint64
	set        ResultSet
	changed    chan struct{}
}

// NewAggregator returns an Aggregator holding an empty ResultSet of generation 0.
func NewAggregator() *Aggregator {
	return &Aggregator{changed: make(chan struct{})}
}

// Replace discards the current ResultSet and installs items as a new one.
// It returns the generation token of the new set. Every side starts pending.
func (a *Aggregator) Replace(items []Item, at time.Time) uint64 {
	fresh := make([]Item, len(items))
	for i, it := range items {
		it.State = State{Status: StatusPending}
		it.State2 = State{Status: StatusPending}
		fresh[i] = it
	}

	a.mu.Lock()
	a.generation++
	a.set = ResultSet{
		Generation:  a.generation,
		SubmittedAt: at,
		Items:       fresh,
	}
	gen := a.generation
	a.notify()
	a.mu.Unlock()

	return gen
}

// Apply records o on the matching item side and reports whether anything changed.
//
// Outcomes of a superseded generation, for an index out of range, for a
// comparison side of an item without counterpart, with a non-terminal status,
// or for a side that already settled are ignored.
func (a *Aggregator) Apply(o Outcome) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if o.Generation != a.set.Generation {
		log.Debug().
			Str("component", "aggregator").
			Uint64("generation", o.Generation).
			Uint64("current", a.set.Generation).
			Msg("drop stale outcome")
		return false
	}

	if o.Index < 0 || o.Index >= len(a.set.Items) || !o.Status.Terminal() {
		return false
	}

	it := &a.set.Items[o.Index]

	var st *State
	switch o.Side {
	case SidePrimary:
		st = &it.State
	case SideComparison:
		if !it.Compared {
			return false
		}
		st = &it.State2
	default:
		return false
	}

	if st.Status.Terminal() {
		return false
	}

	st.Status = o.Status
	if o.Status == StatusLoaded {
		st.Duration = o.Duration
	}

	a.notify()
	return true
}

// Snapshot returns a copy of the current ResultSet.
func (a *Aggregator) Snapshot() ResultSet {
	a.mu.RLock()
	defer a.mu.RUnlock()

	items := make([]Item, len(a.set.Items))
	copy(items, a.set.Items)

	return ResultSet{
		Generation:  a.set.Generation,
		SubmittedAt: a.set.SubmittedAt,
		Items:       items,
	}
}

// Generation returns the token of the current ResultSet.
func (a *Aggregator) Generation() uint64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.set.Generation
}

// Changed returns a channel which is closed on the next mutation.
func (a *Aggregator) Changed() <-chan struct{} {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.changed
}

// notify must be called with mu held.
func (a *Aggregator) notify() {
	close(a.changed)
	a.changed = make(chan struct{})
}

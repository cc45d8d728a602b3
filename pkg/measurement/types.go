// Package measurement holds the per-URL measurement state of one submission
// and the aggregator that applies settled load outcomes to it.
package measurement

import (
	"time"
)

// Side selects which URL of an item an outcome belongs to.
type Side int

const (
	// SidePrimary is the submitted URL.
	SidePrimary Side = 0

	// SideComparison is the counterpart URL derived from the comparison base.
	SideComparison Side = 1
)

func (s Side) String() string {
	switch s {
	case SidePrimary:
		return "primary"
	case SideComparison:
		return "comparison"
	default:
		return "unknown"
	}
}

// Status is the lifecycle position of one side of an item.
type Status int

const (
	// StatusPending means the load has been started but not settled yet.
	StatusPending Status = 0

	// StatusLoaded means the image loaded and decoded successfully.
	StatusLoaded Status = 1

	// StatusFailed means the load failed for any reason. There is no retry.
	StatusFailed Status = 2
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusLoaded:
		return "loaded"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition can happen from s.
func (s Status) Terminal() bool {
	return s == StatusLoaded || s == StatusFailed
}

// State is the state of one side of an item.
// Duration is only meaningful when Status is StatusLoaded.
type State struct {
	Status   Status
	Duration time.Duration
}

// Milliseconds returns the load duration in fractional milliseconds.
func (s State) Milliseconds() float64 {
	return float64(s.Duration) / float64(time.Millisecond)
}

// Item is one entry per submitted URL.
type Item struct {
	// URL is the effective primary address, cache-busting already applied.
	URL string

	// URL2 is the effective counterpart address in comparison mode.
	// It may be empty even when Compared is set, if no counterpart could be derived.
	URL2 string

	// Compared marks items measured against a counterpart.
	Compared bool

	State  State
	State2 State
}

// StateOf returns the state of the given side.
func (i Item) StateOf(side Side) State {
	if side == SideComparison {
		return i.State2
	}
	return i.State
}

// URLOf returns the address of the given side.
func (i Item) URLOf(side Side) string {
	if side == SideComparison {
		return i.URL2
	}
	return i.URL
}

// Settled reports whether every side of the item reached a terminal state.
func (i Item) Settled() bool {
	if !i.State.Status.Terminal() {
		return false
	}
	return !i.Compared || i.State2.Status.Terminal()
}

// ResultSet is the ordered sequence of items produced by one submission.
type ResultSet struct {
	// Generation identifies the submission. Outcomes carrying another
	// generation are never applied to this set.
	Generation uint64

	// SubmittedAt is the submission time, also used as cache-busting token.
	SubmittedAt time.Time

	Items []Item
}

// Complete reports whether every item of the set is settled.
func (r ResultSet) Complete() bool {
	for _, it := range r.Items {
		if !it.Settled() {
			return false
		}
	}
	return true
}

// Compared reports whether the set was submitted in comparison mode.
func (r ResultSet) Compared() bool {
	return len(r.Items) > 0 && r.Items[0].Compared
}

// Outcome is the settlement of one load, keyed by generation, item index and side.
type Outcome struct {
	Generation uint64
	Index      int
	Side       Side
	Status     Status
	Duration   time.Duration
}

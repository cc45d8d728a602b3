// Package compare derives relative speed verdicts between a base and an alternate source.
package compare

import (
	"fmt"
	"math"

	"github.com/dkorittki/imgprof/pkg/measurement"
	"github.com/dkorittki/imgprof/pkg/stats"
)

// Verdict names the faster of two sources and by how much.
type Verdict struct {
	Equal bool `json:"equal"`

	Faster string `json:"faster,omitempty"`
	Slower string `json:"slower,omitempty"`

	// Percent is the speedup relative to the slower duration, rounded to one decimal place.
	Percent float64 `json:"percent"`
}

func (v Verdict) String() string {
	if v.Equal {
		return "no difference"
	}
	return fmt.Sprintf("%s is %.1f%% faster", v.Faster, v.Percent)
}

// Durations compares two millisecond values measured against baseHost and altHost.
func Durations(base, alt float64, baseHost, altHost string) Verdict {
	switch {
	case base < alt:
		return Verdict{Faster: baseHost, Slower: altHost, Percent: round1((alt - base) / alt * 100)}
	case base > alt:
		return Verdict{Faster: altHost, Slower: baseHost, Percent: round1((base - alt) / base * 100)}
	default:
		return Verdict{Equal: true}
	}
}

// Averages compares the average durations of two summaries.
// It returns false unless both sides have at least one successful load.
func Averages(base, alt stats.Derived, baseHost, altHost string) (Verdict, bool) {
	if !base.Available() || !alt.Available() {
		return Verdict{}, false
	}
	return Durations(base.Average, alt.Average, baseHost, altHost), true
}

// Item compares both sides of a single item.
// It returns false unless both sides loaded successfully.
func Item(it measurement.Item, baseHost, altHost string) (Verdict, bool) {
	if !it.Compared ||
		it.State.Status != measurement.StatusLoaded ||
		it.State2.Status != measurement.StatusLoaded {
		return Verdict{}, false
	}
	return Durations(it.State.Milliseconds(), it.State2.Milliseconds(), baseHost, altHost), true
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

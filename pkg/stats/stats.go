// Package stats derives descriptive statistics from measured load durations.
package stats

import (
	"math"
	"sort"

	"github.com/dkorittki/imgprof/pkg/measurement"
)

const (
	// P95MinSamples is the number of successful loads needed before p95 is reported.
	P95MinSamples = 10

	// P99MinSamples is the number of successful loads needed before p99 is reported.
	P99MinSamples = 20
)

// Derived summarizes one side of a ResultSet.
// P95 and P99 are nil when there are not enough successful samples.
type Derived struct {
	Count   int
	Loaded  int
	Failed  int
	Pending int

	// Average, Min and Max are in milliseconds and zero without successful loads.
	Average float64
	Min     float64
	Max     float64

	P95 *float64
	P99 *float64
}

// Available reports whether at least one load succeeded.
func (d Derived) Available() bool {
	return d.Loaded > 0
}

// Durations returns the durations in milliseconds of all successfully loaded
// items on side, in item order.
func Durations(items []measurement.Item, side measurement.Side) []float64 {
	var values []float64
	for _, it := range items {
		if side == measurement.SideComparison && !it.Compared {
			continue
		}
		st := it.StateOf(side)
		if st.Status == measurement.StatusLoaded {
			values = append(values, st.Milliseconds())
		}
	}
	return values
}

// Average returns the arithmetic mean over successfully loaded items on side.
// Failed and pending items are excluded. It returns 0 without any success.
func Average(items []measurement.Item, side measurement.Side) float64 {
	return mean(Durations(items, side))
}

// Percentile returns the nearest-rank p-th percentile of values.
// The index into the ascending values is ceil(p/100*n)-1, clamped to [0, n-1].
// It returns 0 for empty input.
func Percentile(values []float64, p float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	idx := int(math.Ceil(p/100*float64(n))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx > n-1 {
		idx = n - 1
	}

	return sorted[idx]
}

// Derive computes the summary of side over items.
func Derive(items []measurement.Item, side measurement.Side) Derived {
	var d Derived

	for _, it := range items {
		if side == measurement.SideComparison && !it.Compared {
			continue
		}
		d.Count++
		switch it.StateOf(side).Status {
		case measurement.StatusLoaded:
			d.Loaded++
		case measurement.StatusFailed:
			d.Failed++
		default:
			d.Pending++
		}
	}

	values := Durations(items, side)
	if len(values) == 0 {
		return d
	}

	d.Average = mean(values)
	d.Min, d.Max = bounds(values)

	if len(values) >= P95MinSamples {
		v := Percentile(values, 95)
		d.P95 = &v
	}
	if len(values) >= P99MinSamples {
		v := Percentile(values, 99)
		d.P99 = &v
	}

	return d
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func bounds(values []float64) (float64, float64) {
	min, max := values[0], values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}

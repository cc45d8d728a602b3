package stats

import (
	"fmt"
	"math"
)

// DefaultBuckets is the maximum number of histogram buckets.
const DefaultBuckets = 10

// Bucket is one histogram bar of a single series.
type Bucket struct {
	Range string `json:"range"`
	Count int    `json:"count"`
}

// PairBucket is one histogram bar shared by a base and a comparison series.
type PairBucket struct {
	Range        string `json:"range"`
	BaseCount    int    `json:"base_count"`
	CompareCount int    `json:"compare_count"`
}

// FormatMs formats a millisecond value without decimal places.
// Halves round away from zero.
func FormatMs(v float64) string {
	return fmt.Sprintf("%.0f", math.Round(v))
}

// edges describes the bucketing of a value range.
type edges struct {
	min   float64
	width float64
	count int
}

// newEdges computes bucket edges for values. The bucket count is min(max, n).
// A zero width means every value is equal and a single bucket is used.
func newEdges(values []float64, max int) (edges, bool) {
	if len(values) == 0 || max <= 0 {
		return edges{}, false
	}

	lo, hi := bounds(values)
	if lo == hi {
		return edges{min: lo, count: 1}, true
	}

	count := max
	if len(values) < count {
		count = len(values)
	}

	return edges{min: lo, width: (hi - lo) / float64(count), count: count}, true
}

// index returns the bucket of v, clamped so the maximum value falls into the last bucket.
func (e edges) index(v float64) int {
	if e.width == 0 {
		return 0
	}

	idx := int(math.Floor((v - e.min) / e.width))
	if idx < 0 {
		idx = 0
	}
	if idx > e.count-1 {
		idx = e.count - 1
	}
	return idx
}

func (e edges) label(i int) string {
	if e.width == 0 {
		return FormatMs(e.min)
	}

	lower := e.min + float64(i)*e.width
	upper := e.min + float64(i+1)*e.width
	return FormatMs(lower) + "-" + FormatMs(upper)
}

// Histogram buckets values into at most max equal-width buckets spanning
// [min, max] of the values. It returns nil for empty input.
func Histogram(values []float64, max int) []Bucket {
	e, ok := newEdges(values, max)
	if !ok {
		return nil
	}

	buckets := make([]Bucket, e.count)
	for i := range buckets {
		buckets[i].Range = e.label(i)
	}
	for _, v := range values {
		buckets[e.index(v)].Count++
	}

	return buckets
}

// PairHistogram buckets base and compare over edges computed from the union
// of both series, so both share identical bucket boundaries.
func PairHistogram(base, compare []float64, max int) []PairBucket {
	union := make([]float64, 0, len(base)+len(compare))
	union = append(union, base...)
	union = append(union, compare...)

	e, ok := newEdges(union, max)
	if !ok {
		return nil
	}

	buckets := make([]PairBucket, e.count)
	for i := range buckets {
		buckets[i].Range = e.label(i)
	}
	for _, v := range base {
		buckets[e.index(v)].BaseCount++
	}
	for _, v := range compare {
		buckets[e.index(v)].CompareCount++
	}

	return buckets
}

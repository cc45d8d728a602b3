package profiler

import (
	"github.com/dkorittki/imgprof/pkg/compare"
	"github.com/dkorittki/imgprof/pkg/measurement"
	"github.com/dkorittki/imgprof/pkg/stats"
	"github.com/dkorittki/imgprof/pkg/trigger"
)

// View is everything the presentation layer needs to render the current state.
type View struct {
	ResultSet measurement.ResultSet

	// BaseHost and CompareHost label the primary and comparison side.
	BaseHost    string
	CompareHost string

	Base    stats.Derived
	Compare stats.Derived

	// Histogram is set in single mode, PairHistogram in comparison mode.
	Histogram     []stats.Bucket
	PairHistogram []stats.PairBucket

	// Verdict compares the averages of both sides. It is nil outside
	// comparison mode or while a side has no successful load.
	Verdict *compare.Verdict

	// ItemVerdicts holds one entry per item, nil where both sides have not loaded.
	ItemVerdicts []*compare.Verdict
}

// Compared reports whether the view was produced in comparison mode.
func (v View) Compared() bool {
	return v.ResultSet.Compared()
}

// BuildView derives statistics and comparisons from set.
// buckets is the maximum number of histogram buckets.
func BuildView(set measurement.ResultSet, buckets int) View {
	v := View{ResultSet: set}
	v.BaseHost, v.CompareHost = trigger.Hosts(set.Items)
	v.Base = stats.Derive(set.Items, measurement.SidePrimary)

	baseValues := stats.Durations(set.Items, measurement.SidePrimary)

	if !set.Compared() {
		v.Histogram = stats.Histogram(baseValues, buckets)
		return v
	}

	v.Compare = stats.Derive(set.Items, measurement.SideComparison)
	v.PairHistogram = stats.PairHistogram(baseValues,
		stats.Durations(set.Items, measurement.SideComparison), buckets)

	if verdict, ok := compare.Averages(v.Base, v.Compare, v.BaseHost, v.CompareHost); ok {
		v.Verdict = &verdict
	}

	v.ItemVerdicts = make([]*compare.Verdict, len(set.Items))
	for i, it := range set.Items {
		if verdict, ok := compare.Item(it, v.BaseHost, v.CompareHost); ok {
			verdict := verdict
			v.ItemVerdicts[i] = &verdict
		}
	}

	return v
}

package compare

import (
	"testing"
	"time"

	"github.com/dkorittki/imgprof/pkg/measurement"
	"github.com/dkorittki/imgprof/pkg/stats"
	"github.com/stretchr/testify/assert"
)

func TestDurations(t *testing.T) {
	vars := []struct {
		name      string
		base, alt float64
		out       Verdict
		str       string
	}{
		{
			name: "BaseFaster",
			base: 100,
			alt:  150,
			out:  Verdict{Faster: "a.com", Slower: "b.com", Percent: 33.3},
			str:  "a.com is 33.3% faster",
		},
		{
			name: "AltFaster",
			base: 200,
			alt:  50,
			out:  Verdict{Faster: "b.com", Slower: "a.com", Percent: 75},
			str:  "b.com is 75.0% faster",
		},
		{
			name: "Equal",
			base: 80,
			alt:  80,
			out:  Verdict{Equal: true},
			str:  "no difference",
		},
	}

	for _, v := range vars {
		t.Run(v.name, func(t *testing.T) {
			verdict := Durations(v.base, v.alt, "a.com", "b.com")
			assert.Equal(t, v.out, verdict)
			assert.Equal(t, v.str, verdict.String())
		})
	}
}

func TestAverages(t *testing.T) {
	base := stats.Derived{Loaded: 2, Average: 120}
	alt := stats.Derived{Loaded: 3, Average: 60}

	v, ok := Averages(base, alt, "a.com", "b.com")
	assert.True(t, ok)
	assert.Equal(t, Verdict{Faster: "b.com", Slower: "a.com", Percent: 50}, v)

	_, ok = Averages(base, stats.Derived{Failed: 3}, "a.com", "b.com")
	assert.False(t, ok)
}

func TestItem(t *testing.T) {
	ok := func(ms int) measurement.State {
		return measurement.State{Status: measurement.StatusLoaded, Duration: time.Duration(ms) * time.Millisecond}
	}

	vars := []struct {
		name string
		item measurement.Item
		ok   bool
		out  Verdict
	}{
		{
			name: "BothLoaded",
			item: measurement.Item{Compared: true, State: ok(40), State2: ok(80)},
			ok:   true,
			out:  Verdict{Faster: "a.com", Slower: "b.com", Percent: 50},
		},
		{
			name: "ComparisonFailed",
			item: measurement.Item{Compared: true, State: ok(40), State2: measurement.State{Status: measurement.StatusFailed}},
		},
		{
			name: "ComparisonPending",
			item: measurement.Item{Compared: true, State: ok(40)},
		},
		{
			name: "NotCompared",
			item: measurement.Item{State: ok(40), State2: ok(40)},
		},
	}

	for _, v := range vars {
		t.Run(v.name, func(t *testing.T) {
			verdict, ok := Item(v.item, "a.com", "b.com")
			assert.Equal(t, v.ok, ok)
			assert.Equal(t, v.out, verdict)
		})
	}
}

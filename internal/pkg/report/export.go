package report

import (
	"encoding/json"
	"io"
	"time"

	"github.com/dkorittki/imgprof/internal/pkg/service/profiler"
	"github.com/dkorittki/imgprof/pkg/compare"
	"github.com/dkorittki/imgprof/pkg/measurement"
	"github.com/dkorittki/imgprof/pkg/stats"
	"github.com/pkg/errors"
)

// Report is the JSON document of a profiler view.
type Report struct {
	Generation  uint64    `json:"generation"`
	SubmittedAt time.Time `json:"submitted_at"`
	Compared    bool      `json:"compared"`

	Items   []ItemReport `json:"items"`
	Base    SideReport   `json:"base"`
	Compare *SideReport  `json:"compare,omitempty"`

	Histogram     []stats.Bucket     `json:"histogram,omitempty"`
	PairHistogram []stats.PairBucket `json:"pair_histogram,omitempty"`

	Verdict *compare.Verdict `json:"verdict,omitempty"`
}

// ItemReport is one measured item.
// Durations are only set for successful loads.
type ItemReport struct {
	URL        string   `json:"url"`
	Status     string   `json:"status"`
	DurationMs *float64 `json:"duration_ms,omitempty"`

	URL2        string           `json:"url2,omitempty"`
	Status2     string           `json:"status2,omitempty"`
	DurationMs2 *float64         `json:"duration_ms2,omitempty"`
	Verdict     *compare.Verdict `json:"verdict,omitempty"`
}

// SideReport holds the statistics of one side. Unavailable values are omitted.
type SideReport struct {
	Host    string   `json:"host"`
	Count   int      `json:"count"`
	Loaded  int      `json:"loaded"`
	Failed  int      `json:"failed"`
	Pending int      `json:"pending"`
	Average *float64 `json:"average_ms,omitempty"`
	Min     *float64 `json:"min_ms,omitempty"`
	Max     *float64 `json:"max_ms,omitempty"`
	P95     *float64 `json:"p95_ms,omitempty"`
	P99     *float64 `json:"p99_ms,omitempty"`
}

// NewReport converts v into its JSON document.
func NewReport(v profiler.View) *Report {
	r := &Report{
		Generation:    v.ResultSet.Generation,
		SubmittedAt:   v.ResultSet.SubmittedAt,
		Compared:      v.Compared(),
		Items:         make([]ItemReport, len(v.ResultSet.Items)),
		Base:          sideReport(v.BaseHost, v.Base),
		Histogram:     v.Histogram,
		PairHistogram: v.PairHistogram,
		Verdict:       v.Verdict,
	}

	for i, it := range v.ResultSet.Items {
		ir := ItemReport{
			URL:        it.URL,
			Status:     it.State.Status.String(),
			DurationMs: duration(it.State),
		}

		if it.Compared {
			ir.URL2 = it.URL2
			ir.Status2 = it.State2.Status.String()
			ir.DurationMs2 = duration(it.State2)
			if i < len(v.ItemVerdicts) {
				ir.Verdict = v.ItemVerdicts[i]
			}
		}

		r.Items[i] = ir
	}

	if v.Compared() {
		side := sideReport(v.CompareHost, v.Compare)
		r.Compare = &side
	}

	return r
}

// WriteJSON writes the indented JSON report of v.
func WriteJSON(w io.Writer, v profiler.View) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(NewReport(v)), "cannot encode report")
}

func sideReport(host string, d stats.Derived) SideReport {
	s := SideReport{
		Host:    host,
		Count:   d.Count,
		Loaded:  d.Loaded,
		Failed:  d.Failed,
		Pending: d.Pending,
		P95:     d.P95,
		P99:     d.P99,
	}

	if d.Available() {
		avg, min, max := d.Average, d.Min, d.Max
		s.Average, s.Min, s.Max = &avg, &min, &max
	}

	return s
}

func duration(s measurement.State) *float64 {
	if s.Status != measurement.StatusLoaded {
		return nil
	}
	ms := s.Milliseconds()
	return &ms
}

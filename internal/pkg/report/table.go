// Package report renders profiler views as terminal tables, PNG charts and JSON.
package report

import (
	"fmt"
	"io"

	"github.com/dkorittki/imgprof/internal/pkg/service/profiler"
	"github.com/dkorittki/imgprof/pkg/measurement"
	"github.com/dkorittki/imgprof/pkg/stats"
	"github.com/olekukonko/tablewriter"
)

// NoStatistics is printed in place of statistics without a successful load.
const NoStatistics = "no statistics available"

// Write prints cards, statistics, histogram and verdict of v.
func Write(w io.Writer, v profiler.View) error {
	writers := []func(io.Writer, profiler.View) error{
		WriteCards,
		WriteStats,
		WriteHistogram,
		WriteVerdict,
	}

	for i, write := range writers {
		if i > 0 {
			fmt.Fprintln(w)
		}
		if err := write(w, v); err != nil {
			return err
		}
	}
	return nil
}

// WriteCards prints one row per item with the state of every side.
func WriteCards(w io.Writer, v profiler.View) error {
	header := []string{"#", "URL", "Result"}
	if v.Compared() {
		header = []string{"#", v.BaseHost, "Result", v.CompareHost, "Result", "Verdict"}
	}

	table := tablewriter.NewTable(w, tablewriter.WithHeader(header))

	for i, it := range v.ResultSet.Items {
		row := []string{fmt.Sprintf("%d", i+1), it.URL, stateCell(it.State)}

		if v.Compared() {
			verdict := "-"
			if i < len(v.ItemVerdicts) && v.ItemVerdicts[i] != nil {
				verdict = v.ItemVerdicts[i].String()
			}
			row = append(row, it.URL2, stateCell(it.State2), verdict)
		}

		if err := table.Append(row); err != nil {
			return err
		}
	}

	return table.Render()
}

// WriteStats prints the derived statistics of every side.
func WriteStats(w io.Writer, v profiler.View) error {
	table := tablewriter.NewTable(w,
		tablewriter.WithHeader([]string{
			"Host", "Loaded/Total", "Failed", "Pending",
			"Avg(ms)", "Min(ms)", "Max(ms)", "P95(ms)", "P99(ms)",
		}),
	)

	rows := [][]string{statsRow(v.BaseHost, v.Base)}
	if v.Compared() {
		rows = append(rows, statsRow(v.CompareHost, v.Compare))
	}

	for _, row := range rows {
		if err := table.Append(row); err != nil {
			return err
		}
	}

	return table.Render()
}

// WriteHistogram prints the histogram buckets of v.
func WriteHistogram(w io.Writer, v profiler.View) error {
	if len(v.Histogram) == 0 && len(v.PairHistogram) == 0 {
		_, err := fmt.Fprintln(w, NoStatistics)
		return err
	}

	if v.Compared() {
		table := tablewriter.NewTable(w,
			tablewriter.WithHeader([]string{"Range(ms)", v.BaseHost, v.CompareHost}),
		)
		for _, b := range v.PairHistogram {
			err := table.Append([]string{
				b.Range,
				fmt.Sprintf("%d", b.BaseCount),
				fmt.Sprintf("%d", b.CompareCount),
			})
			if err != nil {
				return err
			}
		}
		return table.Render()
	}

	table := tablewriter.NewTable(w, tablewriter.WithHeader([]string{"Range(ms)", "Count"}))
	for _, b := range v.Histogram {
		if err := table.Append([]string{b.Range, fmt.Sprintf("%d", b.Count)}); err != nil {
			return err
		}
	}
	return table.Render()
}

// WriteVerdict prints the aggregate comparison. It prints nothing in single mode.
func WriteVerdict(w io.Writer, v profiler.View) error {
	if !v.Compared() {
		return nil
	}

	if v.Verdict == nil {
		_, err := fmt.Fprintln(w, NoStatistics)
		return err
	}

	_, err := fmt.Fprintf(w, "%s (avg %s ms vs %s ms)\n",
		v.Verdict.String(),
		stats.FormatMs(v.Base.Average),
		stats.FormatMs(v.Compare.Average))
	return err
}

func stateCell(s measurement.State) string {
	if s.Status == measurement.StatusLoaded {
		return fmt.Sprintf("%.0f ms", s.Milliseconds())
	}
	return s.Status.String()
}

func statsRow(host string, d stats.Derived) []string {
	row := []string{
		host,
		fmt.Sprintf("%d/%d", d.Loaded, d.Count),
		fmt.Sprintf("%d", d.Failed),
		fmt.Sprintf("%d", d.Pending),
		"-", "-", "-", "-", "-",
	}

	if d.Available() {
		row[4] = stats.FormatMs(d.Average)
		row[5] = stats.FormatMs(d.Min)
		row[6] = stats.FormatMs(d.Max)
	}
	if d.P95 != nil {
		row[7] = stats.FormatMs(*d.P95)
	}
	if d.P99 != nil {
		row[8] = stats.FormatMs(*d.P99)
	}

	return row
}

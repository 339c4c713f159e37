package backtest

import (
	"fmt"
	"io"

	"github.com/montanaflynn/stats"
	"github.com/olekukonko/tablewriter"
)

// SeriesStats summarizes one metric across every emitted signal.
type SeriesStats struct {
	Mean   float64
	Median float64
	Min    float64
	Max    float64
}

// Summary aggregates replay results across all files.
type Summary struct {
	Files     int
	Snapshots int
	Signals   int

	Credit       SeriesStats
	CallDistance SeriesStats
	PutDistance  SeriesStats
}

// Summarize folds per-file results into one summary. With zero signals
// the metric stats stay zero.
func Summarize(results []Result) (Summary, error) {
	sum := Summary{Files: len(results)}
	var credits, callDist, putDist []float64
	for _, res := range results {
		sum.Snapshots += res.Snapshots
		sum.Signals += len(res.Signals)
		credits = append(credits, res.Credits...)
		callDist = append(callDist, res.CallDistances...)
		putDist = append(putDist, res.PutDistances...)
	}
	if sum.Signals == 0 {
		return sum, nil
	}

	var err error
	if sum.Credit, err = newSeriesStats(credits); err != nil {
		return Summary{}, fmt.Errorf("credit stats: %w", err)
	}
	if sum.CallDistance, err = newSeriesStats(callDist); err != nil {
		return Summary{}, fmt.Errorf("call distance stats: %w", err)
	}
	if sum.PutDistance, err = newSeriesStats(putDist); err != nil {
		return Summary{}, fmt.Errorf("put distance stats: %w", err)
	}
	return sum, nil
}

func newSeriesStats(xs []float64) (SeriesStats, error) {
	mean, err := stats.Mean(xs)
	if err != nil {
		return SeriesStats{}, fmt.Errorf("mean: %w", err)
	}
	median, err := stats.Median(xs)
	if err != nil {
		return SeriesStats{}, fmt.Errorf("median: %w", err)
	}
	min, err := stats.Min(xs)
	if err != nil {
		return SeriesStats{}, fmt.Errorf("min: %w", err)
	}
	max, err := stats.Max(xs)
	if err != nil {
		return SeriesStats{}, fmt.Errorf("max: %w", err)
	}
	return SeriesStats{Mean: mean, Median: median, Min: min, Max: max}, nil
}

// WriteReport renders the replay summary as a table.
func WriteReport(w io.Writer, results []Result) error {
	sum, err := Summarize(results)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "Replayed %d file(s): %d snapshots, %d signals\n",
		sum.Files, sum.Snapshots, sum.Signals); err != nil {
		return err
	}
	if sum.Signals == 0 {
		_, err := fmt.Fprintln(w, "No signals emitted.")
		return err
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Metric", "Mean", "Median", "Min", "Max"})
	table.SetAlignment(tablewriter.ALIGN_CENTER)
	table.SetColumnSeparator("")
	table.Append(seriesRow("credit", "%.2f", sum.Credit))
	table.Append(seriesRow("call delta distance", "%.3f", sum.CallDistance))
	table.Append(seriesRow("put delta distance", "%.3f", sum.PutDistance))
	table.Render()
	return nil
}

func seriesRow(name, format string, s SeriesStats) []string {
	return []string{
		name,
		fmt.Sprintf(format, s.Mean),
		fmt.Sprintf(format, s.Median),
		fmt.Sprintf(format, s.Min),
		fmt.Sprintf(format, s.Max),
	}
}

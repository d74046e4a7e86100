package dashboard

import (
	"gonum.org/v1/gonum/floats"

	"github.com/foliotrack/foliotrack/internal/timeseries"
)

// ComputePerformance summarizes the merged total series. Fewer than two
// points means there is no movement to report, so delta stays zero.
func ComputePerformance(merged, positionSeries, cashSeries timeseries.Series) Performance {
	perf := Performance{
		Series:         merged,
		PositionSeries: positionSeries,
		CashSeries:     cashSeries,
	}

	if len(merged) > 0 {
		values := make([]float64, len(merged))
		for i, p := range merged {
			values[i] = p.Value
		}
		perf.Max = floats.Max(values)
		perf.Min = floats.Min(values)
	}

	if len(merged) < 2 {
		return perf
	}

	first := merged.First()
	last := merged.Last()
	perf.Delta = last - first

	switch {
	case first > 0:
		perf.DeltaPct = perf.Delta / first * 100
	case last != 0:
		perf.DeltaPct = 100.0
	}

	return perf
}

package dashboard

import "github.com/foliotrack/foliotrack/internal/modules/positions"

// CalculateTotals computes the headline value change over a range.
//
// Start value is the sum of the baseline set; current value is the sum of
// the end set plus all cash paid through the end of the range. A zero start
// with a non-zero end reports 100% rather than dividing by zero: going from
// nothing to something is a real gain and should read as one.
func CalculateTotals(baseline, end []positions.Snapshot, cashTotal float64) Totals {
	var startValue, endValue float64

	for _, s := range baseline {
		startValue += s.Value
	}
	for _, s := range end {
		endValue += s.Value
	}
	endValue += cashTotal

	delta := endValue - startValue

	var pct float64
	switch {
	case startValue > 0:
		pct = delta / startValue * 100
	case endValue != 0:
		pct = 100.0
	}

	return Totals{
		Current:  endValue,
		Start:    startValue,
		Delta:    delta,
		DeltaPct: pct,
	}
}

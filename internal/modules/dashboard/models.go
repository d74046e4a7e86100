// Package dashboard assembles the portfolio dashboard: totals, performance
// series, allocation breakdown and recent activity for one owner and range.
package dashboard

import (
	"math"
	"time"

	"github.com/foliotrack/foliotrack/internal/timeseries"
)

// Snapshot is the complete dashboard payload for one owner and range.
type Snapshot struct {
	AsOf        time.Time              `json:"as_of" msgpack:"as_of"`
	Range       string                 `json:"range" msgpack:"range"`
	Granularity timeseries.Granularity `json:"granularity" msgpack:"granularity"`
	Total       Totals                 `json:"total" msgpack:"total"`
	Performance Performance            `json:"performance" msgpack:"performance"`
	Allocation  []AllocationSlice      `json:"allocation" msgpack:"allocation"`
	Activity    []ActivityItem         `json:"activity" msgpack:"activity"`
	PriceFresh  bool                   `json:"price_fresh" msgpack:"price_fresh"`
}

// Totals holds the headline value and its change over the range.
type Totals struct {
	Current  float64 `json:"current" msgpack:"current"`
	Start    float64 `json:"start" msgpack:"start"`
	Delta    float64 `json:"delta" msgpack:"delta"`
	DeltaPct float64 `json:"delta_pct" msgpack:"delta_pct"`
}

// Performance holds the chart series and their summary statistics.
// Series is the merged total line; the position and cash lines are kept
// separately for charts that draw them individually.
type Performance struct {
	Series         timeseries.Series `json:"series" msgpack:"series"`
	PositionSeries timeseries.Series `json:"position_series" msgpack:"position_series"`
	CashSeries     timeseries.Series `json:"cash_series" msgpack:"cash_series"`
	Delta          float64           `json:"delta" msgpack:"delta"`
	DeltaPct       float64           `json:"delta_pct" msgpack:"delta_pct"`
	Max            float64           `json:"max" msgpack:"max"`
	Min            float64           `json:"min" msgpack:"min"`
}

// AllocationSlice is one instrument's share of the portfolio.
type AllocationSlice struct {
	Key     string  `json:"key" msgpack:"key"`
	Value   float64 `json:"value" msgpack:"value"`
	Percent float64 `json:"percent" msgpack:"percent"`
}

// ActivityItem is one recent or upcoming cash flow shown on the dashboard.
type ActivityItem struct {
	Type   string    `json:"type" msgpack:"type"`
	Ticker string    `json:"ticker" msgpack:"ticker"`
	Amount float64   `json:"amount" msgpack:"amount"`
	Date   time.Time `json:"date" msgpack:"date"`
	Status string    `json:"status" msgpack:"status"`
}

// round keeps currency values at two decimals at the assembly boundary.
// Intermediate math stays at full precision.
func round(val float64, decimals int) float64 {
	factor := math.Pow(10, float64(decimals))
	return math.Round(val*factor) / factor
}

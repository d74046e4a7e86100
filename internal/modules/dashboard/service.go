package dashboard

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/foliotrack/foliotrack/internal/modules/cashflows"
	"github.com/foliotrack/foliotrack/internal/modules/positions"
	"github.com/foliotrack/foliotrack/internal/modules/prices"
	"github.com/foliotrack/foliotrack/internal/timeseries"
)

// ErrInvalidInput is returned when the owner identifier is missing.
var ErrInvalidInput = errors.New("invalid input")

// SnapshotSource supplies stored position snapshot history.
type SnapshotSource interface {
	PortfolioSeries(ownerID string, start *time.Time, end time.Time) ([]timeseries.Point, error)
	RangeEndpoints(ownerID string, start *time.Time, end time.Time) ([]positions.Snapshot, []positions.Snapshot, error)
	EarliestSnapshotTime(ownerID string) (*time.Time, error)
	LastSnapshotTime(ownerID string) (*time.Time, error)
}

// CashFlowSource supplies paid and upcoming cash flow events.
type CashFlowSource interface {
	PaidTotals(ownerID string, start *time.Time, end time.Time) ([]timeseries.Point, error)
	TotalPaidThrough(ownerID string, end time.Time) (float64, error)
	ListPaid(ownerID string, start *time.Time, end time.Time) ([]cashflows.Event, error)
	ListUpcoming(ownerID string, asOf time.Time) ([]cashflows.Event, error)
}

// LiveValueSource supplies the live portfolio value for the chart overlay.
type LiveValueSource interface {
	CurrentValue(ownerID string, now time.Time) (prices.CurrentValue, error)
}

// Service orchestrates one dashboard build:
// validate, resolve the window, fetch history, run the calculators, overlay
// the live value, assemble. The historical numbers are anchored on stored
// snapshot timestamps so repeated calls return identical results; only the
// live overlay moves between calls.
type Service struct {
	snapshots SnapshotSource
	cashFlows CashFlowSource
	live      LiveValueSource
	cache     *Cache
	log       zerolog.Logger
}

// NewService creates a dashboard service. cache may be nil to disable
// payload caching.
func NewService(snapshots SnapshotSource, cashFlows CashFlowSource, live LiveValueSource, cache *Cache, log zerolog.Logger) *Service {
	return &Service{
		snapshots: snapshots,
		cashFlows: cashFlows,
		live:      live,
		cache:     cache,
		log:       log.With().Str("component", "dashboard").Logger(),
	}
}

// BuildDashboard assembles the dashboard for one owner and range shorthand.
// An owner with no history gets a zero-valued dashboard, not an error.
func (s *Service) BuildDashboard(ownerID, rangeCode string, now time.Time) (*Snapshot, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, fmt.Errorf("%w: owner is required", ErrInvalidInput)
	}

	now = now.UTC()

	window, err := timeseries.ResolveRange(rangeCode, now)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if cached, ok := s.cache.Get(ownerID, window.Code, now); ok {
			s.log.Debug().Str("owner", ownerID).Str("range", window.Code).Msg("Dashboard served from cache")
			return cached, nil
		}
	}

	// An open-ended window is anchored on stored snapshot timestamps, not
	// wall clock, so historical numbers stay reproducible between calls:
	// the latest snapshot becomes the end, the earliest becomes the start.
	start, end := window.Start, window.End
	if !window.Bounded() {
		latest, err := s.snapshots.LastSnapshotTime(ownerID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve range anchor: %w", err)
		}
		if latest != nil {
			end = *latest
		}
		earliest, err := s.snapshots.EarliestSnapshotTime(ownerID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve range anchor: %w", err)
		}
		start = earliest
	}

	raw, err := s.snapshots.PortfolioSeries(ownerID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to load portfolio series: %w", err)
	}

	cashPoints, err := s.cashFlows.PaidTotals(ownerID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to load cash flow series: %w", err)
	}

	// A portfolio is only empty when it has neither snapshots nor paid
	// cash flows; cash alone still draws a series.
	if len(raw) == 0 && len(cashPoints) == 0 {
		return s.emptyDashboard(window, now), nil
	}

	posSeries, granularity := timeseries.Reduce(raw, window.Granularity)
	cashSeries := timeseries.Cumulative(bucketTotals(cashPoints, granularity))

	merged := timeseries.Merge(posSeries, cashSeries)

	baseline, endSet, err := s.snapshots.RangeEndpoints(ownerID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to load range endpoints: %w", err)
	}
	// A missing baseline (single snapshot, or endpoints collapsed onto one
	// timestamp) treats the end set as both start and end.
	if len(baseline) == 0 {
		baseline = endSet
	}

	cashTotal, err := s.cashFlows.TotalPaidThrough(ownerID, end)
	if err != nil {
		return nil, fmt.Errorf("failed to sum cash flows: %w", err)
	}

	totals := CalculateTotals(baseline, endSet, cashTotal)

	priceFresh := false
	if live, err := s.live.CurrentValue(ownerID, now); err != nil {
		s.log.Warn().Err(err).Str("owner", ownerID).Msg("Live value unavailable, serving stored history only")
	} else {
		priceFresh = live.PriceFresh
		// Append the live value only when it is strictly newer than the
		// last stored point, so it never rewrites history.
		if last := merged[len(merged)-1].Timestamp; now.After(last) {
			merged = append(merged, timeseries.Point{Timestamp: now, Value: live.Value})
		}
	}

	perf := ComputePerformance(merged, posSeries, cashSeries)
	allocation := CalculateAllocation(endSet)

	paidEvents, err := s.cashFlows.ListPaid(ownerID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to load paid events: %w", err)
	}
	upcomingEvents, err := s.cashFlows.ListUpcoming(ownerID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to load upcoming events: %w", err)
	}

	snap := assemble(window, granularity, now, totals, perf, allocation,
		BuildActivity(paidEvents, upcomingEvents), priceFresh)

	if s.cache != nil {
		if err := s.cache.Put(ownerID, window.Code, snap, now); err != nil {
			s.log.Warn().Err(err).Msg("Failed to cache dashboard")
		}
	}

	return snap, nil
}

func (s *Service) emptyDashboard(window timeseries.Window, now time.Time) *Snapshot {
	return &Snapshot{
		AsOf:        now,
		Range:       window.Code,
		Granularity: window.Granularity,
		Performance: Performance{
			Series:         timeseries.Series{},
			PositionSeries: timeseries.Series{},
			CashSeries:     timeseries.Series{},
		},
		Allocation: []AllocationSlice{},
		Activity:   []ActivityItem{},
	}
}

// bucketTotals re-buckets per-date totals at the effective granularity,
// summing dates that land in the same bucket. Input is oldest first.
func bucketTotals(points []timeseries.Point, g timeseries.Granularity) timeseries.Series {
	out := make(timeseries.Series, 0, len(points))
	for _, p := range points {
		bucket := timeseries.BucketStart(p.Timestamp, g)
		if n := len(out); n > 0 && out[n-1].Timestamp.Equal(bucket) {
			out[n-1].Value += p.Value
			continue
		}
		out = append(out, timeseries.Point{Timestamp: bucket, Value: p.Value})
	}
	return out
}

// assemble applies the 2-decimal currency rounding at the final boundary
func assemble(window timeseries.Window, g timeseries.Granularity, now time.Time,
	totals Totals, perf Performance, allocation []AllocationSlice,
	activity []ActivityItem, priceFresh bool) *Snapshot {

	totals.Current = round(totals.Current, 2)
	totals.Start = round(totals.Start, 2)
	totals.Delta = round(totals.Delta, 2)
	totals.DeltaPct = round(totals.DeltaPct, 2)

	perf.Series = roundSeries(perf.Series)
	perf.PositionSeries = roundSeries(perf.PositionSeries)
	perf.CashSeries = roundSeries(perf.CashSeries)
	perf.Delta = round(perf.Delta, 2)
	perf.DeltaPct = round(perf.DeltaPct, 2)
	perf.Max = round(perf.Max, 2)
	perf.Min = round(perf.Min, 2)

	for i := range allocation {
		allocation[i].Value = round(allocation[i].Value, 2)
		allocation[i].Percent = round(allocation[i].Percent, 2)
	}

	return &Snapshot{
		AsOf:        now,
		Range:       window.Code,
		Granularity: g,
		Total:       totals,
		Performance: perf,
		Allocation:  allocation,
		Activity:    activity,
		PriceFresh:  priceFresh,
	}
}

func roundSeries(s timeseries.Series) timeseries.Series {
	out := make(timeseries.Series, len(s))
	for i, p := range s {
		out[i] = timeseries.Point{Timestamp: p.Timestamp, Value: round(p.Value, 2)}
	}
	return out
}

package dashboard

import (
	"database/sql"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/foliotrack/foliotrack/internal/modules/cashflows"
	"github.com/foliotrack/foliotrack/internal/modules/positions"
	"github.com/foliotrack/foliotrack/internal/modules/prices"
	"github.com/foliotrack/foliotrack/internal/timeseries"
)

type stubLive struct {
	cv  prices.CurrentValue
	err error
}

func (s *stubLive) CurrentValue(string, time.Time) (prices.CurrentValue, error) {
	return s.cv, s.err
}

type fixture struct {
	service   *Service
	positions *positions.Repository
	cashFlows *cashflows.Repository
	live      *stubLive
	cache     *Cache
}

func setup(t *testing.T, withCache bool) *fixture {
	t.Helper()

	portfolioDB, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	portfolioDB.SetMaxOpenConns(1)
	t.Cleanup(func() { portfolioDB.Close() })

	_, err = portfolioDB.Exec(`
		CREATE TABLE position_snapshots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			owner_id TEXT NOT NULL,
			batch_id TEXT NOT NULL,
			ticker TEXT NOT NULL,
			asset_type TEXT NOT NULL DEFAULT 'EQUITY',
			shares REAL NOT NULL,
			price REAL NOT NULL,
			value REAL NOT NULL,
			snapshot_ts INTEGER NOT NULL
		);
		CREATE TABLE cash_flow_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			owner_id TEXT NOT NULL,
			ticker TEXT NOT NULL,
			amount REAL NOT NULL,
			status TEXT NOT NULL DEFAULT 'paid',
			pay_date INTEGER NOT NULL,
			ex_date INTEGER,
			shares_at_ex_date REAL,
			created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
		);
	`)
	require.NoError(t, err)

	f := &fixture{
		positions: positions.NewRepository(portfolioDB, zerolog.Nop()),
		cashFlows: cashflows.NewRepository(portfolioDB, zerolog.Nop()),
		live:      &stubLive{},
	}

	if withCache {
		cacheDB, err := sql.Open("sqlite", ":memory:")
		require.NoError(t, err)
		cacheDB.SetMaxOpenConns(1)
		t.Cleanup(func() { cacheDB.Close() })

		_, err = cacheDB.Exec(`
			CREATE TABLE dashboard_cache (
				owner_id TEXT NOT NULL,
				range_code TEXT NOT NULL,
				payload BLOB NOT NULL,
				created_at INTEGER NOT NULL,
				PRIMARY KEY (owner_id, range_code)
			);
		`)
		require.NoError(t, err)

		f.cache = NewCache(cacheDB, 30*time.Second, zerolog.Nop())
	}

	f.service = NewService(f.positions, f.cashFlows, f.live, f.cache, zerolog.Nop())
	return f
}

func (f *fixture) insertBatch(t *testing.T, owner, batchID string, ts time.Time, values map[string]float64) {
	t.Helper()

	var snaps []positions.Snapshot
	for ticker, value := range values {
		snaps = append(snaps, positions.Snapshot{
			OwnerID: owner, Ticker: ticker, AssetType: "EQUITY",
			Shares: 1, Price: value, Value: value,
		})
	}
	require.NoError(t, f.positions.InsertSnapshotBatch(batchID, ts, snaps))
}

func TestBuildDashboardRequiresOwner(t *testing.T) {
	f := setup(t, false)

	_, err := f.service.BuildDashboard("  ", "1M", time.Now())
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestBuildDashboardInvalidRange(t *testing.T) {
	f := setup(t, false)

	_, err := f.service.BuildDashboard("alice", "7D", time.Now())
	assert.ErrorIs(t, err, timeseries.ErrInvalidRange)
}

func TestBuildDashboardEmptyPortfolio(t *testing.T) {
	f := setup(t, false)
	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

	snap, err := f.service.BuildDashboard("alice", "1M", now)
	require.NoError(t, err)

	assert.Equal(t, Totals{}, snap.Total)
	assert.Empty(t, snap.Performance.Series)
	assert.Empty(t, snap.Allocation)
	assert.Empty(t, snap.Activity)
	assert.Equal(t, "1M", snap.Range)
	assert.Equal(t, now, snap.AsOf)
}

func TestBuildDashboardCashOnlyPortfolio(t *testing.T) {
	f := setup(t, false)
	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

	_, err := f.cashFlows.Insert(cashflows.Event{
		OwnerID: "alice", Ticker: "AAA", Amount: 50, Status: cashflows.StatusPaid,
		PayDate: time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	f.live.cv = prices.CurrentValue{Value: 50, CashFlows: 50}

	snap, err := f.service.BuildDashboard("alice", "1M", now)
	require.NoError(t, err)

	// Paid cash with no snapshots is still a portfolio: the cash shows up
	// as current value and draws the cash line
	assert.Equal(t, 50.0, snap.Total.Current)
	assert.Equal(t, 0.0, snap.Total.Start)
	assert.Equal(t, 100.0, snap.Total.DeltaPct)
	require.NotEmpty(t, snap.Performance.CashSeries)
	assert.Equal(t, 50.0, snap.Performance.CashSeries.Last())
	require.NotEmpty(t, snap.Performance.Series)
	assert.Equal(t, 50.0, snap.Performance.Series.First())

	require.Len(t, snap.Activity, 1)
	assert.Equal(t, 50.0, snap.Activity[0].Amount)
}

func TestBuildDashboardFull(t *testing.T) {
	f := setup(t, false)
	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

	t1 := time.Date(2025, 3, 1, 17, 0, 0, 0, time.UTC)
	t2 := time.Date(2025, 3, 10, 17, 0, 0, 0, time.UTC)
	f.insertBatch(t, "alice", "b1", t1, map[string]float64{"AAA": 600, "BBB": 400})
	f.insertBatch(t, "alice", "b2", t2, map[string]float64{"AAA": 700, "BBB": 450})

	_, err := f.cashFlows.Insert(cashflows.Event{
		OwnerID: "alice", Ticker: "AAA", Amount: 50, Status: cashflows.StatusPaid,
		PayDate: time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	f.live.cv = prices.CurrentValue{Value: 1260, PriceFresh: true, AsOf: now}

	snap, err := f.service.BuildDashboard("alice", "1M", now)
	require.NoError(t, err)

	// Totals: start 1000, end 1150 + 50 cash
	assert.Equal(t, 1000.0, snap.Total.Start)
	assert.Equal(t, 1200.0, snap.Total.Current)
	assert.Equal(t, 200.0, snap.Total.Delta)
	assert.Equal(t, 20.0, snap.Total.DeltaPct)

	// Position points on Mar 1 and Mar 10, cash joins on Mar 5, live tip at now
	require.Len(t, snap.Performance.Series, 4)
	series := snap.Performance.Series
	assert.Equal(t, 1000.0, series[0].Value)
	assert.Equal(t, 1050.0, series[1].Value) // carried-forward positions plus cash
	assert.Equal(t, 1200.0, series[2].Value)
	assert.Equal(t, now, series[3].Timestamp)
	assert.Equal(t, 1260.0, series[3].Value)

	assert.Equal(t, timeseries.Daily, snap.Granularity)
	assert.True(t, snap.PriceFresh)

	// Allocation from the end set
	require.Len(t, snap.Allocation, 2)
	assert.Equal(t, "AAA", snap.Allocation[0].Key)
	assert.InDelta(t, 60.87, snap.Allocation[0].Percent, 0.01)

	require.Len(t, snap.Activity, 1)
	assert.Equal(t, 50.0, snap.Activity[0].Amount)
}

func TestBuildDashboardLiveOverlayOnlyWhenNewer(t *testing.T) {
	f := setup(t, false)

	ts := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	f.insertBatch(t, "alice", "b1", ts, map[string]float64{"AAA": 100})
	f.live.cv = prices.CurrentValue{Value: 999}

	// "Now" equal to the stored bucket timestamp: no overlay appended
	snap, err := f.service.BuildDashboard("alice", "1M", ts)
	require.NoError(t, err)

	for _, p := range snap.Performance.Series {
		assert.NotEqual(t, 999.0, p.Value)
	}
}

func TestBuildDashboardAllRangeAnchorsOnStoredHistory(t *testing.T) {
	f := setup(t, false)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	t1 := time.Date(2024, 6, 15, 17, 0, 0, 0, time.UTC)
	t2 := time.Date(2025, 2, 20, 17, 0, 0, 0, time.UTC)
	f.insertBatch(t, "alice", "b1", t1, map[string]float64{"AAA": 500})
	f.insertBatch(t, "alice", "b2", t2, map[string]float64{"AAA": 800})

	snap, err := f.service.BuildDashboard("alice", "ALL", now)
	require.NoError(t, err)

	assert.Equal(t, timeseries.Monthly, snap.Granularity)
	assert.Equal(t, 500.0, snap.Total.Start)
	assert.Equal(t, 800.0, snap.Total.Current)

	// Monthly buckets for Jun 2024 and Feb 2025
	require.GreaterOrEqual(t, len(snap.Performance.PositionSeries), 2)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), snap.Performance.PositionSeries[0].Timestamp)
}

func TestBuildDashboardLiveFailureDegrades(t *testing.T) {
	f := setup(t, false)
	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

	f.insertBatch(t, "alice", "b1", now.AddDate(0, 0, -5), map[string]float64{"AAA": 100})
	f.live.err = assert.AnError

	snap, err := f.service.BuildDashboard("alice", "1M", now)
	require.NoError(t, err)

	// Stored history still served, freshness just drops
	assert.False(t, snap.PriceFresh)
	assert.NotEmpty(t, snap.Performance.Series)
}

func TestBuildDashboardServedFromCache(t *testing.T) {
	f := setup(t, true)
	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

	f.insertBatch(t, "alice", "b1", now.AddDate(0, 0, -5), map[string]float64{"AAA": 100})

	first, err := f.service.BuildDashboard("alice", "1M", now)
	require.NoError(t, err)

	// New data lands, but the cached payload is still inside its TTL
	f.insertBatch(t, "alice", "b2", now.Add(-time.Hour), map[string]float64{"AAA": 500})

	second, err := f.service.BuildDashboard("alice", "1M", now.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, first.Total, second.Total)

	// Invalidation forces a rebuild
	require.NoError(t, f.cache.Invalidate("alice"))
	third, err := f.service.BuildDashboard("alice", "1M", now.Add(2*time.Second))
	require.NoError(t, err)
	assert.Equal(t, 500.0, third.Total.Current)
}

package prices

import (
	"database/sql"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/foliotrack/foliotrack/internal/modules/positions"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE price_cache (
			symbol TEXT PRIMARY KEY,
			price REAL NOT NULL,
			updated_at INTEGER NOT NULL
		);
	`)
	require.NoError(t, err)

	return db
}

type stubHoldings struct {
	holdings []positions.Holding
}

func (s *stubHoldings) CurrentHoldings(string) ([]positions.Holding, error) {
	return s.holdings, nil
}

type stubCashFlows struct {
	total float64
}

func (s *stubCashFlows) TotalPaidThrough(string, time.Time) (float64, error) {
	return s.total, nil
}

func TestRepositoryUpsertAndGet(t *testing.T) {
	repo := NewRepository(setupTestDB(t), zerolog.Nop())

	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Upsert("VWCE", 110.5, at))
	require.NoError(t, repo.Upsert("VWCE", 111.0, at.Add(time.Minute)))

	p, err := repo.Get("VWCE")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, 111.0, p.Price)
	assert.Equal(t, at.Add(time.Minute), p.UpdatedAt)

	missing, err := repo.Get("NOPE")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCurrentValueWithFreshPrices(t *testing.T) {
	repo := NewRepository(setupTestDB(t), zerolog.Nop())
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Upsert("AAA", 100, now.Add(-time.Minute)))
	require.NoError(t, repo.Upsert("BBB", 50, now.Add(-2*time.Minute)))

	holdings := &stubHoldings{holdings: []positions.Holding{
		{Ticker: "AAA", Shares: 10, MarketValue: 950},
		{Ticker: "BBB", Shares: 4, MarketValue: 190},
	}}

	svc := NewService(repo, holdings, &stubCashFlows{total: 25}, 5*time.Minute, zerolog.Nop())

	cv, err := svc.CurrentValue("alice", now)
	require.NoError(t, err)

	// Live quotes win over stored market values
	assert.Equal(t, 1200.0, cv.Positions)
	assert.Equal(t, 25.0, cv.CashFlows)
	assert.Equal(t, 1225.0, cv.Value)
	assert.True(t, cv.PriceFresh)
}

func TestCurrentValueFallsBackToMarketValue(t *testing.T) {
	repo := NewRepository(setupTestDB(t), zerolog.Nop())
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Upsert("AAA", 100, now))

	holdings := &stubHoldings{holdings: []positions.Holding{
		{Ticker: "AAA", Shares: 10, MarketValue: 950},
		{Ticker: "UNQUOTED", Shares: 2, MarketValue: 300},
	}}

	svc := NewService(repo, holdings, &stubCashFlows{}, 5*time.Minute, zerolog.Nop())

	cv, err := svc.CurrentValue("alice", now)
	require.NoError(t, err)

	// Missing quote uses stored value and marks the result stale
	assert.Equal(t, 1300.0, cv.Positions)
	assert.False(t, cv.PriceFresh)
}

func TestCurrentValueStaleQuote(t *testing.T) {
	repo := NewRepository(setupTestDB(t), zerolog.Nop())
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Upsert("AAA", 100, now.Add(-10*time.Minute)))

	holdings := &stubHoldings{holdings: []positions.Holding{
		{Ticker: "AAA", Shares: 1, MarketValue: 90},
	}}

	svc := NewService(repo, holdings, &stubCashFlows{}, 5*time.Minute, zerolog.Nop())

	cv, err := svc.CurrentValue("alice", now)
	require.NoError(t, err)

	// Stale quote is still used for the value, only freshness drops
	assert.Equal(t, 100.0, cv.Positions)
	assert.False(t, cv.PriceFresh)
}

func TestCurrentValueEmptyPortfolio(t *testing.T) {
	repo := NewRepository(setupTestDB(t), zerolog.Nop())

	svc := NewService(repo, &stubHoldings{}, &stubCashFlows{total: 12}, 5*time.Minute, zerolog.Nop())

	cv, err := svc.CurrentValue("alice", time.Now())
	require.NoError(t, err)

	assert.Equal(t, 0.0, cv.Positions)
	assert.Equal(t, 12.0, cv.Value)
	assert.False(t, cv.PriceFresh)
}

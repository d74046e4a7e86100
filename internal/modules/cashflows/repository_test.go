package cashflows

import (
	"database/sql"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
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

	return db
}

func paid(owner, ticker string, amount float64, payDate time.Time) Event {
	return Event{OwnerID: owner, Ticker: ticker, Amount: amount, Status: StatusPaid, PayDate: payDate}
}

func TestInsertAndListPaid(t *testing.T) {
	repo := NewRepository(setupTestDB(t), zerolog.Nop())

	d1 := time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	_, err := repo.Insert(paid("alice", "VWCE", 12.5, d2))
	require.NoError(t, err)
	_, err = repo.Insert(paid("alice", "AGGH", 4.2, d1))
	require.NoError(t, err)
	_, err = repo.Insert(paid("bob", "VWCE", 99, d1))
	require.NoError(t, err)

	events, err := repo.ListPaid("alice", nil, d2.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, events, 2)

	// Oldest first
	assert.Equal(t, "AGGH", events[0].Ticker)
	assert.Equal(t, d1, events[0].PayDate)
	assert.Equal(t, "VWCE", events[1].Ticker)
}

func TestListPaidExcludesUpcoming(t *testing.T) {
	repo := NewRepository(setupTestDB(t), zerolog.Nop())

	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	_, err := repo.Insert(paid("alice", "VWCE", 10, now))
	require.NoError(t, err)

	future := now.AddDate(0, 1, 0)
	shares := 12.5
	_, err = repo.Insert(Event{
		OwnerID: "alice", Ticker: "VWCE", Amount: 11, Status: StatusUpcoming,
		PayDate: future, ExDate: &now, SharesAtExDate: &shares,
	})
	require.NoError(t, err)

	events, err := repo.ListPaid("alice", nil, future.AddDate(0, 1, 0))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, 10.0, events[0].Amount)

	upcoming, err := repo.ListUpcoming("alice", now)
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	assert.Equal(t, 11.0, upcoming[0].Amount)
	require.NotNil(t, upcoming[0].ExDate)
	assert.Equal(t, now, *upcoming[0].ExDate)
	require.NotNil(t, upcoming[0].SharesAtExDate)
	assert.Equal(t, shares, *upcoming[0].SharesAtExDate)
}

func TestMarkPaid(t *testing.T) {
	repo := NewRepository(setupTestDB(t), zerolog.Nop())

	payDate := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	id, err := repo.Insert(Event{
		OwnerID: "alice", Ticker: "VWCE", Amount: 5, Status: StatusUpcoming, PayDate: payDate,
	})
	require.NoError(t, err)

	require.NoError(t, repo.MarkPaid(id))

	total, err := repo.TotalPaidThrough("alice", payDate)
	require.NoError(t, err)
	assert.Equal(t, 5.0, total)
}

func TestTotalPaidThrough(t *testing.T) {
	repo := NewRepository(setupTestDB(t), zerolog.Nop())

	d1 := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC)
	d3 := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	for _, e := range []Event{
		paid("alice", "VWCE", 10, d1),
		paid("alice", "AGGH", 20, d2),
		paid("alice", "VWCE", 40, d3),
	} {
		_, err := repo.Insert(e)
		require.NoError(t, err)
	}

	total, err := repo.TotalPaidThrough("alice", d2)
	require.NoError(t, err)
	assert.Equal(t, 30.0, total)

	// Nothing paid yet
	total, err = repo.TotalPaidThrough("alice", d1.AddDate(0, 0, -1))
	require.NoError(t, err)
	assert.Equal(t, 0.0, total)
}

func TestPaidTotalsGroupsByDate(t *testing.T) {
	repo := NewRepository(setupTestDB(t), zerolog.Nop())

	d1 := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC)

	for _, e := range []Event{
		paid("alice", "VWCE", 10, d1),
		paid("alice", "AGGH", 5, d1),
		paid("alice", "VWCE", 7, d2),
	} {
		_, err := repo.Insert(e)
		require.NoError(t, err)
	}

	points, err := repo.PaidTotals("alice", nil, d2.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, points, 2)

	assert.Equal(t, d1, points[0].Timestamp)
	assert.Equal(t, 15.0, points[0].Value)
	assert.Equal(t, d2, points[1].Timestamp)
	assert.Equal(t, 7.0, points[1].Value)
}

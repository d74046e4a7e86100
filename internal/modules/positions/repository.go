package positions

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/foliotrack/foliotrack/internal/database"
	"github.com/foliotrack/foliotrack/internal/timeseries"
)

// Repository handles holdings and snapshot database operations
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new positions repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "positions").Logger(),
	}
}

// CurrentHoldings returns all holdings for an owner
func (r *Repository) CurrentHoldings(ownerID string) ([]Holding, error) {
	rows, err := r.db.Query(`SELECT owner_id, ticker, asset_type, shares, cost_basis, market_value, updated_at
		FROM positions WHERE owner_id = ? ORDER BY ticker`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	var holdings []Holding
	for rows.Next() {
		var h Holding
		var updatedAt int64
		if err := rows.Scan(&h.OwnerID, &h.Ticker, &h.AssetType, &h.Shares,
			&h.CostBasis, &h.MarketValue, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		h.UpdatedAt = time.Unix(updatedAt, 0).UTC()
		holdings = append(holdings, h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating holdings: %w", err)
	}

	return holdings, nil
}

// UpsertHolding inserts or replaces one holding row
func (r *Repository) UpsertHolding(h Holding) error {
	_, err := r.db.Exec(`INSERT INTO positions (owner_id, ticker, asset_type, shares, cost_basis, market_value, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(owner_id, ticker) DO UPDATE SET
			asset_type = excluded.asset_type,
			shares = excluded.shares,
			cost_basis = excluded.cost_basis,
			market_value = excluded.market_value,
			updated_at = excluded.updated_at`,
		h.OwnerID, h.Ticker, h.AssetType, h.Shares, h.CostBasis, h.MarketValue,
		h.UpdatedAt.UTC().Unix())
	if err != nil {
		return fmt.Errorf("failed to upsert holding %s/%s: %w", h.OwnerID, h.Ticker, err)
	}
	return nil
}

// Owners returns every owner that currently has holdings
func (r *Repository) Owners() ([]string, error) {
	rows, err := r.db.Query(`SELECT DISTINCT owner_id FROM positions ORDER BY owner_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query owners: %w", err)
	}
	defer rows.Close()

	var owners []string
	for rows.Next() {
		var owner string
		if err := rows.Scan(&owner); err != nil {
			return nil, fmt.Errorf("failed to scan owner: %w", err)
		}
		owners = append(owners, owner)
	}

	return owners, rows.Err()
}

// Tickers returns every distinct ticker currently held by any owner
func (r *Repository) Tickers() ([]string, error) {
	rows, err := r.db.Query(`SELECT DISTINCT ticker FROM positions ORDER BY ticker`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tickers: %w", err)
	}
	defer rows.Close()

	var tickers []string
	for rows.Next() {
		var ticker string
		if err := rows.Scan(&ticker); err != nil {
			return nil, fmt.Errorf("failed to scan ticker: %w", err)
		}
		tickers = append(tickers, ticker)
	}

	return tickers, rows.Err()
}

// InsertSnapshotBatch writes one snapshot pass atomically. Every row gets
// the same batch ID and timestamp.
func (r *Repository) InsertSnapshotBatch(batchID string, ts time.Time, snapshots []Snapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	unix := ts.UTC().Unix()

	return database.WithTransaction(r.db, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`INSERT INTO position_snapshots
			(owner_id, batch_id, ticker, asset_type, shares, price, value, snapshot_ts)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare snapshot insert: %w", err)
		}
		defer stmt.Close()

		for _, s := range snapshots {
			if _, err := stmt.Exec(s.OwnerID, batchID, s.Ticker, s.AssetType,
				s.Shares, s.Price, s.Value, unix); err != nil {
				return fmt.Errorf("failed to insert snapshot for %s: %w", s.Ticker, err)
			}
		}
		return nil
	})
}

// LastSnapshotTime returns the timestamp of the most recent snapshot for an
// owner, or nil when no snapshots exist.
func (r *Repository) LastSnapshotTime(ownerID string) (*time.Time, error) {
	return r.timestampQuery(`SELECT MAX(snapshot_ts) FROM position_snapshots WHERE owner_id = ?`, ownerID)
}

// EarliestSnapshotTime returns the timestamp of the very first snapshot for
// an owner, or nil when no snapshots exist.
func (r *Repository) EarliestSnapshotTime(ownerID string) (*time.Time, error) {
	return r.timestampQuery(`SELECT MIN(snapshot_ts) FROM position_snapshots WHERE owner_id = ?`, ownerID)
}

func (r *Repository) timestampQuery(query, ownerID string) (*time.Time, error) {
	var unix sql.NullInt64
	if err := r.db.QueryRow(query, ownerID).Scan(&unix); err != nil {
		return nil, fmt.Errorf("failed to query snapshot timestamp: %w", err)
	}
	if !unix.Valid {
		return nil, nil
	}
	ts := time.Unix(unix.Int64, 0).UTC()
	return &ts, nil
}

// PortfolioSeries returns the portfolio's total value over time, one point
// per distinct snapshot timestamp, newest first. Newest-first ordering is
// what the bucket reducer expects.
func (r *Repository) PortfolioSeries(ownerID string, start *time.Time, end time.Time) ([]timeseries.Point, error) {
	query := `SELECT snapshot_ts, SUM(value) FROM position_snapshots
		WHERE owner_id = ? AND snapshot_ts <= ?`
	args := []interface{}{ownerID, end.UTC().Unix()}

	if start != nil {
		query += ` AND snapshot_ts >= ?`
		args = append(args, start.UTC().Unix())
	}

	query += ` GROUP BY snapshot_ts ORDER BY snapshot_ts DESC`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolio series: %w", err)
	}
	defer rows.Close()

	var points []timeseries.Point
	for rows.Next() {
		var unix int64
		var value float64
		if err := rows.Scan(&unix, &value); err != nil {
			return nil, fmt.Errorf("failed to scan series point: %w", err)
		}
		points = append(points, timeseries.Point{
			Timestamp: time.Unix(unix, 0).UTC(),
			Value:     value,
		})
	}

	return points, rows.Err()
}

// RangeEndpoints returns the instrument snapshots that bound a window:
// baseline is the full set sharing the earliest timestamp inside the window
// and end the full set sharing the latest. When both resolve to the same
// timestamp the baseline comes back empty so callers never double count.
func (r *Repository) RangeEndpoints(ownerID string, start *time.Time, end time.Time) (baseline, endSet []Snapshot, err error) {
	endTS, err := r.boundTimestamp(
		`SELECT MAX(snapshot_ts) FROM position_snapshots WHERE owner_id = ? AND snapshot_ts <= ?`,
		ownerID, end.UTC().Unix())
	if err != nil {
		return nil, nil, err
	}
	if endTS == nil {
		return nil, nil, nil
	}

	var baselineTS *int64
	if start != nil {
		baselineTS, err = r.boundTimestamp(
			`SELECT MIN(snapshot_ts) FROM position_snapshots WHERE owner_id = ? AND snapshot_ts >= ? AND snapshot_ts <= ?`,
			ownerID, start.UTC().Unix(), end.UTC().Unix())
	} else {
		baselineTS, err = r.boundTimestamp(
			`SELECT MIN(snapshot_ts) FROM position_snapshots WHERE owner_id = ? AND snapshot_ts <= ?`,
			ownerID, end.UTC().Unix())
	}
	if err != nil {
		return nil, nil, err
	}

	endSet, err = r.snapshotsAt(ownerID, *endTS)
	if err != nil {
		return nil, nil, err
	}

	if baselineTS == nil || *baselineTS == *endTS {
		return nil, endSet, nil
	}

	baseline, err = r.snapshotsAt(ownerID, *baselineTS)
	if err != nil {
		return nil, nil, err
	}

	return baseline, endSet, nil
}

func (r *Repository) boundTimestamp(query string, args ...interface{}) (*int64, error) {
	var unix sql.NullInt64
	if err := r.db.QueryRow(query, args...).Scan(&unix); err != nil {
		return nil, fmt.Errorf("failed to query range bound: %w", err)
	}
	if !unix.Valid {
		return nil, nil
	}
	return &unix.Int64, nil
}

// snapshotsAt returns all instrument snapshots sharing one timestamp
func (r *Repository) snapshotsAt(ownerID string, unix int64) ([]Snapshot, error) {
	rows, err := r.db.Query(`SELECT id, owner_id, batch_id, ticker, asset_type, shares, price, value, snapshot_ts
		FROM position_snapshots WHERE owner_id = ? AND snapshot_ts = ? ORDER BY ticker`, ownerID, unix)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots at timestamp: %w", err)
	}
	defer rows.Close()

	return scanSnapshots(rows)
}

// ListSnapshots returns every instrument snapshot in a window, newest first
func (r *Repository) ListSnapshots(ownerID string, start *time.Time, end time.Time) ([]Snapshot, error) {
	query := `SELECT id, owner_id, batch_id, ticker, asset_type, shares, price, value, snapshot_ts
		FROM position_snapshots WHERE owner_id = ? AND snapshot_ts <= ?`
	args := []interface{}{ownerID, end.UTC().Unix()}

	if start != nil {
		query += ` AND snapshot_ts >= ?`
		args = append(args, start.UTC().Unix())
	}

	query += ` ORDER BY snapshot_ts DESC, ticker`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	return scanSnapshots(rows)
}

func scanSnapshots(rows *sql.Rows) ([]Snapshot, error) {
	var snapshots []Snapshot
	for rows.Next() {
		var s Snapshot
		var unix int64
		if err := rows.Scan(&s.ID, &s.OwnerID, &s.BatchID, &s.Ticker, &s.AssetType,
			&s.Shares, &s.Price, &s.Value, &unix); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		s.Timestamp = time.Unix(unix, 0).UTC()
		snapshots = append(snapshots, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshots: %w", err)
	}

	return snapshots, nil
}

package cashflows

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/foliotrack/foliotrack/internal/timeseries"
)

// Repository handles cash flow event database operations
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new cash flows repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "cashflows").Logger(),
	}
}

// Insert stores one cash flow event and returns its ID
func (r *Repository) Insert(e Event) (int64, error) {
	var exDate interface{}
	if e.ExDate != nil {
		exDate = e.ExDate.UTC().Unix()
	}
	var sharesAtEx interface{}
	if e.SharesAtExDate != nil {
		sharesAtEx = *e.SharesAtExDate
	}

	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	result, err := r.db.Exec(`INSERT INTO cash_flow_events
		(owner_id, ticker, amount, status, pay_date, ex_date, shares_at_ex_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.OwnerID, e.Ticker, e.Amount, e.Status, e.PayDate.UTC().Unix(),
		exDate, sharesAtEx, createdAt.UTC().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to insert cash flow event: %w", err)
	}

	return result.LastInsertId()
}

// MarkPaid flips an upcoming event to paid
func (r *Repository) MarkPaid(id int64) error {
	_, err := r.db.Exec(`UPDATE cash_flow_events SET status = ? WHERE id = ?`, StatusPaid, id)
	if err != nil {
		return fmt.Errorf("failed to mark cash flow event %d paid: %w", id, err)
	}
	return nil
}

// ListPaid returns paid events in a window, oldest first
func (r *Repository) ListPaid(ownerID string, start *time.Time, end time.Time) ([]Event, error) {
	query := `SELECT id, owner_id, ticker, amount, status, pay_date, ex_date, shares_at_ex_date, created_at
		FROM cash_flow_events WHERE owner_id = ? AND status = ? AND pay_date <= ?`
	args := []interface{}{ownerID, StatusPaid, end.UTC().Unix()}

	if start != nil {
		query += ` AND pay_date >= ?`
		args = append(args, start.UTC().Unix())
	}

	query += ` ORDER BY pay_date, id`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query paid cash flows: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// ListUpcoming returns scheduled events with a pay date at or after asOf
func (r *Repository) ListUpcoming(ownerID string, asOf time.Time) ([]Event, error) {
	rows, err := r.db.Query(`SELECT id, owner_id, ticker, amount, status, pay_date, ex_date, shares_at_ex_date, created_at
		FROM cash_flow_events WHERE owner_id = ? AND status = ? AND pay_date >= ?
		ORDER BY pay_date, id`,
		ownerID, StatusUpcoming, asOf.UTC().Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to query upcoming cash flows: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// TotalPaidThrough sums all paid amounts with a pay date at or before end
func (r *Repository) TotalPaidThrough(ownerID string, end time.Time) (float64, error) {
	var total sql.NullFloat64
	err := r.db.QueryRow(`SELECT SUM(amount) FROM cash_flow_events
		WHERE owner_id = ? AND status = ? AND pay_date <= ?`,
		ownerID, StatusPaid, end.UTC().Unix()).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum paid cash flows: %w", err)
	}
	return total.Float64, nil
}

// PaidTotals returns per-pay-date totals of paid events, oldest first.
// Callers bucket and cumulative-sum these to build the cash line.
func (r *Repository) PaidTotals(ownerID string, start *time.Time, end time.Time) ([]timeseries.Point, error) {
	query := `SELECT pay_date, SUM(amount) FROM cash_flow_events
		WHERE owner_id = ? AND status = ? AND pay_date <= ?`
	args := []interface{}{ownerID, StatusPaid, end.UTC().Unix()}

	if start != nil {
		query += ` AND pay_date >= ?`
		args = append(args, start.UTC().Unix())
	}

	query += ` GROUP BY pay_date ORDER BY pay_date`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query cash flow totals: %w", err)
	}
	defer rows.Close()

	var points []timeseries.Point
	for rows.Next() {
		var unix int64
		var amount float64
		if err := rows.Scan(&unix, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan cash flow total: %w", err)
		}
		points = append(points, timeseries.Point{
			Timestamp: time.Unix(unix, 0).UTC(),
			Value:     amount,
		})
	}

	return points, rows.Err()
}

func scanEvents(rows *sql.Rows) ([]Event, error) {
	var events []Event
	for rows.Next() {
		var e Event
		var payDate, createdAt int64
		var exDate sql.NullInt64
		var sharesAtEx sql.NullFloat64

		if err := rows.Scan(&e.ID, &e.OwnerID, &e.Ticker, &e.Amount, &e.Status,
			&payDate, &exDate, &sharesAtEx, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan cash flow event: %w", err)
		}

		e.PayDate = time.Unix(payDate, 0).UTC()
		e.CreatedAt = time.Unix(createdAt, 0).UTC()
		if exDate.Valid {
			ts := time.Unix(exDate.Int64, 0).UTC()
			e.ExDate = &ts
		}
		if sharesAtEx.Valid {
			e.SharesAtExDate = &sharesAtEx.Float64
		}

		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cash flow events: %w", err)
	}

	return events, nil
}

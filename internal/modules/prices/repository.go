// Package prices caches live quotes and computes the live portfolio value
// that overlays the historical series.
package prices

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// CachedPrice is the latest known quote for a symbol
type CachedPrice struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Repository handles price cache database operations
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new price cache repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "prices").Logger(),
	}
}

// Upsert stores the latest price for a symbol
func (r *Repository) Upsert(symbol string, price float64, at time.Time) error {
	_, err := r.db.Exec(`INSERT INTO price_cache (symbol, price, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(symbol) DO UPDATE SET
			price = excluded.price,
			updated_at = excluded.updated_at`,
		symbol, price, at.UTC().Unix())
	if err != nil {
		return fmt.Errorf("failed to upsert price for %s: %w", symbol, err)
	}
	return nil
}

// Get returns the cached price for a symbol, or nil when none is cached
func (r *Repository) Get(symbol string) (*CachedPrice, error) {
	var p CachedPrice
	var updatedAt int64
	err := r.db.QueryRow(`SELECT symbol, price, updated_at FROM price_cache WHERE symbol = ?`,
		symbol).Scan(&p.Symbol, &p.Price, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query price for %s: %w", symbol, err)
	}
	p.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &p, nil
}

// GetAll returns every cached price keyed by symbol
func (r *Repository) GetAll() (map[string]CachedPrice, error) {
	rows, err := r.db.Query(`SELECT symbol, price, updated_at FROM price_cache`)
	if err != nil {
		return nil, fmt.Errorf("failed to query price cache: %w", err)
	}
	defer rows.Close()

	prices := make(map[string]CachedPrice)
	for rows.Next() {
		var p CachedPrice
		var updatedAt int64
		if err := rows.Scan(&p.Symbol, &p.Price, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan cached price: %w", err)
		}
		p.UpdatedAt = time.Unix(updatedAt, 0).UTC()
		prices[p.Symbol] = p
	}

	return prices, rows.Err()
}

package dashboard

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// Cache stores assembled dashboards in the cache database so repeated
// requests inside the TTL skip the whole computation. Payloads are
// msgpack-encoded; the cache database is ephemeral and safe to wipe.
type Cache struct {
	db  *sql.DB
	ttl time.Duration
	log zerolog.Logger
}

// NewCache creates a dashboard cache with the given TTL
func NewCache(db *sql.DB, ttl time.Duration, log zerolog.Logger) *Cache {
	return &Cache{
		db:  db,
		ttl: ttl,
		log: log.With().Str("component", "dashboard-cache").Logger(),
	}
}

// Get returns a cached dashboard if one exists and is still fresh
func (c *Cache) Get(ownerID, rangeCode string, now time.Time) (*Snapshot, bool) {
	var payload []byte
	var createdAt int64

	err := c.db.QueryRow(`SELECT payload, created_at FROM dashboard_cache
		WHERE owner_id = ? AND range_code = ?`, ownerID, rangeCode).Scan(&payload, &createdAt)
	if err == sql.ErrNoRows {
		return nil, false
	}
	if err != nil {
		c.log.Warn().Err(err).Msg("Dashboard cache read failed")
		return nil, false
	}

	if now.UTC().Sub(time.Unix(createdAt, 0)) > c.ttl {
		return nil, false
	}

	var snap Snapshot
	if err := msgpack.Unmarshal(payload, &snap); err != nil {
		c.log.Warn().Err(err).Msg("Dashboard cache payload corrupt, ignoring")
		return nil, false
	}

	return &snap, true
}

// Put stores an assembled dashboard
func (c *Cache) Put(ownerID, rangeCode string, snap *Snapshot, now time.Time) error {
	payload, err := msgpack.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode dashboard: %w", err)
	}

	_, err = c.db.Exec(`INSERT INTO dashboard_cache (owner_id, range_code, payload, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(owner_id, range_code) DO UPDATE SET
			payload = excluded.payload,
			created_at = excluded.created_at`,
		ownerID, rangeCode, payload, now.UTC().Unix())
	if err != nil {
		return fmt.Errorf("failed to store dashboard cache: %w", err)
	}

	return nil
}

// Invalidate drops all cached dashboards for an owner. Called after new
// snapshots or cash flows land.
func (c *Cache) Invalidate(ownerID string) error {
	_, err := c.db.Exec(`DELETE FROM dashboard_cache WHERE owner_id = ?`, ownerID)
	if err != nil {
		return fmt.Errorf("failed to invalidate dashboard cache: %w", err)
	}
	return nil
}

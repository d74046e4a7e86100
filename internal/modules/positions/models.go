// Package positions provides access to current holdings and the append-only
// position snapshot history.
package positions

import "time"

// Holding is one currently held instrument for an owner.
type Holding struct {
	OwnerID     string    `json:"owner_id"`
	Ticker      string    `json:"ticker"`
	AssetType   string    `json:"asset_type"`
	Shares      float64   `json:"shares"`
	CostBasis   float64   `json:"cost_basis"`
	MarketValue float64   `json:"market_value"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Snapshot is a point-in-time valuation of one holding. Snapshots are
// append-only; rows sharing a batch ID were written together and share the
// same timestamp.
type Snapshot struct {
	ID        int64     `json:"id"`
	OwnerID   string    `json:"owner_id"`
	BatchID   string    `json:"batch_id"`
	Ticker    string    `json:"ticker"`
	AssetType string    `json:"asset_type"`
	Shares    float64   `json:"shares"`
	Price     float64   `json:"price"`
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// Package snapshots writes point-in-time portfolio valuations on a fixed
// cadence. Snapshots are the raw material for every history chart.
package snapshots

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/foliotrack/foliotrack/internal/modules/positions"
	"github.com/foliotrack/foliotrack/internal/modules/prices"
)

// minSnapshotGap suppresses duplicate batches when a capture is triggered
// twice in quick succession (manual trigger racing the scheduled job).
const minSnapshotGap = time.Second

// Service captures position snapshots for all owners
type Service struct {
	positions *positions.Repository
	prices    *prices.Repository
	log       zerolog.Logger
}

// NewService creates a new snapshot writer
func NewService(positionsRepo *positions.Repository, pricesRepo *prices.Repository, log zerolog.Logger) *Service {
	return &Service{
		positions: positionsRepo,
		prices:    pricesRepo,
		log:       log.With().Str("component", "snapshots").Logger(),
	}
}

// CaptureAll snapshots every owner that currently has holdings
func (s *Service) CaptureAll(now time.Time) error {
	owners, err := s.positions.Owners()
	if err != nil {
		return fmt.Errorf("failed to list owners: %w", err)
	}

	for _, owner := range owners {
		if _, err := s.Capture(owner, now); err != nil {
			s.log.Error().Err(err).Str("owner", owner).Msg("Snapshot capture failed")
		}
	}

	return nil
}

// Capture writes one snapshot batch for an owner and returns its batch ID.
// Returns an empty batch ID when the capture was skipped, either because a
// snapshot was written less than a second ago or because the owner holds
// nothing.
func (s *Service) Capture(ownerID string, now time.Time) (string, error) {
	now = now.UTC()

	last, err := s.positions.LastSnapshotTime(ownerID)
	if err != nil {
		return "", fmt.Errorf("failed to check last snapshot: %w", err)
	}
	if last != nil && now.Sub(*last) < minSnapshotGap {
		s.log.Debug().Str("owner", ownerID).Time("last", *last).Msg("Skipping snapshot, too soon after previous")
		return "", nil
	}

	holdings, err := s.positions.CurrentHoldings(ownerID)
	if err != nil {
		return "", fmt.Errorf("failed to load holdings: %w", err)
	}
	if len(holdings) == 0 {
		return "", nil
	}

	cached, err := s.prices.GetAll()
	if err != nil {
		return "", fmt.Errorf("failed to load price cache: %w", err)
	}

	batchID := uuid.NewString()
	snaps := make([]positions.Snapshot, 0, len(holdings))

	for _, h := range holdings {
		price, value := valuate(h, cached)
		snaps = append(snaps, positions.Snapshot{
			OwnerID:   ownerID,
			BatchID:   batchID,
			Ticker:    h.Ticker,
			AssetType: h.AssetType,
			Shares:    h.Shares,
			Price:     price,
			Value:     value,
			Timestamp: now,
		})
	}

	if err := s.positions.InsertSnapshotBatch(batchID, now, snaps); err != nil {
		return "", fmt.Errorf("failed to write snapshot batch: %w", err)
	}

	s.log.Info().Str("owner", ownerID).Str("batch", batchID).Int("positions", len(snaps)).Msg("Snapshot captured")
	return batchID, nil
}

// valuate prices one holding from the cache, falling back to the stored
// market value when no quote exists
func valuate(h positions.Holding, cached map[string]prices.CachedPrice) (price, value float64) {
	if quote, ok := cached[h.Ticker]; ok {
		return quote.Price, h.Shares * quote.Price
	}

	if h.Shares > 0 {
		return h.MarketValue / h.Shares, h.MarketValue
	}
	return 0, h.MarketValue
}

package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/foliotrack/foliotrack/internal/clients/marketdata"
	"github.com/foliotrack/foliotrack/internal/database"
	"github.com/foliotrack/foliotrack/internal/modules/backup"
	"github.com/foliotrack/foliotrack/internal/modules/dashboard"
	"github.com/foliotrack/foliotrack/internal/modules/positions"
	"github.com/foliotrack/foliotrack/internal/modules/prices"
	"github.com/foliotrack/foliotrack/internal/modules/snapshots"
)

// PriceRefreshJob pulls latest quotes for every held ticker into the price
// cache
type PriceRefreshJob struct {
	quoter    marketdata.Quoter
	positions *positions.Repository
	prices    *prices.Repository
	log       zerolog.Logger
}

// NewPriceRefreshJob creates a price refresh job
func NewPriceRefreshJob(quoter marketdata.Quoter, positionsRepo *positions.Repository, pricesRepo *prices.Repository, log zerolog.Logger) *PriceRefreshJob {
	return &PriceRefreshJob{
		quoter:    quoter,
		positions: positionsRepo,
		prices:    pricesRepo,
		log:       log.With().Str("job", "price_refresh").Logger(),
	}
}

// Name returns the job name
func (j *PriceRefreshJob) Name() string { return "price_refresh" }

// Run fetches and caches the latest price for every held ticker
func (j *PriceRefreshJob) Run() error {
	tickers, err := j.positions.Tickers()
	if err != nil {
		return err
	}
	if len(tickers) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	quotes, err := j.quoter.LatestPrices(ctx, tickers)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	for symbol, price := range quotes {
		if err := j.prices.Upsert(symbol, price, now); err != nil {
			return err
		}
	}

	j.log.Debug().Int("requested", len(tickers)).Int("updated", len(quotes)).Msg("Prices refreshed")
	return nil
}

// SnapshotJob captures position snapshots for all owners and drops their
// cached dashboards so the next request sees the new point
type SnapshotJob struct {
	snapshots *snapshots.Service
	positions *positions.Repository
	cache     *dashboard.Cache
	log       zerolog.Logger
}

// NewSnapshotJob creates a snapshot job. cache may be nil.
func NewSnapshotJob(snapshotSvc *snapshots.Service, positionsRepo *positions.Repository, cache *dashboard.Cache, log zerolog.Logger) *SnapshotJob {
	return &SnapshotJob{
		snapshots: snapshotSvc,
		positions: positionsRepo,
		cache:     cache,
		log:       log.With().Str("job", "snapshot").Logger(),
	}
}

// Name returns the job name
func (j *SnapshotJob) Name() string { return "snapshot" }

// Run captures one snapshot batch per owner
func (j *SnapshotJob) Run() error {
	if err := j.snapshots.CaptureAll(time.Now().UTC()); err != nil {
		return err
	}

	if j.cache != nil {
		owners, err := j.positions.Owners()
		if err != nil {
			return err
		}
		for _, owner := range owners {
			if err := j.cache.Invalidate(owner); err != nil {
				j.log.Warn().Err(err).Str("owner", owner).Msg("Cache invalidation failed")
			}
		}
	}

	return nil
}

// WALCheckpointJob truncates the WAL files of all databases to keep them
// from growing unbounded
type WALCheckpointJob struct {
	databases []*database.DB
	log       zerolog.Logger
}

// NewWALCheckpointJob creates a WAL checkpoint job
func NewWALCheckpointJob(databases []*database.DB, log zerolog.Logger) *WALCheckpointJob {
	return &WALCheckpointJob{
		databases: databases,
		log:       log.With().Str("job", "wal_checkpoint").Logger(),
	}
}

// Name returns the job name
func (j *WALCheckpointJob) Name() string { return "wal_checkpoint" }

// Run checkpoints every database
func (j *WALCheckpointJob) Run() error {
	for _, db := range j.databases {
		if err := db.WALCheckpoint("TRUNCATE"); err != nil {
			return err
		}
		j.log.Debug().Str("database", db.Name()).Msg("WAL checkpointed")
	}
	return nil
}

// BackupJob uploads database backups to S3
type BackupJob struct {
	service *backup.Service
}

// NewBackupJob creates a backup job
func NewBackupJob(service *backup.Service) *BackupJob {
	return &BackupJob{service: service}
}

// Name returns the job name
func (j *BackupJob) Name() string { return "backup" }

// Run performs one backup pass
func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	return j.service.Run(ctx)
}

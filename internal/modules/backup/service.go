// Package backup uploads database files to S3 on a schedule.
package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/foliotrack/foliotrack/internal/database"
)

// Config holds backup destination settings
type Config struct {
	Bucket string
	Prefix string
	Region string
}

// Service uploads database files to S3. Each database gets a WAL
// checkpoint first so the uploaded file is self-contained.
type Service struct {
	uploader  *manager.Uploader
	cfg       Config
	databases []*database.DB
	log       zerolog.Logger
}

// NewService creates a backup service. Credentials come from the default
// AWS credential chain.
func NewService(ctx context.Context, cfg Config, databases []*database.DB, log zerolog.Logger) (*Service, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("backup bucket is required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &Service{
		uploader:  manager.NewUploader(s3.NewFromConfig(awsCfg)),
		cfg:       cfg,
		databases: databases,
		log:       log.With().Str("component", "backup").Logger(),
	}, nil
}

// Run backs up every registered database
func (s *Service) Run(ctx context.Context) error {
	now := time.Now().UTC()

	for _, db := range s.databases {
		if err := s.backupOne(ctx, db, now); err != nil {
			s.log.Error().Err(err).Str("database", db.Name()).Msg("Backup failed")
			return err
		}
	}

	return nil
}

func (s *Service) backupOne(ctx context.Context, db *database.DB, now time.Time) error {
	// Fold the WAL into the main file so the upload is consistent
	if err := db.WALCheckpoint("TRUNCATE"); err != nil {
		return fmt.Errorf("checkpoint before backup failed: %w", err)
	}

	file, err := os.Open(db.Path())
	if err != nil {
		return fmt.Errorf("failed to open database file: %w", err)
	}
	defer file.Close()

	key := objectKey(s.cfg.Prefix, db.Name(), filepath.Base(db.Path()), now)

	if _, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
		Body:   file,
	}); err != nil {
		return fmt.Errorf("upload to s3://%s/%s failed: %w", s.cfg.Bucket, key, err)
	}

	s.log.Info().Str("database", db.Name()).Str("key", key).Msg("Backup uploaded")
	return nil
}

// objectKey builds a date-partitioned key so old backups are easy to prune
func objectKey(prefix, dbName, fileName string, now time.Time) string {
	return fmt.Sprintf("%s/%s/%s/%s-%s",
		prefix, dbName, now.Format("2006-01-02"), now.Format("150405"), fileName)
}

// Package app wires configuration to the dataset sources shared by the binaries.
package app

import (
	"context"
	"fmt"
	"os"

	"github.com/andresuchdata/premium-allocation/internal/config"
	"github.com/andresuchdata/premium-allocation/internal/dataset"
	"github.com/andresuchdata/premium-allocation/internal/domain"
	"github.com/andresuchdata/premium-allocation/internal/drive"
	"github.com/andresuchdata/premium-allocation/internal/repository/postgres"
	"github.com/andresuchdata/premium-allocation/internal/storage"
	"github.com/rs/zerolog/log"
)

// NewSource returns the file source for the local, s3 and drive kinds.
func NewSource(ctx context.Context, cfg *config.Config) (dataset.Source, error) {
	switch cfg.Data.Source {
	case config.SourceLocal, "":
		return dataset.LocalSource{Dir: cfg.Data.Dir}, nil

	case config.SourceS3:
		store, err := NewObjectStorage(cfg.Storage)
		if err != nil {
			return nil, err
		}
		return dataset.ObjectSource{Store: store, Prefix: cfg.Storage.Prefix}, nil

	case config.SourceDrive:
		creds, err := driveCredentials(cfg.Drive)
		if err != nil {
			return nil, err
		}
		srv, err := drive.NewService(ctx, creds)
		if err != nil {
			return nil, err
		}
		return dataset.NewDriveSource(srv, cfg.Drive.FolderPath), nil

	default:
		return nil, fmt.Errorf("%w: data source %q has no file source", domain.ErrInvalidInput, cfg.Data.Source)
	}
}

// NewObjectStorage connects to the configured bucket.
func NewObjectStorage(cfg config.StorageConfig) (*storage.S3Client, error) {
	return storage.NewS3Client(storage.S3Config{
		Endpoint:  cfg.Endpoint,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
		Bucket:    cfg.Bucket,
		Region:    cfg.Region,
		UseSSL:    cfg.UseSSL,
	})
}

// NewLoader returns the loader for the configured source. The returned close
// function releases whatever the loader opened.
func NewLoader(ctx context.Context, cfg *config.Config) (dataset.Loader, func() error, error) {
	if cfg.Data.Source == config.SourcePostgres {
		db, err := postgres.NewDB(&cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		return postgres.NewDatasetRepository(db), db.Close, nil
	}

	src, err := NewSource(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return dataset.NewFileLoader(src, cfg.Data.Files), func() error { return nil }, nil
}

// LoadDataset builds the joined dataset from the configured source.
func LoadDataset(ctx context.Context, cfg *config.Config) (*domain.Dataset, []domain.Warning, error) {
	loader, closeFn, err := NewLoader(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	defer func() {
		if err := closeFn(); err != nil {
			log.Warn().Err(err).Msg("failed to close dataset source")
		}
	}()

	log.Info().Str("source", cfg.Data.Source).Strs("region_codes", cfg.Data.RegionCodes).Msg("loading dataset")
	return dataset.Build(ctx, loader, cfg.Data.RegionCodes)
}

func driveCredentials(cfg config.DriveConfig) (string, error) {
	if cfg.CredentialsJSON != "" {
		return cfg.CredentialsJSON, nil
	}
	if cfg.CredentialsFile == "" {
		return "", fmt.Errorf("%w: DRIVE_CREDENTIALS_JSON or DRIVE_CREDENTIALS_FILE is required", domain.ErrInvalidInput)
	}
	data, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return "", fmt.Errorf("failed to read drive credentials: %w", err)
	}
	return string(data), nil
}

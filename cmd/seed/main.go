package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/andresuchdata/premium-allocation/internal/app"
	"github.com/andresuchdata/premium-allocation/internal/cache"
	"github.com/andresuchdata/premium-allocation/internal/config"
	"github.com/andresuchdata/premium-allocation/internal/dataset"
	"github.com/andresuchdata/premium-allocation/internal/repository"
	"github.com/andresuchdata/premium-allocation/internal/repository/postgres"
	"github.com/andresuchdata/premium-allocation/pkg/logger"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

type ctxKey string

const dbKey ctxKey = "db"

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "db-url",
		Usage:   "Database connection string (defaults to the DB_* settings)",
		EnvVars: []string{"DATABASE_URL"},
	}
}

func newSourceFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "source",
			Usage: "Where to read the raw tables from: local, s3 or drive (defaults to DATA_SOURCE)",
		},
		&cli.StringFlag{
			Name:  "data-dir",
			Usage: "Directory holding the raw tables for the local source (defaults to DATA_DIR)",
		},
	}
}

func initDB(c *cli.Context) error {
	dbURL := c.String("db-url")
	if dbURL == "" {
		dbURL = config.Load().Database.URL()
	}

	db, err := sql.Open("pgx", dbURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.PingContext(c.Context); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	c.Context = context.WithValue(c.Context, dbKey, db)
	return nil
}

func closeDB(c *cli.Context) error {
	if db, ok := c.Context.Value(dbKey).(*sql.DB); ok && db != nil {
		return db.Close()
	}
	return nil
}

func dbFrom(c *cli.Context) (*sql.DB, error) {
	db, ok := c.Context.Value(dbKey).(*sql.DB)
	if !ok || db == nil {
		return nil, fmt.Errorf("database connection not initialized")
	}
	return db, nil
}

func wrapDB(db *sql.DB) *postgres.DB {
	return postgres.Wrap(sqlx.NewDb(db, "pgx"), 1)
}

// invalidateSimulations drops cached simulation results computed on the previous tables.
func invalidateSimulations(ctx context.Context) {
	simulationCache, err := cache.NewSimulationCache(ctx, config.Load().Cache)
	if err != nil {
		log.Warn().Err(err).Msg("simulation cache unavailable, skipping invalidation")
		return
	}
	if err := simulationCache.InvalidateAll(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to invalidate simulation cache")
		return
	}
	log.Info().Msg("simulation cache invalidated")
}

// sourceConfig applies the command line overrides to the loaded config.
func sourceConfig(c *cli.Context) *config.Config {
	cfg := *config.Load()
	if s := c.String("source"); s != "" {
		cfg.Data.Source = s
	}
	if d := c.String("data-dir"); d != "" {
		cfg.Data.Dir = d
	}
	return &cfg
}

func main() {
	cfg := config.Load()
	logger.SetLevel(cfg.LogLevel)

	cliApp := &cli.App{
		Name:  "seed",
		Usage: "Load the raw dataset tables into Postgres or an object store",
		Commands: []*cli.Command{
			{
				Name:   "seed",
				Usage:  "Replace the dataset tables in Postgres with the tables read from a source",
				Flags:  append(newSourceFlags(), newDBURLFlag()),
				Before: initDB,
				After:  closeDB,
				Action: runSeed,
			},
			{
				Name:   "counts",
				Usage:  "Print the row count of each dataset table",
				Flags:  []cli.Flag{newDBURLFlag()},
				Before: initDB,
				After:  closeDB,
				Action: runCounts,
			},
			{
				Name:  "upload",
				Usage: "Upload the local raw tables to the configured bucket",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "data-dir",
						Usage: "Directory holding the raw tables (defaults to DATA_DIR)",
					},
				},
				Action: runUpload,
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("seed failed")
	}
}

func runSeed(c *cli.Context) error {
	db, err := dbFrom(c)
	if err != nil {
		return err
	}
	cfg := sourceConfig(c)
	if cfg.Data.Source == config.SourcePostgres {
		return fmt.Errorf("cannot seed postgres from itself, pick local, s3 or drive")
	}

	ctx, cancel := context.WithTimeout(c.Context, 5*time.Minute)
	defer cancel()

	src, err := app.NewSource(ctx, cfg)
	if err != nil {
		return err
	}
	tables, err := dataset.NewFileLoader(src, cfg.Data.Files).Load(ctx)
	if err != nil {
		return err
	}

	log.Info().Str("source", src.String()).Msg("Starting database seeding...")

	var stats repository.IngestStats
	err = wrapDB(db).WithTx(ctx, func(tx *sql.Tx) error {
		repo := repository.NewIngestRepository(tx)
		if err := repo.Migrate(ctx); err != nil {
			return err
		}
		written, err := repo.IngestTables(ctx, tables)
		if err != nil {
			return fmt.Errorf("failed to ingest tables: %w", err)
		}
		stats = written
		return nil
	})
	if err != nil {
		return err
	}

	invalidateSimulations(ctx)

	log.Info().
		Int("regions", stats.Regions).
		Int("exposure", stats.Exposure).
		Int("income", stats.Income).
		Int("customers", stats.Customers).
		Int("warnings", len(tables.Warnings)).
		Msg("Database seeding completed")
	return nil
}

func runCounts(c *cli.Context) error {
	db, err := dbFrom(c)
	if err != nil {
		return err
	}

	repo := postgres.NewDatasetRepository(wrapDB(db))
	counts, err := repo.Counts(c.Context)
	if err != nil {
		return err
	}
	printCounts(c, counts)
	return nil
}

func printCounts(c *cli.Context, counts repository.TableCounts) {
	fmt.Fprintf(c.App.Writer, "regions\t%d\nexposure\t%d\nincome\t%d\ncustomers\t%d\n",
		counts.Regions, counts.Exposure, counts.Income, counts.Customers)
}

func runUpload(c *cli.Context) error {
	cfg := config.Load()
	dir := cfg.Data.Dir
	if d := c.String("data-dir"); d != "" {
		dir = d
	}

	store, err := app.NewObjectStorage(cfg.Storage)
	if err != nil {
		return err
	}

	files := cfg.Data.Files
	for _, name := range []string{files.Customers, files.Geography, files.Exposure, files.Income} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", name, err)
		}
		key := path.Join(cfg.Storage.Prefix, name)
		if err := store.UploadObject(c.Context, key, data); err != nil {
			return err
		}
		log.Info().Str("key", key).Int("bytes", len(data)).Msg("uploaded")
	}
	invalidateSimulations(c.Context)
	return nil
}

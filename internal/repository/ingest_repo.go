package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/andresuchdata/premium-allocation/internal/dataset"
	"github.com/andresuchdata/premium-allocation/internal/domain"
)

// Execer is satisfied by *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// Schema creates the dataset tables when missing.
const Schema = `
CREATE TABLE IF NOT EXISTS regions (
	region_id TEXT PRIMARY KEY,
	name      TEXT NOT NULL,
	geometry  JSONB,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS region_exposure (
	id           BIGSERIAL PRIMARY KEY,
	region_id    TEXT NOT NULL,
	census_count BIGINT NOT NULL
);
CREATE TABLE IF NOT EXISTS region_income (
	id            BIGSERIAL PRIMARY KEY,
	region_id     TEXT NOT NULL,
	median_income DOUBLE PRECISION
);
CREATE TABLE IF NOT EXISTS customers (
	id               BIGSERIAL PRIMARY KEY,
	region_id        TEXT NOT NULL,
	insured_value    DOUBLE PRECISION NOT NULL,
	loss_probability DOUBLE PRECISION NOT NULL,
	current_premium  DOUBLE PRECISION NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_customers_region ON customers (region_id);
`

// IngestRepository writes raw dataset tables
type IngestRepository struct {
	db Execer
}

func NewIngestRepository(db Execer) *IngestRepository {
	return &IngestRepository{db: db}
}

// Migrate applies Schema.
func (r *IngestRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Truncate clears the dataset tables and restarts customer ids so row order
// follows the next load.
func (r *IngestRepository) Truncate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `TRUNCATE customers, region_income, region_exposure, regions RESTART IDENTITY`)
	if err != nil {
		return fmt.Errorf("failed to truncate dataset tables: %w", err)
	}
	return nil
}

func (r *IngestRepository) UpsertRegion(ctx context.Context, g dataset.GeographyRow) error {
	query := `
		INSERT INTO regions (region_id, name, geometry, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (region_id)
		DO UPDATE SET name = EXCLUDED.name, geometry = EXCLUDED.geometry, updated_at = NOW()
	`
	var geometry interface{}
	if len(g.Geometry) > 0 {
		geometry = string(g.Geometry)
	}
	if _, err := r.db.ExecContext(ctx, query, g.RegionID, g.Name, geometry); err != nil {
		return fmt.Errorf("failed to upsert region %s: %w", g.RegionID, err)
	}
	return nil
}

func (r *IngestRepository) InsertExposure(ctx context.Context, rows []ExposureRow) error {
	return r.insertAll(ctx, `INSERT INTO region_exposure (region_id, census_count) VALUES ($1, $2)`, len(rows),
		func(i int) []interface{} { return []interface{}{rows[i].RegionID, rows[i].CensusCount} })
}

func (r *IngestRepository) InsertIncome(ctx context.Context, rows []IncomeRow) error {
	return r.insertAll(ctx, `INSERT INTO region_income (region_id, median_income) VALUES ($1, $2)`, len(rows),
		func(i int) []interface{} {
			income := sql.NullFloat64{Float64: rows[i].MedianIncome, Valid: rows[i].Known}
			return []interface{}{rows[i].RegionID, income}
		})
}

func (r *IngestRepository) InsertCustomers(ctx context.Context, customers []domain.Customer) error {
	query := `
		INSERT INTO customers (region_id, insured_value, loss_probability, current_premium)
		VALUES ($1, $2, $3, $4)
	`
	return r.insertAll(ctx, query, len(customers), func(i int) []interface{} {
		c := customers[i]
		return []interface{}{c.RegionID, c.InsuredValue, c.LossProbability, c.CurrentPremium}
	})
}

func (r *IngestRepository) insertAll(ctx context.Context, query string, n int, args func(i int) []interface{}) error {
	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i := 0; i < n; i++ {
		if _, err := stmt.ExecContext(ctx, args(i)...); err != nil {
			return fmt.Errorf("failed to insert row %d: %w", i, err)
		}
	}
	return nil
}

// IngestStats counts what was written
type IngestStats struct {
	Regions   int
	Exposure  int
	Income    int
	Customers int
}

// IngestTables replaces the dataset with the given tables. Callers pass a
// transaction so the replacement is atomic.
func (r *IngestRepository) IngestTables(ctx context.Context, t *dataset.Tables) (IngestStats, error) {
	var stats IngestStats
	if err := r.Truncate(ctx); err != nil {
		return stats, err
	}
	for _, g := range t.Geography {
		if err := r.UpsertRegion(ctx, g); err != nil {
			return stats, err
		}
		stats.Regions++
	}
	if err := r.InsertExposure(ctx, t.Exposure); err != nil {
		return stats, fmt.Errorf("exposure: %w", err)
	}
	stats.Exposure = len(t.Exposure)
	if err := r.InsertIncome(ctx, t.Income); err != nil {
		return stats, fmt.Errorf("income: %w", err)
	}
	stats.Income = len(t.Income)
	if err := r.InsertCustomers(ctx, t.Customers); err != nil {
		return stats, fmt.Errorf("customers: %w", err)
	}
	stats.Customers = len(t.Customers)
	return stats, nil
}

// row aliases keep callers off the dataset package for plain inserts
type (
	ExposureRow = dataset.ExposureRow
	IncomeRow   = dataset.IncomeRow
)

package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/andresuchdata/premium-allocation/internal/dataset"
	"github.com/andresuchdata/premium-allocation/internal/domain"
	"github.com/andresuchdata/premium-allocation/internal/repository"
	"github.com/rs/zerolog/log"
)

type datasetRepository struct {
	db *DB
}

func NewDatasetRepository(db *DB) *datasetRepository {
	return &datasetRepository{db: db}
}

var (
	_ repository.DatasetRepository = (*datasetRepository)(nil)
	_ dataset.Loader               = (*datasetRepository)(nil)
)

type regionRow struct {
	RegionID string         `db:"region_id"`
	Name     string         `db:"name"`
	Geometry sql.NullString `db:"geometry"`
}

type exposureRow struct {
	RegionID    string `db:"region_id"`
	CensusCount int64  `db:"census_count"`
}

type incomeRow struct {
	RegionID     string          `db:"region_id"`
	MedianIncome sql.NullFloat64 `db:"median_income"`
}

// Load reads the raw dataset tables in insertion order.
func (r *datasetRepository) Load(ctx context.Context) (*dataset.Tables, error) {
	var (
		regions   []regionRow
		exposure  []exposureRow
		income    []incomeRow
		customers []domain.Customer
	)

	err := r.db.withConn(ctx, func() error {
		if err := r.db.SelectContext(ctx, &regions,
			`SELECT region_id, name, geometry::text AS geometry FROM regions ORDER BY region_id`); err != nil {
			return fmt.Errorf("failed to query regions: %w", err)
		}
		if err := r.db.SelectContext(ctx, &exposure,
			`SELECT region_id, census_count FROM region_exposure ORDER BY id`); err != nil {
			return fmt.Errorf("failed to query exposure: %w", err)
		}
		if err := r.db.SelectContext(ctx, &income,
			`SELECT region_id, median_income FROM region_income ORDER BY id`); err != nil {
			return fmt.Errorf("failed to query income: %w", err)
		}
		if err := r.db.SelectContext(ctx, &customers, `
			SELECT region_id, insured_value, loss_probability, current_premium
			FROM customers
			ORDER BY id`); err != nil {
			return fmt.Errorf("failed to query customers: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	tables := &dataset.Tables{
		Customers: customers,
		Geography: make([]dataset.GeographyRow, 0, len(regions)),
		Exposure:  make([]dataset.ExposureRow, 0, len(exposure)),
		Income:    make([]dataset.IncomeRow, 0, len(income)),
	}
	for _, g := range regions {
		row := dataset.GeographyRow{RegionID: g.RegionID, Name: g.Name}
		if g.Geometry.Valid {
			row.Geometry = []byte(g.Geometry.String)
		}
		tables.Geography = append(tables.Geography, row)
	}
	for _, e := range exposure {
		tables.Exposure = append(tables.Exposure, dataset.ExposureRow{RegionID: e.RegionID, CensusCount: e.CensusCount})
	}
	for _, in := range income {
		tables.Income = append(tables.Income, dataset.IncomeRow{
			RegionID:     in.RegionID,
			MedianIncome: in.MedianIncome.Float64,
			Known:        in.MedianIncome.Valid,
		})
	}

	log.Info().
		Int("customers", len(customers)).
		Int("regions", len(regions)).
		Msg("dataset loaded from postgres")

	return tables, nil
}

func (r *datasetRepository) Counts(ctx context.Context) (repository.TableCounts, error) {
	var counts repository.TableCounts
	err := r.db.withConn(ctx, func() error {
		return r.db.GetContext(ctx, &counts, `
			SELECT
				(SELECT COUNT(*) FROM customers)       AS customers,
				(SELECT COUNT(*) FROM regions)         AS regions,
				(SELECT COUNT(*) FROM region_exposure) AS exposure,
				(SELECT COUNT(*) FROM region_income)   AS income`)
	})
	if err != nil {
		return counts, fmt.Errorf("failed to count dataset rows: %w", err)
	}
	return counts, nil
}

func (r *datasetRepository) String() string { return "postgres" }

package repository

import (
	"context"

	"github.com/andresuchdata/premium-allocation/internal/dataset"
)

// DatasetRepository serves the raw dataset tables from the database
type DatasetRepository interface {
	Load(ctx context.Context) (*dataset.Tables, error)
	Counts(ctx context.Context) (TableCounts, error)
}

// TableCounts reports the row count of each dataset table
type TableCounts struct {
	Customers int64 `db:"customers" json:"customers"`
	Regions   int64 `db:"regions" json:"regions"`
	Exposure  int64 `db:"exposure" json:"exposure"`
	Income    int64 `db:"income" json:"income"`
}

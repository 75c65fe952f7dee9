package dataset

import (
	"context"
	"fmt"
	"io"

	"github.com/andresuchdata/premium-allocation/internal/domain"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Loader produces the raw tables of a dataset
type Loader interface {
	Load(ctx context.Context) (*Tables, error)
}

// Source opens named files from wherever the raw tables live
type Source interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	String() string
}

// FileSet names the four raw table files inside a Source
type FileSet struct {
	Customers string `mapstructure:"customers_file"`
	Geography string `mapstructure:"geography_file"`
	Exposure  string `mapstructure:"exposure_file"`
	Income    string `mapstructure:"income_file"`
}

// DefaultFileSet matches the workshop data bundle.
func DefaultFileSet() FileSet {
	return FileSet{
		Customers: "customers.csv",
		Geography: "arrondissements.geojson",
		Exposure:  "city_exposure.csv",
		Income:    "filosofi_filtered.csv",
	}
}

// FileLoader reads the raw tables from a Source concurrently
type FileLoader struct {
	Source Source
	Files  FileSet
}

// NewFileLoader creates a FileLoader.
func NewFileLoader(src Source, files FileSet) *FileLoader {
	return &FileLoader{Source: src, Files: files}
}

// Load opens and parses the four tables in parallel.
func (l *FileLoader) Load(ctx context.Context) (*Tables, error) {
	var (
		tables  Tables
		custW   []domain.Warning
		geoW    []domain.Warning
		expW    []domain.Warning
		incomeW []domain.Warning
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		t, err := l.readTable(gctx, l.Files.Customers)
		if err != nil {
			return err
		}
		tables.Customers, custW, err = ParseCustomers(t)
		return err
	})
	g.Go(func() error {
		format, err := FormatFromName(l.Files.Geography)
		if err != nil {
			return err
		}
		rc, err := l.Source.Open(gctx, l.Files.Geography)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", l.Files.Geography, err)
		}
		defer rc.Close()
		tables.Geography, geoW, err = ParseGeography(rc, format)
		return err
	})
	g.Go(func() error {
		t, err := l.readTable(gctx, l.Files.Exposure)
		if err != nil {
			return err
		}
		tables.Exposure, expW, err = ParseExposure(t)
		return err
	})
	g.Go(func() error {
		t, err := l.readTable(gctx, l.Files.Income)
		if err != nil {
			return err
		}
		tables.Income, incomeW, err = ParseIncome(t)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// fixed order so warnings do not depend on goroutine scheduling
	for _, ws := range [][]domain.Warning{custW, geoW, expW, incomeW} {
		tables.Warnings = append(tables.Warnings, ws...)
	}

	log.Info().
		Str("source", l.Source.String()).
		Int("customers", len(tables.Customers)).
		Int("regions", len(tables.Geography)).
		Int("warnings", len(tables.Warnings)).
		Msg("raw tables loaded")

	return &tables, nil
}

func (l *FileLoader) readTable(ctx context.Context, name string) (*Table, error) {
	format, err := FormatFromName(name)
	if err != nil {
		return nil, err
	}
	rc, err := l.Source.Open(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer rc.Close()

	t, err := ReadTable(rc, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return t, nil
}

// Build loads the raw tables and joins them into a dataset.
func Build(ctx context.Context, loader Loader, regionCodes []string) (*domain.Dataset, []domain.Warning, error) {
	tables, err := loader.Load(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load dataset: %w", err)
	}

	ds, warnings := Join(tables, regionCodes)
	for _, w := range warnings {
		log.Warn().Str("code", w.Code).Str("region_id", w.RegionID).Msg(w.Message)
	}
	log.Info().
		Int("customers", len(ds.Customers)).
		Int("regions", len(ds.Regions)).
		Msg("dataset joined")

	return ds, warnings, nil
}

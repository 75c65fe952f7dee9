package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/andresuchdata/premium-allocation/internal/config"
	"github.com/andresuchdata/premium-allocation/internal/dataset"
	"github.com/andresuchdata/premium-allocation/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const geography = `{"type":"FeatureCollection","features":[
  {"type":"Feature","properties":{"insee":"75101","nom":"Paris 1er Arrondissement"},"geometry":null},
  {"type":"Feature","properties":{"insee":"75102","nom":"Paris 2e Arrondissement"},"geometry":null}
]}`

func localConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"customers.csv":           "COM,patrimoine,prob,model_premium\n75101,100000,0.01,250\n75102,50000,0.02,120\n",
		"arrondissements.geojson": geography,
		"city_exposure.csv":       "COM,index\n75101,1200\n75102,900\n",
		"filosofi_filtered.csv":   "COM,DISP_MED18\n75101,31000\n75102,\n",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}

	return &config.Config{
		Data: config.DataConfig{
			Source:      config.SourceLocal,
			Dir:         dir,
			Files:       dataset.DefaultFileSet(),
			RegionCodes: []string{"75101", "75102"},
		},
	}
}

func TestLoadDataset_Local(t *testing.T) {
	ds, warnings, err := LoadDataset(context.Background(), localConfig(t))
	require.NoError(t, err)

	assert.Len(t, ds.Regions, 2)
	assert.Len(t, ds.Customers, 2)
	require.Len(t, warnings, 1)
	assert.Equal(t, domain.CodeRegionNoIncome, warnings[0].Code)
	assert.Equal(t, "75102", warnings[0].RegionID)
}

func TestNewSource_Errors(t *testing.T) {
	ctx := context.Background()

	cfg := &config.Config{Data: config.DataConfig{Source: "ftp"}}
	_, err := NewSource(ctx, cfg)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	cfg.Data.Source = config.SourceS3
	_, err = NewSource(ctx, cfg)
	assert.Error(t, err, "bucket settings are required")

	cfg.Data.Source = config.SourceDrive
	_, err = NewSource(ctx, cfg)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	cfg.Drive.CredentialsFile = filepath.Join(t.TempDir(), "missing.json")
	_, err = NewSource(ctx, cfg)
	assert.Error(t, err)
}

func TestNewSource_S3(t *testing.T) {
	cfg := &config.Config{
		Data: config.DataConfig{Source: config.SourceS3},
		Storage: config.StorageConfig{
			Endpoint:  "http://localhost:9000",
			AccessKey: "minio",
			SecretKey: "minio123",
			Bucket:    "workshop",
			Prefix:    "data",
		},
	}
	src, err := NewSource(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "s3:data", src.String())
}

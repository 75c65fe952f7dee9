package config

import (
	"testing"

	"github.com/andresuchdata/premium-allocation/internal/churn"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadFresh(t *testing.T) *Config {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	setDefaults()
	viper.AutomaticEnv()
	return build()
}

func TestDefaults(t *testing.T) {
	cfg := loadFresh(t)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, SourceLocal, cfg.Data.Source)
	assert.Equal(t, ParisArrondissements, cfg.Data.RegionCodes)
	assert.Len(t, cfg.Data.RegionCodes, 20)
	assert.Equal(t, "customers.csv", cfg.Data.Files.Customers)
	assert.Equal(t, float64(DefaultTarget), cfg.Simulation.Target)
	assert.Equal(t, uint64(churn.DefaultSeed), cfg.Simulation.Seed)
	assert.Equal(t, churn.DefaultParams(), cfg.Simulation.Params)
	assert.False(t, cfg.Cache.Enabled)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("DATA_SOURCE", "S3")
	t.Setenv("DATA_REGION_CODES", "75101; 75102")
	t.Setenv("SIMULATION_TARGET", "150000")
	t.Setenv("SIMULATION_SEED", "42")
	t.Setenv("CHURN_SENSITIVITY", "2.5")
	t.Setenv("CACHE_ENABLED", "true")

	cfg := loadFresh(t)

	assert.Equal(t, SourceS3, cfg.Data.Source)
	assert.Equal(t, []string{"75101", "75102"}, cfg.Data.RegionCodes)
	assert.Equal(t, 150000.0, cfg.Simulation.Target)
	assert.Equal(t, uint64(42), cfg.Simulation.Seed)
	assert.Equal(t, 2.5, cfg.Simulation.Params.Sensitivity)
	assert.Equal(t, churn.DefaultBurdenFocus, cfg.Simulation.Params.BurdenFocus)
	require.True(t, cfg.Cache.Enabled)
}

func TestRegionCodesWildcard(t *testing.T) {
	t.Setenv("DATA_REGION_CODES", "*")
	assert.Nil(t, loadFresh(t).Data.RegionCodes)
}

func TestDatabaseConnectionStrings(t *testing.T) {
	db := DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "premiums", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=premiums sslmode=disable", db.DSN())
	assert.Equal(t, "postgres://u:p@db:5432/premiums?sslmode=disable", db.URL())
}

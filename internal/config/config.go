// internal/config/config.go
package config

import (
	"strings"
	"sync"

	"github.com/andresuchdata/premium-allocation/internal/churn"
	"github.com/andresuchdata/premium-allocation/internal/dataset"
	"github.com/andresuchdata/premium-allocation/internal/domain"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Cache      CacheConfig
	Storage    StorageConfig
	Drive      DriveConfig
	Data       DataConfig
	Simulation SimulationConfig
	LogLevel   string
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host          string
	Port          string
	User          string
	Password      string
	DBName        string
	SSLMode       string
	MaxConcurrent int64
}

// DSN renders the libpq keyword/value connection string.
func (c DatabaseConfig) DSN() string {
	return "host=" + c.Host + " port=" + c.Port + " user=" + c.User +
		" password=" + c.Password + " dbname=" + c.DBName + " sslmode=" + c.SSLMode
}

// URL renders the connection string as a postgres:// URL for pgx.
func (c DatabaseConfig) URL() string {
	return "postgres://" + c.User + ":" + c.Password + "@" + c.Host + ":" + c.Port + "/" + c.DBName + "?sslmode=" + c.SSLMode
}

type CacheConfig struct {
	Enabled              bool
	RedisURL             string
	RedisHost            string
	RedisPort            string
	RedisPassword        string
	RedisDB              int
	SimulationTTLSeconds int
}

type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
	Prefix    string
}

type DriveConfig struct {
	CredentialsFile string
	CredentialsJSON string
	FolderPath      string
}

// Data source kinds
const (
	SourceLocal    = "local"
	SourceS3       = "s3"
	SourceDrive    = "drive"
	SourcePostgres = "postgres"
)

type DataConfig struct {
	Source      string
	Dir         string
	Files       dataset.FileSet
	RegionCodes []string
}

type SimulationConfig struct {
	Target       float64
	Seed         uint64
	BatchWorkers int
	Params       domain.ChurnParams
}

// ParisArrondissements are the INSEE codes 75101 to 75120.
var ParisArrondissements = []string{
	"75101", "75102", "75103", "75104", "75105", "75106", "75107", "75108", "75109", "75110",
	"75111", "75112", "75113", "75114", "75115", "75116", "75117", "75118", "75119", "75120",
}

const DefaultTarget = 2_000_000

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		setDefaults()

		// Read from environment variables
		viper.AutomaticEnv()

		instance = build()
	})

	return instance
}

func setDefaults() {
	files := dataset.DefaultFileSet()
	params := churn.DefaultParams()

	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_MODE", "debug")
	viper.SetDefault("SERVER_READ_TIMEOUT", 15)
	viper.SetDefault("SERVER_WRITE_TIMEOUT", 60)
	viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "postgres")
	viper.SetDefault("DB_PASSWORD", "postgres")
	viper.SetDefault("DB_NAME", "premium_allocation")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_MAX_CONCURRENT", 10)
	viper.SetDefault("CACHE_ENABLED", false)
	viper.SetDefault("REDIS_URL", "")
	viper.SetDefault("REDIS_HOST", "127.0.0.1")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("CACHE_SIMULATION_TTL_SECONDS", 600)
	viper.SetDefault("STORAGE_REGION", "us-east-1")
	viper.SetDefault("STORAGE_USE_SSL", true)
	viper.SetDefault("STORAGE_PREFIX", "")
	viper.SetDefault("DRIVE_FOLDER_PATH", "")
	viper.SetDefault("DATA_SOURCE", SourceLocal)
	viper.SetDefault("DATA_DIR", "./data")
	viper.SetDefault("DATA_CUSTOMERS_FILE", files.Customers)
	viper.SetDefault("DATA_GEOGRAPHY_FILE", files.Geography)
	viper.SetDefault("DATA_EXPOSURE_FILE", files.Exposure)
	viper.SetDefault("DATA_INCOME_FILE", files.Income)
	viper.SetDefault("DATA_REGION_CODES", strings.Join(ParisArrondissements, ","))
	viper.SetDefault("SIMULATION_TARGET", DefaultTarget)
	viper.SetDefault("SIMULATION_SEED", churn.DefaultSeed)
	viper.SetDefault("SIMULATION_BATCH_WORKERS", 4)
	viper.SetDefault("CHURN_SENSITIVITY", params.Sensitivity)
	viper.SetDefault("CHURN_BURDEN_FOCUS", params.BurdenFocus)
	viper.SetDefault("CHURN_BASE", params.BaseChurn)
	viper.SetDefault("CHURN_INCOME_THRESHOLD", params.IncomeThreshold)
	viper.SetDefault("CHURN_VALUE_THRESHOLD", params.ValueThreshold)
	viper.SetDefault("CHURN_VALUE_FALLBACK_FACTOR", params.ValueFallbackFactor)
	viper.SetDefault("CHURN_MAX_PROBABILITY", params.MaxProbability)
	viper.SetDefault("CHURN_BURDEN_CAP", params.BurdenCap)
	viper.SetDefault("CHURN_INCOME_WEIGHT", params.IncomeWeight)
	viper.SetDefault("CHURN_VALUE_WEIGHT", params.ValueWeight)
}

func build() *Config {
	return &Config{
		LogLevel: viper.GetString("LOG_LEVEL"),
		Server: ServerConfig{
			Port:           viper.GetString("SERVER_PORT"),
			Mode:           viper.GetString("SERVER_MODE"),
			ReadTimeout:    viper.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:   viper.GetInt("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
		},
		Database: DatabaseConfig{
			Host:          viper.GetString("DB_HOST"),
			Port:          viper.GetString("DB_PORT"),
			User:          viper.GetString("DB_USER"),
			Password:      viper.GetString("DB_PASSWORD"),
			DBName:        viper.GetString("DB_NAME"),
			SSLMode:       viper.GetString("DB_SSLMODE"),
			MaxConcurrent: viper.GetInt64("DB_MAX_CONCURRENT"),
		},
		Cache: CacheConfig{
			Enabled:              viper.GetBool("CACHE_ENABLED"),
			RedisURL:             viper.GetString("REDIS_URL"),
			RedisHost:            viper.GetString("REDIS_HOST"),
			RedisPort:            viper.GetString("REDIS_PORT"),
			RedisPassword:        viper.GetString("REDIS_PASSWORD"),
			RedisDB:              viper.GetInt("REDIS_DB"),
			SimulationTTLSeconds: viper.GetInt("CACHE_SIMULATION_TTL_SECONDS"),
		},
		Storage: StorageConfig{
			Endpoint:  viper.GetString("STORAGE_ENDPOINT"),
			AccessKey: viper.GetString("STORAGE_ACCESS_KEY"),
			SecretKey: viper.GetString("STORAGE_SECRET_KEY"),
			Bucket:    viper.GetString("STORAGE_BUCKET"),
			Region:    viper.GetString("STORAGE_REGION"),
			UseSSL:    viper.GetBool("STORAGE_USE_SSL"),
			Prefix:    viper.GetString("STORAGE_PREFIX"),
		},
		Drive: DriveConfig{
			CredentialsFile: viper.GetString("DRIVE_CREDENTIALS_FILE"),
			CredentialsJSON: viper.GetString("DRIVE_CREDENTIALS_JSON"),
			FolderPath:      viper.GetString("DRIVE_FOLDER_PATH"),
		},
		Data: DataConfig{
			Source: strings.ToLower(viper.GetString("DATA_SOURCE")),
			Dir:    viper.GetString("DATA_DIR"),
			Files: dataset.FileSet{
				Customers: viper.GetString("DATA_CUSTOMERS_FILE"),
				Geography: viper.GetString("DATA_GEOGRAPHY_FILE"),
				Exposure:  viper.GetString("DATA_EXPOSURE_FILE"),
				Income:    viper.GetString("DATA_INCOME_FILE"),
			},
			RegionCodes: splitList(viper.GetString("DATA_REGION_CODES")),
		},
		Simulation: SimulationConfig{
			Target:       viper.GetFloat64("SIMULATION_TARGET"),
			Seed:         viper.GetUint64("SIMULATION_SEED"),
			BatchWorkers: viper.GetInt("SIMULATION_BATCH_WORKERS"),
			Params: domain.ChurnParams{
				Sensitivity:         viper.GetFloat64("CHURN_SENSITIVITY"),
				BurdenFocus:         viper.GetFloat64("CHURN_BURDEN_FOCUS"),
				BaseChurn:           viper.GetFloat64("CHURN_BASE"),
				IncomeThreshold:     viper.GetFloat64("CHURN_INCOME_THRESHOLD"),
				ValueThreshold:      viper.GetFloat64("CHURN_VALUE_THRESHOLD"),
				ValueFallbackFactor: viper.GetFloat64("CHURN_VALUE_FALLBACK_FACTOR"),
				MaxProbability:      viper.GetFloat64("CHURN_MAX_PROBABILITY"),
				BurdenCap:           viper.GetFloat64("CHURN_BURDEN_CAP"),
				IncomeWeight:        viper.GetFloat64("CHURN_INCOME_WEIGHT"),
				ValueWeight:         viper.GetFloat64("CHURN_VALUE_WEIGHT"),
			},
		},
	}
}

// splitList accepts comma or whitespace separated values; "*" or "" means no filter.
func splitList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "*" {
		return nil
	}
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == ';'
	})
	return fields
}

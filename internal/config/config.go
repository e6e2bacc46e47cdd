package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Storage  StorageConfig
	Drift    DriftConfig
	Registry RegistryConfig
	Metrics  MetricsConfig
	Logger   LoggerConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

// StorageConfig selects the persistence backend. Backend "memory" runs the
// whole service without postgres; artifacts go to ArtifactDir either way.
type StorageConfig struct {
	Backend      string // "postgres" or "memory"
	ArtifactDir  string
	MaxRetries   int
	RetryBackoff time.Duration
}

type DriftConfig struct {
	PSIThreshold     float64
	Significance     float64
	MinSampleSize    int
	NumericTolerance float64
	Workers          int
	ComputeBudget    time.Duration
	OutlierStdFactor float64
	// MissingDeltaPP is the absolute missing-rate increase, in percentage
	// points, above which a missing-spike anomaly is raised.
	MissingDeltaPP float64
	// OutlierProportion is the fraction of out-of-range values above which
	// an outlier anomaly is raised.
	OutlierProportion float64
}

type RegistryConfig struct {
	RegisterMaxAttempts int
}

type MetricsConfig struct {
	Enabled bool
}

type LoggerConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "mlops_monitoring")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 2)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "30m")
	v.SetDefault("STORAGE_BACKEND", "postgres")
	v.SetDefault("STORAGE_ARTIFACT_DIR", "/var/lib/mlops-monitoring/artifacts")
	v.SetDefault("STORAGE_MAX_RETRIES", 3)
	v.SetDefault("STORAGE_RETRY_BACKOFF", "200ms")
	v.SetDefault("DRIFT_PSI_THRESHOLD", 0.2)
	v.SetDefault("DRIFT_SIGNIFICANCE", 0.05)
	v.SetDefault("DRIFT_MIN_SAMPLE_SIZE", 50)
	v.SetDefault("DRIFT_NUMERIC_TOLERANCE", 0.01)
	v.SetDefault("DRIFT_WORKERS", 4)
	v.SetDefault("DRIFT_COMPUTE_BUDGET", "30s")
	v.SetDefault("DRIFT_OUTLIER_STD_FACTOR", 3.0)
	v.SetDefault("DRIFT_MISSING_DELTA_PP", 5.0)
	v.SetDefault("DRIFT_OUTLIER_PROPORTION", 0.01)
	v.SetDefault("REGISTRY_MAX_ATTEMPTS", 5)
	v.SetDefault("METRICS_ENABLED", true)
	v.SetDefault("LOGGER_LEVEL", "info")
	v.SetDefault("LOGGER_FORMAT", "json")

	// Env
	v.AutomaticEnv()

	connLifetime, err := time.ParseDuration(v.GetString("DB_CONN_MAX_LIFETIME"))
	if err != nil {
		connLifetime = 30 * time.Minute
	}
	retryBackoff, err := time.ParseDuration(v.GetString("STORAGE_RETRY_BACKOFF"))
	if err != nil {
		retryBackoff = 200 * time.Millisecond
	}
	computeBudget, err := time.ParseDuration(v.GetString("DRIFT_COMPUTE_BUDGET"))
	if err != nil {
		computeBudget = 30 * time.Second
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: v.GetString("SERVER_HOST"),
			Port: v.GetInt("SERVER_PORT"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("DB_HOST"),
			Port:            v.GetInt("DB_PORT"),
			User:            v.GetString("DB_USER"),
			Password:        v.GetString("DB_PASSWORD"),
			Name:            v.GetString("DB_NAME"),
			SSLMode:         v.GetString("DB_SSLMODE"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: connLifetime,
		},
		Storage: StorageConfig{
			Backend:      v.GetString("STORAGE_BACKEND"),
			ArtifactDir:  v.GetString("STORAGE_ARTIFACT_DIR"),
			MaxRetries:   v.GetInt("STORAGE_MAX_RETRIES"),
			RetryBackoff: retryBackoff,
		},
		Drift: DriftConfig{
			PSIThreshold:      v.GetFloat64("DRIFT_PSI_THRESHOLD"),
			Significance:      v.GetFloat64("DRIFT_SIGNIFICANCE"),
			MinSampleSize:     v.GetInt("DRIFT_MIN_SAMPLE_SIZE"),
			NumericTolerance:  v.GetFloat64("DRIFT_NUMERIC_TOLERANCE"),
			Workers:           v.GetInt("DRIFT_WORKERS"),
			ComputeBudget:     computeBudget,
			OutlierStdFactor:  v.GetFloat64("DRIFT_OUTLIER_STD_FACTOR"),
			MissingDeltaPP:    v.GetFloat64("DRIFT_MISSING_DELTA_PP"),
			OutlierProportion: v.GetFloat64("DRIFT_OUTLIER_PROPORTION"),
		},
		Registry: RegistryConfig{
			RegisterMaxAttempts: v.GetInt("REGISTRY_MAX_ATTEMPTS"),
		},
		Metrics: MetricsConfig{
			Enabled: v.GetBool("METRICS_ENABLED"),
		},
		Logger: LoggerConfig{
			Level:  v.GetString("LOGGER_LEVEL"),
			Format: v.GetString("LOGGER_FORMAT"),
		},
	}

	return cfg, nil
}

// pkg/config/config.go
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
)

// Config represents the application configuration
type Config struct {
	// Cleaning rules
	Cleaning *CleaningConfig

	// Optional relational store for the cleaned dataset and audit trail.
	// Nil when the pipeline writes files only.
	Postgres *PostgresConfig

	// I/O paths
	RawDataPath     string
	CleanedDataPath string
	AuditLogDir     string

	// Pipeline settings
	WorkerPoolSize int // 0 means sequential processing

	// Logging
	LogLevel  string
	LogFormat string
}

// CleaningConfig holds the configuration surface of the cleaning stages.
type CleaningConfig struct {
	// Synthetic-ID prefix for records extracted without a shipment ID
	IDPrefix string

	// Maximum plausible delivery duration in days
	MaxDeliveryDays int

	// Outlier detection: "stddev" or "iqr"
	OutlierMethod string
	StdDevFactor  float64
	IQRFactor     float64

	// Canonical region vocabulary and misspelling corrections
	CanonicalRegions  []string
	RegionCorrections map[string]string
}

const (
	OutlierMethodStdDev = "stddev"
	OutlierMethodIQR    = "iqr"
)

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Cleaning:        LoadCleaningConfig(),
		RawDataPath:     getEnv("SHIPMENTS_RAW_PATH", "data/raw/shipments.csv"),
		CleanedDataPath: getEnv("SHIPMENTS_CLEANED_PATH", "data/cleaned/shipments_cleaned.csv"),
		AuditLogDir:     getEnv("AUDIT_LOG_DIR", "data/logs"),
		WorkerPoolSize:  getEnvAsInt("WORKER_POOL_SIZE", 0),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       getEnv("LOG_FORMAT", "json"),
	}

	// Postgres is optional: only loaded when a database name is configured
	if os.Getenv("POSTGRES_DB") != "" {
		pgConfig, err := LoadPostgresConfig()
		if err != nil {
			return nil, errors.New("failed to load PostgreSQL configuration: " + err.Error())
		}
		cfg.Postgres = pgConfig
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadCleaningConfig loads the cleaning rule configuration from environment
// variables, falling back to the documented defaults.
func LoadCleaningConfig() *CleaningConfig {
	return &CleaningConfig{
		IDPrefix:        getEnv("SYNTHETIC_ID_PREFIX", "SYN-"),
		MaxDeliveryDays: getEnvAsInt("MAX_DELIVERY_DAYS", 30),
		OutlierMethod:   getEnv("OUTLIER_METHOD", OutlierMethodStdDev),
		StdDevFactor:    getEnvAsFloat("OUTLIER_STDDEV_FACTOR", 3.0),
		IQRFactor:       getEnvAsFloat("OUTLIER_IQR_FACTOR", 1.5),
		CanonicalRegions: getEnvAsStringSlice("CANONICAL_REGIONS",
			[]string{"North", "South", "East", "West"}),
		RegionCorrections: getEnvAsStringMap("REGION_CORRECTIONS", map[string]string{
			"Noth": "North",
			"Soth": "South",
			"Eest": "East",
			"Wes":  "West",
		}),
	}
}

// Validate ensures all required configuration is present and valid
func (c *Config) Validate() error {
	if c.Cleaning == nil {
		return errors.New("cleaning configuration is required")
	}

	if err := c.Cleaning.Validate(); err != nil {
		return err
	}

	if c.RawDataPath == "" {
		return errors.New("raw data path is required")
	}

	if c.AuditLogDir == "" {
		return errors.New("audit log directory is required")
	}

	if c.WorkerPoolSize < 0 {
		return errors.New("worker pool size cannot be negative")
	}

	return nil
}

// Validate checks the cleaning rule configuration for malformed values.
func (c *CleaningConfig) Validate() error {
	if c.IDPrefix == "" {
		return errors.New("synthetic ID prefix is required")
	}

	if c.MaxDeliveryDays <= 0 {
		return errors.New("maximum delivery days must be positive")
	}

	if c.OutlierMethod != OutlierMethodStdDev && c.OutlierMethod != OutlierMethodIQR {
		return errors.New("outlier method must be \"stddev\" or \"iqr\"")
	}

	if c.StdDevFactor <= 0 || c.IQRFactor <= 0 {
		return errors.New("outlier factors must be positive")
	}

	if len(c.CanonicalRegions) == 0 {
		return errors.New("canonical region vocabulary cannot be empty")
	}

	// Every correction must resolve into the canonical vocabulary,
	// otherwise a "repaired" region could still be unrecognized.
	canonical := make(map[string]struct{}, len(c.CanonicalRegions))
	for _, region := range c.CanonicalRegions {
		canonical[region] = struct{}{}
	}
	for from, to := range c.RegionCorrections {
		if _, ok := canonical[to]; !ok {
			return errors.New("region correction \"" + from + "\" maps to non-canonical region \"" + to + "\"")
		}
	}

	return nil
}

// Helper functions for environment variables
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsStringSlice parses a comma-separated list from the environment
func getEnvAsStringSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var result []string
	for _, v := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	if len(result) == 0 {
		return defaultValue
	}

	return result
}

// getEnvAsStringMap parses "from=to" pairs separated by commas
func getEnvAsStringMap(key string, defaultValue map[string]string) map[string]string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	result := make(map[string]string)
	for _, pair := range strings.Split(value, ",") {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			continue
		}
		from := strings.TrimSpace(parts[0])
		to := strings.TrimSpace(parts[1])
		if from != "" && to != "" {
			result[from] = to
		}
	}

	if len(result) == 0 {
		return defaultValue
	}

	return result
}

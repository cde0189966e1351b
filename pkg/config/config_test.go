package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_LoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "data/raw/shipments.csv", cfg.RawDataPath)
	assert.Equal(t, "data/cleaned/shipments_cleaned.csv", cfg.CleanedDataPath)
	assert.Equal(t, "data/logs", cfg.AuditLogDir)
	assert.Equal(t, 0, cfg.WorkerPoolSize)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Nil(t, cfg.Postgres, "Postgres stays off unless configured")

	require.NotNil(t, cfg.Cleaning)
	assert.Equal(t, "SYN-", cfg.Cleaning.IDPrefix)
	assert.Equal(t, 30, cfg.Cleaning.MaxDeliveryDays)
	assert.Equal(t, OutlierMethodStdDev, cfg.Cleaning.OutlierMethod)
	assert.InDelta(t, 3.0, cfg.Cleaning.StdDevFactor, 1e-9)
	assert.Equal(t, []string{"North", "South", "East", "West"}, cfg.Cleaning.CanonicalRegions)
	assert.Equal(t, "North", cfg.Cleaning.RegionCorrections["Noth"])
}

func Test_LoadConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv("SYNTHETIC_ID_PREFIX", "GEN/")
	t.Setenv("MAX_DELIVERY_DAYS", "45")
	t.Setenv("OUTLIER_METHOD", "iqr")
	t.Setenv("OUTLIER_IQR_FACTOR", "2.5")
	t.Setenv("CANONICAL_REGIONS", "North East, South West")
	t.Setenv("REGION_CORRECTIONS", "Nort-East=North East,SW=South West")
	t.Setenv("WORKER_POOL_SIZE", "8")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "GEN/", cfg.Cleaning.IDPrefix)
	assert.Equal(t, 45, cfg.Cleaning.MaxDeliveryDays)
	assert.Equal(t, OutlierMethodIQR, cfg.Cleaning.OutlierMethod)
	assert.InDelta(t, 2.5, cfg.Cleaning.IQRFactor, 1e-9)
	assert.Equal(t, []string{"North East", "South West"}, cfg.Cleaning.CanonicalRegions)
	assert.Equal(t, map[string]string{"Nort-East": "North East", "SW": "South West"},
		cfg.Cleaning.RegionCorrections)
	assert.Equal(t, 8, cfg.WorkerPoolSize)
}

func Test_LoadConfig_MalformedNumbersFallBackToDefaults(t *testing.T) {
	t.Setenv("MAX_DELIVERY_DAYS", "a month")
	t.Setenv("OUTLIER_STDDEV_FACTOR", "three")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.Cleaning.MaxDeliveryDays)
	assert.InDelta(t, 3.0, cfg.Cleaning.StdDevFactor, 1e-9)
}

func Test_Validate_RejectsBadConfigurations(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "unknown_outlier_method",
			mutate:  func(c *Config) { c.Cleaning.OutlierMethod = "zscore" },
			wantErr: "outlier method",
		},
		{
			name:    "non_positive_max_delivery_days",
			mutate:  func(c *Config) { c.Cleaning.MaxDeliveryDays = 0 },
			wantErr: "maximum delivery days",
		},
		{
			name:    "empty_id_prefix",
			mutate:  func(c *Config) { c.Cleaning.IDPrefix = "" },
			wantErr: "synthetic ID prefix",
		},
		{
			name:    "empty_region_vocabulary",
			mutate:  func(c *Config) { c.Cleaning.CanonicalRegions = nil },
			wantErr: "canonical region vocabulary",
		},
		{
			name: "correction_outside_vocabulary",
			mutate: func(c *Config) {
				c.Cleaning.RegionCorrections = map[string]string{"Norf": "Northern"}
			},
			wantErr: "non-canonical region",
		},
		{
			name:    "negative_worker_pool",
			mutate:  func(c *Config) { c.WorkerPoolSize = -1 },
			wantErr: "worker pool size",
		},
		{
			name:    "negative_outlier_factor",
			mutate:  func(c *Config) { c.Cleaning.StdDevFactor = -1 },
			wantErr: "outlier factors",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadConfig()
			require.NoError(t, err)

			tt.mutate(cfg)
			err = cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func Test_LoadConfig_PostgresLoadedWhenDatabaseNamed(t *testing.T) {
	t.Setenv("POSTGRES_DB", "shipments")
	t.Setenv("POSTGRES_HOST", "db.internal")
	t.Setenv("POSTGRES_USER", "etl")
	t.Setenv("POSTGRES_PASSWORD", "secret")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.NotNil(t, cfg.Postgres)
	assert.Equal(t, "shipments", cfg.Postgres.Database)
	assert.Equal(t, "db.internal", cfg.Postgres.Host)
}

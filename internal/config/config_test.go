package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const defaultBroker = "localhost:9092"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.False(t, cfg.Serve)

	assert.Equal(t, 10000, cfg.SyntheticSamples)
	assert.Equal(t, uint64(42), cfg.Seed)
	assert.Equal(t, DefaultNumericColumns, cfg.NumericColumns)
	assert.Equal(t, 48, cfg.Lookback)
	assert.Equal(t, 100, cfg.StormEpochs)
	assert.Equal(t, 24, cfg.ForecastHours)
	assert.Equal(t, 100, cfg.RecentRows)

	assert.Equal(t, "models", cfg.ModelDir)
	assert.Equal(t, "output", cfg.OutputDir)
	assert.False(t, cfg.ExportParquet)

	assert.False(t, cfg.CollectorEnabled)
	assert.Equal(t, "https://services.swpc.noaa.gov/products", cfg.NOAAProductsURL)
	assert.Equal(t, "https://services.swpc.noaa.gov/json", cfg.NOAAJSONURL)
	assert.Equal(t, "https://api.nasa.gov/DONKI", cfg.NASADonkiURL)
	assert.Equal(t, "DEMO_KEY", cfg.NASAAPIKey)
	assert.Equal(t, 10*time.Second, cfg.CollectorTimeout)
	assert.Equal(t, 32, cfg.CollectorCacheSize)

	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
	assert.Equal(t, "space-weather-alerts", cfg.KafkaAlertTopic)
	assert.Equal(t, 50, cfg.BatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.BatchFlushInterval)

	assert.Empty(t, cfg.ClickHouseAddr)
	assert.Equal(t, "space_weather", cfg.ClickHouseDatabase)
	assert.Equal(t, "predictions", cfg.ClickHouseTable)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("SERVE", "true")
	t.Setenv("SYNTHETIC_SAMPLES", "2000")
	t.Setenv("SEED", "7")
	t.Setenv("NUMERIC_COLUMNS", "solar_wind_speed, bz ,xray_flux")
	t.Setenv("LOOKBACK", "24")
	t.Setenv("STORM_EPOCHS", "5")
	t.Setenv("FORECAST_HOURS", "12")
	t.Setenv("RECENT_ROWS", "50")
	t.Setenv("MODEL_DIR", "/var/lib/forecaster/models")
	t.Setenv("OUTPUT_DIR", "/var/lib/forecaster/out")
	t.Setenv("EXPORT_PARQUET", "true")
	t.Setenv("COLLECTOR_ENABLED", "true")
	t.Setenv("NOAA_PRODUCTS_URL", "http://mock/products")
	t.Setenv("NOAA_JSON_URL", "http://mock/json")
	t.Setenv("NASA_DONKI_URL", "http://mock/DONKI")
	t.Setenv("NASA_API_KEY", "secret")
	t.Setenv("COLLECTOR_TIMEOUT", "3s")
	t.Setenv("COLLECTOR_CACHE_SIZE", "8")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_ALERT_TOPIC", "alerts")
	t.Setenv("BATCH_SIZE", "100")
	t.Setenv("BATCH_FLUSH_INTERVAL", "1s")
	t.Setenv("CLICKHOUSE_ADDR", "clickhouse:9000")
	t.Setenv("CLICKHOUSE_DATABASE", "wx")
	t.Setenv("CLICKHOUSE_TABLE", "kp")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.True(t, cfg.Serve)
	assert.Equal(t, 2000, cfg.SyntheticSamples)
	assert.Equal(t, uint64(7), cfg.Seed)
	assert.Equal(t, []string{"solar_wind_speed", "bz", "xray_flux"}, cfg.NumericColumns)
	assert.Equal(t, 24, cfg.Lookback)
	assert.Equal(t, 5, cfg.StormEpochs)
	assert.Equal(t, 12, cfg.ForecastHours)
	assert.Equal(t, 50, cfg.RecentRows)
	assert.Equal(t, "/var/lib/forecaster/models", cfg.ModelDir)
	assert.Equal(t, "/var/lib/forecaster/out", cfg.OutputDir)
	assert.True(t, cfg.ExportParquet)
	assert.True(t, cfg.CollectorEnabled)
	assert.Equal(t, "http://mock/products", cfg.NOAAProductsURL)
	assert.Equal(t, "http://mock/json", cfg.NOAAJSONURL)
	assert.Equal(t, "http://mock/DONKI", cfg.NASADonkiURL)
	assert.Equal(t, "secret", cfg.NASAAPIKey)
	assert.Equal(t, 3*time.Second, cfg.CollectorTimeout)
	assert.Equal(t, 8, cfg.CollectorCacheSize)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "alerts", cfg.KafkaAlertTopic)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, time.Second, cfg.BatchFlushInterval)
	assert.Equal(t, "clickhouse:9000", cfg.ClickHouseAddr)
	assert.Equal(t, "wx", cfg.ClickHouseDatabase)
	assert.Equal(t, "kp", cfg.ClickHouseTable)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"shutdown timeout not a duration", map[string]string{"SHUTDOWN_TIMEOUT": "not-a-duration"}, "SHUTDOWN_TIMEOUT"},
		{"negative shutdown timeout", map[string]string{"SHUTDOWN_TIMEOUT": "-1s"}, "SHUTDOWN_TIMEOUT"},
		{"batch size zero", map[string]string{"BATCH_SIZE": "0"}, "BATCH_SIZE"},
		{"flush interval not a duration", map[string]string{"BATCH_FLUSH_INTERVAL": "soon"}, "BATCH_FLUSH_INTERVAL"},
		{"collector timeout", map[string]string{"COLLECTOR_TIMEOUT": "bad"}, "COLLECTOR_TIMEOUT"},
		{"too few samples", map[string]string{"SYNTHETIC_SAMPLES": "99"}, "SYNTHETIC_SAMPLES"},
		{"too many samples", map[string]string{"SYNTHETIC_SAMPLES": "1000001"}, "SYNTHETIC_SAMPLES"},
		{"samples not a number", map[string]string{"SYNTHETIC_SAMPLES": "lots"}, "SYNTHETIC_SAMPLES"},
		{"zero lookback", map[string]string{"LOOKBACK": "0"}, "LOOKBACK"},
		{"lookback covers all samples", map[string]string{"SYNTHETIC_SAMPLES": "100", "LOOKBACK": "100"}, "LOOKBACK"},
		{"lookback leaves one window", map[string]string{"SYNTHETIC_SAMPLES": "100", "LOOKBACK": "99"}, "LOOKBACK"},
		{"serve not a boolean", map[string]string{"SERVE": "yes please"}, "SERVE"},
		{"kafka flag not a boolean", map[string]string{"KAFKA_ENABLED": "on"}, "KAFKA_ENABLED"},
		{"zero epochs", map[string]string{"STORM_EPOCHS": "0"}, "STORM_EPOCHS"},
		{"forecast beyond a week", map[string]string{"FORECAST_HOURS": "169"}, "FORECAST_HOURS"},
		{"zero recent rows", map[string]string{"RECENT_ROWS": "0"}, "RECENT_ROWS"},
		{"zero cache size", map[string]string{"COLLECTOR_CACHE_SIZE": "0"}, "COLLECTOR_CACHE_SIZE"},
		{"negative seed", map[string]string{"SEED": "-1"}, "SEED"},
		{"empty column list", map[string]string{"NUMERIC_COLUMNS": " , "}, "NUMERIC_COLUMNS"},
		{"unknown log format", map[string]string{"LOG_FORMAT": "xml"}, "LOG_FORMAT"},
		{"kafka without brokers", map[string]string{"KAFKA_ENABLED": "true", "KAFKA_BROKERS": ","}, "KAFKA_BROKERS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_BooleanSpellings(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"true", true},
		{"TRUE", true},
		{"1", true},
		{"false", false},
		{"0", false},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("SERVE", tt.value)
			t.Setenv("EXPORT_PARQUET", tt.value)
			t.Setenv("COLLECTOR_ENABLED", tt.value)
			cfg, err := Load()
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Serve)
			assert.Equal(t, tt.want, cfg.ExportParquet)
			assert.Equal(t, tt.want, cfg.CollectorEnabled)
		})
	}
}

func TestLoad_SmallestLookbackGap(t *testing.T) {
	t.Setenv("SYNTHETIC_SAMPLES", "100")
	t.Setenv("LOOKBACK", "98")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 98, cfg.Lookback)
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	// Serve keeps the HTTP server running after the batch run completes.
	Serve bool

	// Training and forecasting.
	SyntheticSamples int
	Seed             uint64
	NumericColumns   []string
	Lookback         int
	StormEpochs      int
	ForecastHours    int
	RecentRows       int

	// Output locations.
	ModelDir      string
	OutputDir     string
	ExportParquet bool

	// Real-time collector configuration.
	CollectorEnabled   bool
	NOAAProductsURL    string
	NOAAJSONURL        string
	NASADonkiURL       string
	NASAAPIKey         string
	CollectorTimeout   time.Duration
	CollectorCacheSize int

	// Alert publishing.
	KafkaEnabled       bool
	KafkaBrokers       []string
	KafkaAlertTopic    string
	BatchSize          int
	BatchFlushInterval time.Duration

	// Prediction sink. An empty address disables it.
	ClickHouseAddr     string
	ClickHouseDatabase string
	ClickHouseTable    string
}

// DefaultNumericColumns are the drivers that receive rolling, lag and
// rate-of-change features when NUMERIC_COLUMNS is unset.
var DefaultNumericColumns = []string{
	"solar_wind_speed",
	"proton_density",
	"bt",
	"bz",
	"temperature",
	"xray_flux",
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}
	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}
	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	collectorTimeout, err := parseDuration("COLLECTOR_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		NumericColumns: parseList(sharedcfg.EnvOrDefault("NUMERIC_COLUMNS", strings.Join(DefaultNumericColumns, ","))),

		ModelDir:      sharedcfg.EnvOrDefault("MODEL_DIR", "models"),
		OutputDir:     sharedcfg.EnvOrDefault("OUTPUT_DIR", "output"),

		NOAAProductsURL:  sharedcfg.EnvOrDefault("NOAA_PRODUCTS_URL", "https://services.swpc.noaa.gov/products"),
		NOAAJSONURL:      sharedcfg.EnvOrDefault("NOAA_JSON_URL", "https://services.swpc.noaa.gov/json"),
		NASADonkiURL:     sharedcfg.EnvOrDefault("NASA_DONKI_URL", "https://api.nasa.gov/DONKI"),
		NASAAPIKey:       sharedcfg.EnvOrDefault("NASA_API_KEY", "DEMO_KEY"),
		CollectorTimeout: collectorTimeout,

		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaAlertTopic:    sharedcfg.EnvOrDefault("KAFKA_ALERT_TOPIC", "space-weather-alerts"),
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		ClickHouseAddr:     os.Getenv("CLICKHOUSE_ADDR"),
		ClickHouseDatabase: sharedcfg.EnvOrDefault("CLICKHOUSE_DATABASE", "space_weather"),
		ClickHouseTable:    sharedcfg.EnvOrDefault("CLICKHOUSE_TABLE", "predictions"),
	}
	if cfg.Serve, err = parseBool("SERVE"); err != nil {
		return nil, err
	}
	if cfg.ExportParquet, err = parseBool("EXPORT_PARQUET"); err != nil {
		return nil, err
	}
	if cfg.CollectorEnabled, err = parseBool("COLLECTOR_ENABLED"); err != nil {
		return nil, err
	}
	if cfg.KafkaEnabled, err = parseBool("KAFKA_ENABLED"); err != nil {
		return nil, err
	}
	if cfg.SyntheticSamples, err = parseInt("SYNTHETIC_SAMPLES", 10000, 100, 1_000_000); err != nil {
		return nil, err
	}
	if cfg.Lookback, err = parseInt("LOOKBACK", 48, 1, 720); err != nil {
		return nil, err
	}
	if cfg.StormEpochs, err = parseInt("STORM_EPOCHS", 100, 1, 10_000); err != nil {
		return nil, err
	}
	if cfg.ForecastHours, err = parseInt("FORECAST_HOURS", 24, 1, 168); err != nil {
		return nil, err
	}
	if cfg.RecentRows, err = parseInt("RECENT_ROWS", 100, 1, 1_000_000); err != nil {
		return nil, err
	}
	if cfg.CollectorCacheSize, err = parseInt("COLLECTOR_CACHE_SIZE", 32, 1, 10_000); err != nil {
		return nil, err
	}

	seed, err := strconv.ParseUint(sharedcfg.EnvOrDefault("SEED", "42"), 10, 64)
	if err != nil {
		return nil, errors.New("invalid SEED: must be a non-negative integer")
	}
	cfg.Seed = seed

	if len(cfg.NumericColumns) == 0 {
		return nil, errors.New("NUMERIC_COLUMNS must name at least one column")
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("invalid LOG_FORMAT %q: must be json or text", cfg.LogFormat)
	}
	// Two storm windows minimum: one to train, one to test.
	if cfg.SyntheticSamples-cfg.Lookback < 2 {
		return nil, errors.New("LOOKBACK must be at most SYNTHETIC_SAMPLES - 2")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
	}

	return cfg, nil
}

func parseInt(name string, def, lo, hi int) (int, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < lo || n > hi {
		return 0, fmt.Errorf("invalid %s: must be an integer between %d and %d", name, lo, hi)
	}
	return n, nil
}

func parseDuration(name, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(name, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return d, nil
}

// parseBool reads an optional flag that defaults to false.
func parseBool(name string) (bool, error) {
	s := os.Getenv(name)
	if s == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s: must be a boolean", name)
	}
	return b, nil
}

func parseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

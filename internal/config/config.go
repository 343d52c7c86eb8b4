package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
// Constructed once at process start and passed by reference into each
// component; never mutated afterward.
type Config struct {
	// SNODAS acquisition.
	SnodasBaseURL string
	SnodasTimeout time.Duration

	// Basin boundary layer.
	BasinShapefile string
	BasinIDField   string
	BasinNameField string

	// Analysis grid: study-area extent (in the basin layer's projected
	// coordinates) and cell size in meters.
	ClipXMin, ClipYMin float64
	ClipXMax, ClipYMax float64
	CellSize           float64

	// Optional statistic columns.
	IncludeMax    bool
	IncludeMin    bool
	IncludeStdDev bool

	// Storage.
	OutputDir string
	WorkDir   string

	// Operations.
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	RunSchedule     string

	// Graph regeneration (external process; empty command disables).
	GraphCommand string
	GraphTimeout time.Duration

	// S3 publishing (feature-flagged via S3_ENABLED / S3_BUCKET).
	S3Enabled bool
	S3Bucket  string
	S3Prefix  string
	S3Region  string

	// Kafka publishing (feature-flagged via KAFKA_ENABLED / KAFKA_TOPIC).
	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads configuration from environment variables, applying defaults
// where unset. Every parse failure is reported at startup, before any date
// is touched.
func Load() (*Config, error) {
	cfg := &Config{
		SnodasBaseURL:  envOrDefault("SNODAS_BASE_URL", "https://noaadata.apps.nsidc.org/NOAA/G02158/masked"),
		BasinShapefile: envOrDefault("BASIN_SHAPEFILE", "data/basins.shp"),
		BasinIDField:   envOrDefault("BASIN_ID_FIELD", "LOCAL_ID"),
		BasinNameField: envOrDefault("BASIN_NAME_FIELD", "LOCAL_NAME"),
		OutputDir:      envOrDefault("OUTPUT_DIR", "output"),
		WorkDir:        envOrDefault("WORK_DIR", "work"),
		HTTPAddr:       envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:       envOrDefault("LOG_LEVEL", "info"),
		LogFormat:      envOrDefault("LOG_FORMAT", "json"),
		RunSchedule:    envOrDefault("RUN_SCHEDULE", "0 6 * * *"),
		GraphCommand:   os.Getenv("GRAPH_COMMAND"),
		S3Bucket:       os.Getenv("S3_BUCKET"),
		S3Prefix:       envOrDefault("S3_PREFIX", "snodas"),
		S3Region:       envOrDefault("AWS_REGION", "us-west-2"),
		KafkaBrokers:   strings.Split(envOrDefault("KAFKA_BROKERS", "localhost:9092"), ","),
		KafkaTopic:     os.Getenv("KAFKA_TOPIC"),
	}

	var err error
	if cfg.SnodasTimeout, err = durationEnv("SNODAS_TIMEOUT", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = durationEnv("SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.GraphTimeout, err = durationEnv("GRAPH_TIMEOUT", 5*time.Minute); err != nil {
		return nil, err
	}

	// The optional-statistic flags must be valid booleans; anything else is
	// a startup error, not a silent default.
	if cfg.IncludeMax, err = boolEnv("INCLUDE_MAX", false); err != nil {
		return nil, err
	}
	if cfg.IncludeMin, err = boolEnv("INCLUDE_MIN", false); err != nil {
		return nil, err
	}
	if cfg.IncludeStdDev, err = boolEnv("INCLUDE_STDDEV", false); err != nil {
		return nil, err
	}

	if cfg.CellSize, err = floatEnv("CELL_SIZE", 1000); err != nil {
		return nil, err
	}
	if cfg.CellSize <= 0 {
		return nil, fmt.Errorf("invalid CELL_SIZE: must be positive")
	}
	if err = loadClipExtent(cfg); err != nil {
		return nil, err
	}

	if err = loadS3(cfg); err != nil {
		return nil, err
	}
	if err = loadKafka(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadClipExtent parses CLIP_EXTENT as "xmin,ymin,xmax,ymax". Unset leaves
// the extent zero, meaning no study-area clipping.
func loadClipExtent(cfg *Config) error {
	raw := os.Getenv("CLIP_EXTENT")
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return fmt.Errorf("invalid CLIP_EXTENT %q: want xmin,ymin,xmax,ymax", raw)
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return fmt.Errorf("invalid CLIP_EXTENT %q: %w", raw, err)
		}
		vals[i] = v
	}
	cfg.ClipXMin, cfg.ClipYMin, cfg.ClipXMax, cfg.ClipYMax = vals[0], vals[1], vals[2], vals[3]
	if cfg.ClipXMin >= cfg.ClipXMax || cfg.ClipYMin >= cfg.ClipYMax {
		return fmt.Errorf("invalid CLIP_EXTENT %q: empty extent", raw)
	}
	return nil
}

// HasClipExtent reports whether a study-area extent was configured.
func (c *Config) HasClipExtent() bool {
	return c.ClipXMax > c.ClipXMin && c.ClipYMax > c.ClipYMin
}

func loadS3(cfg *Config) error {
	enabled, explicit, err := optionalBoolEnv("S3_ENABLED")
	if err != nil {
		return err
	}
	switch {
	case explicit && enabled && cfg.S3Bucket == "":
		return fmt.Errorf("S3_ENABLED is true but S3_BUCKET is not set")
	case explicit:
		cfg.S3Enabled = enabled
	default:
		// A configured bucket implies publishing is wanted.
		cfg.S3Enabled = cfg.S3Bucket != ""
	}
	return nil
}

func loadKafka(cfg *Config) error {
	enabled, explicit, err := optionalBoolEnv("KAFKA_ENABLED")
	if err != nil {
		return err
	}
	switch {
	case explicit && enabled && cfg.KafkaTopic == "":
		return fmt.Errorf("KAFKA_ENABLED is true but KAFKA_TOPIC is not set")
	case explicit:
		cfg.KafkaEnabled = enabled
	default:
		cfg.KafkaEnabled = cfg.KafkaTopic != ""
	}
	return nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, raw)
	}
	return d, nil
}

func boolEnv(key string, def bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %q is not a boolean", key, raw)
	}
	return b, nil
}

// optionalBoolEnv distinguishes "unset" from an explicit value.
func optionalBoolEnv(key string) (value, explicit bool, err error) {
	raw := os.Getenv(key)
	if raw == "" {
		return false, false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false, fmt.Errorf("invalid %s: %q is not a boolean", key, raw)
	}
	return b, true, nil
}

func floatEnv(key string, def float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, raw)
	}
	return v, nil
}

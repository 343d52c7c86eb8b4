package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://noaadata.apps.nsidc.org/NOAA/G02158/masked", cfg.SnodasBaseURL)
	assert.Equal(t, 5*time.Minute, cfg.SnodasTimeout)
	assert.Equal(t, "LOCAL_ID", cfg.BasinIDField)
	assert.Equal(t, "LOCAL_NAME", cfg.BasinNameField)
	assert.Equal(t, "output", cfg.OutputDir)
	assert.Equal(t, 1000.0, cfg.CellSize)
	assert.False(t, cfg.IncludeMax)
	assert.False(t, cfg.IncludeMin)
	assert.False(t, cfg.IncludeStdDev)
	assert.False(t, cfg.HasClipExtent())
	assert.False(t, cfg.S3Enabled)
	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "0 6 * * *", cfg.RunSchedule)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SNODAS_BASE_URL", "http://mirror.example/snodas")
	t.Setenv("SNODAS_TIMEOUT", "30s")
	t.Setenv("BASIN_SHAPEFILE", "/data/basins.shp")
	t.Setenv("INCLUDE_MAX", "true")
	t.Setenv("INCLUDE_STDDEV", "1")
	t.Setenv("CELL_SIZE", "500")
	t.Setenv("KAFKA_BROKERS", "a:9092,b:9092")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://mirror.example/snodas", cfg.SnodasBaseURL)
	assert.Equal(t, 30*time.Second, cfg.SnodasTimeout)
	assert.Equal(t, "/data/basins.shp", cfg.BasinShapefile)
	assert.True(t, cfg.IncludeMax)
	assert.False(t, cfg.IncludeMin)
	assert.True(t, cfg.IncludeStdDev)
	assert.Equal(t, 500.0, cfg.CellSize)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.KafkaBrokers)
}

func TestLoad_InvalidStatFlagFailsStartup(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"INCLUDE_MAX", "yes"},
		{"INCLUDE_MIN", "enabled"},
		{"INCLUDE_STDDEV", "maybe"},
	}
	for _, tc := range tests {
		t.Run(tc.key, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.key)
		})
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("SNODAS_TIMEOUT", "soon")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SNODAS_TIMEOUT")
}

func TestLoad_ClipExtent(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		t.Setenv("CLIP_EXTENT", "100000,200000,300000,400000")
		cfg, err := Load()
		require.NoError(t, err)
		assert.True(t, cfg.HasClipExtent())
		assert.Equal(t, 100000.0, cfg.ClipXMin)
		assert.Equal(t, 400000.0, cfg.ClipYMax)
	})

	t.Run("wrong arity", func(t *testing.T) {
		t.Setenv("CLIP_EXTENT", "1,2,3")
		_, err := Load()
		require.Error(t, err)
	})

	t.Run("empty extent", func(t *testing.T) {
		t.Setenv("CLIP_EXTENT", "5,5,5,5")
		_, err := Load()
		require.Error(t, err)
	})
}

func TestLoad_S3Flag(t *testing.T) {
	t.Run("bucket implies enabled", func(t *testing.T) {
		t.Setenv("S3_BUCKET", "swe-products")
		cfg, err := Load()
		require.NoError(t, err)
		assert.True(t, cfg.S3Enabled)
	})

	t.Run("explicit disable wins", func(t *testing.T) {
		t.Setenv("S3_BUCKET", "swe-products")
		t.Setenv("S3_ENABLED", "false")
		cfg, err := Load()
		require.NoError(t, err)
		assert.False(t, cfg.S3Enabled)
	})

	t.Run("enabled without bucket fails", func(t *testing.T) {
		t.Setenv("S3_ENABLED", "true")
		_, err := Load()
		require.Error(t, err)
	})
}

func TestLoad_KafkaFlag(t *testing.T) {
	t.Run("topic implies enabled", func(t *testing.T) {
		t.Setenv("KAFKA_TOPIC", "swe.records")
		cfg, err := Load()
		require.NoError(t, err)
		assert.True(t, cfg.KafkaEnabled)
	})

	t.Run("enabled without topic fails", func(t *testing.T) {
		t.Setenv("KAFKA_ENABLED", "true")
		_, err := Load()
		require.Error(t, err)
	})
}

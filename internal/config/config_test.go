package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chTempDir moves the test into an empty directory so no config.yaml is found.
func chTempDir(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
}

func TestLoadDefaults(t *testing.T) {
	chTempDir(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "data/intake-memory.db", cfg.Store.Path)
	assert.Equal(t, 1000, cfg.Store.BucketCap)

	assert.InDelta(t, 0.1, cfg.Mapper.AliasBoost, 1e-9)
	assert.InDelta(t, 0.55, cfg.Mapper.ReviewThreshold, 1e-9)
	assert.Equal(t, "TRY", cfg.Mapper.DefaultCurrency)
	assert.Equal(t, "pdftotext", cfg.Mapper.PdfToTextPath)
	assert.InDelta(t, 0.5, cfg.Mapper.Weights.String, 1e-9)
	assert.InDelta(t, 0.3, cfg.Mapper.Weights.Type, 1e-9)
	assert.InDelta(t, 0.2, cfg.Mapper.Weights.Rule, 1e-9)

	assert.Equal(t, 4, cfg.Batch.MaxConcurrentFiles)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadEnvOverride(t *testing.T) {
	chTempDir(t)
	t.Setenv("INTAKE_STORE_DRIVER", "postgres")
	t.Setenv("INTAKE_MAPPER_DEFAULT_CURRENCY", "USD")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "USD", cfg.Mapper.DefaultCurrency)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))
	assert.Error(t, InitLogger(LogConfig{Level: "nonsense"}))
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "en", cfg.SourceLang)
	assert.Equal(t, "zh", cfg.TargetLang)
	assert.Equal(t, "openai", cfg.Provider.Name)
	assert.Equal(t, 9000, cfg.Batch.MaxBatchSize)
	assert.Equal(t, 2, cfg.Batch.SmallBatchThreshold)
	assert.Equal(t, int64(5), cfg.Processor.MaxConcurrency)
	assert.InDelta(t, 0.8, cfg.Processor.MinSuccessRate, 1e-9)
	assert.True(t, cfg.Cache.Enabled)

	require.NoError(t, cfg.Validate())
}

func TestLoadConfig_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
source_lang: en
target_lang: ja
provider:
  name: raw
batch:
  max_batch_size: 4000
  min_batch_chars: 1000
processor:
  max_concurrency: 2
cache:
  enabled: false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "ja", cfg.TargetLang)
	assert.Equal(t, "raw", cfg.Provider.Name)
	assert.Equal(t, 4000, cfg.Batch.MaxBatchSize)
	assert.Equal(t, int64(2), cfg.Processor.MaxConcurrency)
	assert.False(t, cfg.Cache.Enabled)

	// 未指定的字段保持默认值
	assert.Equal(t, 3, cfg.Processor.MaxRetries)
	assert.Equal(t, 50, cfg.Collector.MaxDepth)
}

func TestLoadConfig_InvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
source_lang: en
target_lang: en
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must differ")
}

func TestConfig_Validate(t *testing.T) {
	t.Run("unknown provider", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.Provider.Name = "deepl"
		require.Error(t, cfg.Validate())
	})

	t.Run("min exceeds max batch size", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.Batch.MinBatchChars = 10000
		require.Error(t, cfg.Validate())
	})

	t.Run("bad success rate", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.Processor.MinSuccessRate = 2
		require.Error(t, cfg.Validate())
	})

	t.Run("cache capacity", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.Cache.Capacity = 0
		require.Error(t, cfg.Validate())

		cfg.Cache.Enabled = false
		require.NoError(t, cfg.Validate())
	})
}

func TestDurationHelpers(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, time.Second, cfg.Processor.RetryDelay())
	assert.Equal(t, 30*time.Second, cfg.Processor.BatchTimeout())
	assert.Equal(t, 100*time.Millisecond, cfg.Processor.ItemDelay())
	assert.Equal(t, time.Hour, cfg.Cache.TTL())
	assert.Equal(t, 5*time.Minute, cfg.Routing.CacheTTL())
	assert.Equal(t, 2*time.Minute, cfg.Provider.Timeout())
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "saved.yaml")

	original := NewDefaultConfig()
	original.TargetLang = "ko"
	original.Provider.Name = "raw"
	require.NoError(t, SaveConfig(original, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "ko", loaded.TargetLang)
	assert.Equal(t, "raw", loaded.Provider.Name)
}

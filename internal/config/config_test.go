package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.HTTPAddr)
	assert.Equal(t, 8, cfg.EvalConcurrency)
	assert.Equal(t, 5, cfg.WorkerConcurrency)
	assert.Equal(t, 24*time.Hour, cfg.ProgressTTL)
	assert.Equal(t, "openai", cfg.LLMProvider)
	assert.Equal(t, "sk-test", cfg.OpenAIAPIKey)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
}

func TestNewClampsConcurrency(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("EVAL_CONCURRENCY", "0")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.EvalConcurrency)
}

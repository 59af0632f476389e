package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetConfigDefaults(t *testing.T) {
	cfg := GetConfig()

	assert.Equal(t, "sqlite", cfg.Database.Dialect)
	assert.Equal(t, "extended_sample_data.db", cfg.Database.Path)
	assert.Equal(t, 1000, cfg.Pipeline.RowCap)
	assert.Equal(t, 10, cfg.Pipeline.TableCap)
	assert.Equal(t, 3, cfg.Pipeline.SampleTables)
	assert.Equal(t, 2, cfg.Pipeline.SampleRows)
	assert.Equal(t, 15*time.Second, cfg.Pipeline.AgentTimeout)
	assert.Equal(t, 3, cfg.Pipeline.AgentIterations)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, GetConfig().Pipeline, cfg.Pipeline)
	assert.Equal(t, "sqlite", cfg.Database.Dialect)
}

func TestLoadBindsAPIKeyEnv(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "test-key", cfg.Model.APIKey)
}

func TestLoadEnvOverridesDefault(t *testing.T) {
	t.Setenv("SQL_ASSISTANT_DATABASE_DIALECT", "postgres")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Database.Dialect)
}

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "./tokscribe.db", cfg.Database.Path)
	assert.Equal(t, 3, cfg.Ingest.Workers)
	assert.Equal(t, "tokcdn", cfg.Ingest.Provider)
	assert.Equal(t, 1440, cfg.Ingest.RetentionMinutes)
	assert.Equal(t, 15, cfg.Ingest.PruneIntervalMinutes)
	assert.False(t, cfg.Ingest.DevMode)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("TOKSCRIBE_PORT", "9090")
	t.Setenv("TOKSCRIBE_DATABASE_PATH", "/tmp/test.db")
	t.Setenv("TOKSCRIBE_INGEST_WORKERS", "7")
	t.Setenv("TOKSCRIBE_INGEST_PROVIDER", "mocktok")
	t.Setenv("TOKSCRIBE_INGEST_DEV_MODE", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "/tmp/test.db", cfg.Database.Path)
	assert.Equal(t, 7, cfg.Ingest.Workers)
	assert.Equal(t, "mocktok", cfg.Ingest.Provider)
	assert.True(t, cfg.Ingest.DevMode)
}

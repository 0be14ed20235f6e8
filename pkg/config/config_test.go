package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DISPLAY_THRESHOLD", "")
	t.Setenv("SYNC_INTERVAL", "")
	t.Setenv("STORE_BACKEND", "")

	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, -1, cfg.DisplayThreshold, "unset keeps the rule set threshold")
	assert.Equal(t, 15*time.Minute, cfg.SyncInterval)
	assert.Equal(t, StoreBackendPostgres, cfg.StoreBackend)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DISPLAY_THRESHOLD", "9")
	t.Setenv("SYNC_INTERVAL", "2m")
	t.Setenv("SYNC_WORKERS", "not-a-number")
	t.Setenv("STORE_BACKEND", "Firestore")
	t.Setenv("LOG_PRETTY", "true")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 9, cfg.DisplayThreshold)
	assert.Equal(t, 2*time.Minute, cfg.SyncInterval)
	assert.Equal(t, 3, cfg.SyncWorkers)
	assert.Equal(t, StoreBackendFirestore, cfg.StoreBackend)
	assert.True(t, cfg.LogPretty)
}

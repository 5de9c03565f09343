package configs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.HTTP.Host)
	assert.Equal(t, uint16(8080), cfg.HTTP.Port)
	assert.Equal(t, []string{"*"}, cfg.HTTP.AllowedOrigins)
	assert.Equal(t, uint(500), cfg.Rooms.MessageCapacity)
	assert.Equal(t, time.Hour, cfg.Rooms.IdleExpiry)
	assert.True(t, cfg.Rooms.WipeHistoryOnLeave)
	assert.Equal(t, 60*time.Second, cfg.WS.PongWait)
	assert.False(t, cfg.Tracing.Enabled)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
http:
  port: 9090
rooms:
  message_capacity: 10
  wipe_history_on_leave: false
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, uint16(9090), cfg.HTTP.Port)
	assert.Equal(t, uint(10), cfg.Rooms.MessageCapacity)
	assert.False(t, cfg.Rooms.WipeHistoryOnLeave)
	// Untouched keys keep their defaults.
	assert.Equal(t, "0.0.0.0", cfg.HTTP.Host)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "7070")
	t.Setenv("ROOMS_WIPE_HISTORY_ON_LEAVE", "false")
	t.Setenv("TRACING_ENDPOINT", "http://collector:4318")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, uint16(7070), cfg.HTTP.Port)
	assert.False(t, cfg.Rooms.WipeHistoryOnLeave)
	assert.True(t, cfg.Tracing.Enabled)
	assert.Equal(t, "http://collector:4318", cfg.Tracing.Endpoint)
}

package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(New(), "")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, slog.LevelInfo, cfg.Log.SlogLevel())

	opts := cfg.PlayerOptions()
	assert.Equal(t, 10*time.Second, opts.HandshakeTimeout)
	assert.Equal(t, 10*time.Second, opts.Timeout)
	assert.Equal(t, ":4321", cfg.ListenerConfig().Addr)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("RPS_LISTEN_ADDR", "127.0.0.1:5000")
	t.Setenv("RPS_CONN_TIMEOUT", "0s")
	t.Setenv("RPS_CONN_DRAIN_GRACE", "1s")
	t.Setenv("RPS_LOG_LEVEL", "debug")
	t.Setenv("RPS_REDIS_ADDR", "localhost:6379")

	cfg, err := Load(New(), "")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:5000", cfg.Listen.Addr)
	assert.Zero(t, cfg.Conn.Timeout)
	assert.Equal(t, time.Second, cfg.Conn.DrainGrace)
	assert.Equal(t, slog.LevelDebug, cfg.Log.SlogLevel())
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arena.yaml")
	content := `
listen:
  addr: ":9000"
  queue_size: 4
admin:
  addr: ""
log:
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(New(), path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Listen.Addr)
	assert.Equal(t, 4, cfg.Listen.QueueSize)
	assert.Empty(t, cfg.Admin.Addr)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 10*time.Second, cfg.Conn.HandshakeTimeout)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(New(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"listen addr without port", "RPS_LISTEN_ADDR", "localhost"},
		{"negative timeout", "RPS_CONN_TIMEOUT", "-1s"},
		{"zero handshake timeout", "RPS_CONN_HANDSHAKE_TIMEOUT", "0s"},
		{"empty queue", "RPS_LISTEN_QUEUE_SIZE", "0"},
		{"unknown level", "RPS_LOG_LEVEL", "verbose"},
		{"unknown format", "RPS_LOG_FORMAT", "xml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := Load(New(), "")
			assert.Error(t, err)
		})
	}
}

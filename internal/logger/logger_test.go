package logger

import (
	"bytes"
	"context"
	"ctchen222/rps-arena/internal/config"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingHandler struct{ slog.Handler }

func (failingHandler) Enabled(context.Context, slog.Level) bool { return true }
func (failingHandler) Handle(context.Context, slog.Record) error { return errors.New("sink down") }

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, config.LogConfig{Level: "info", Format: "json"})

	log.Debug("hidden")
	log.Info("bot joined", "player.name", "alpha")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "bot joined", rec["msg"])
	assert.Equal(t, "alpha", rec["player.name"])
	assert.Contains(t, rec, "source")
}

func TestNew_Text(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, config.LogConfig{Level: "debug", Format: "text"})

	log.Debug("moves are", "round", 3)
	assert.Contains(t, buf.String(), "msg=\"moves are\"")
	assert.Contains(t, buf.String(), "round=3")
}

func TestMultiHandler(t *testing.T) {
	var a, b bytes.Buffer
	h := NewMultiHandler(
		slog.NewTextHandler(&a, &slog.HandlerOptions{Level: slog.LevelWarn}),
		slog.NewTextHandler(&b, &slog.HandlerOptions{Level: slog.LevelDebug}),
	)
	log := slog.New(h).With("battle.id", "b-1")

	log.Info("only debug sink")
	assert.Empty(t, a.String())
	assert.Contains(t, b.String(), "battle.id=b-1")

	log.Warn("both sinks")
	assert.Contains(t, a.String(), "both sinks")
	assert.True(t, h.Enabled(context.Background(), slog.LevelDebug))
}

func TestMultiHandler_ContinuesPastFailures(t *testing.T) {
	var buf bytes.Buffer
	h := NewMultiHandler(failingHandler{}, slog.NewTextHandler(&buf, nil))

	err := h.Handle(context.Background(), slog.NewRecord(time.Time{}, slog.LevelInfo, "still logged", 0))
	assert.Error(t, err)
	assert.Contains(t, buf.String(), "still logged")
}

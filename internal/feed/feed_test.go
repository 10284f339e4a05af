package feed

import (
	"context"
	"ctchen222/rps-arena/internal/events"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func connect(t *testing.T, h *Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return h.Count() == 1 }, time.Second, 10*time.Millisecond)
	return conn
}

func TestHub_StreamsEvents(t *testing.T) {
	h := New()
	defer h.Close()
	conn := connect(t, h)

	e, err := events.New(events.TypeBotJoined, events.BotPayload{Index: 0, Name: "alpha"})
	require.NoError(t, err)
	require.NoError(t, h.Publish(context.Background(), e))

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var got events.Event
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, events.TypeBotJoined, got.Type)
	var payload events.BotPayload
	require.NoError(t, got.Decode(&payload))
	assert.Equal(t, "alpha", payload.Name)
}

func TestHub_SpectatorLeaves(t *testing.T) {
	h := New()
	defer h.Close()
	conn := connect(t, h)

	conn.Close()
	assert.Eventually(t, func() bool { return h.Count() == 0 }, time.Second, 10*time.Millisecond)
}

func TestHub_Close(t *testing.T) {
	h := New()
	conn := connect(t, h)

	h.Close()
	assert.Zero(t, h.Count())

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)

	assert.ErrorIs(t, h.Publish(context.Background(), events.Event{Type: events.TypeBotJoined}), ErrClosed)
}

func TestHub_PublishWithoutSpectators(t *testing.T) {
	h := New()
	defer h.Close()
	assert.NoError(t, h.Publish(context.Background(), events.Event{Type: events.TypeBattleStarted}))
}

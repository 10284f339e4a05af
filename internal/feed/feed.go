// Package feed streams arena events to websocket spectators.
package feed

import (
	"context"
	"ctchen222/rps-arena/internal/events"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	writeWait         = 10 * time.Second
	heartbeatInterval = 30 * time.Second
	pongWait          = 2 * heartbeatInterval
	sendBuffer        = 32
)

var tracer = otel.Tracer("feed")

var ErrClosed = errors.New("feed closed")

type spectator struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans events out to every connected spectator. A spectator that falls
// behind by more than its buffer is disconnected.
type Hub struct {
	upgrader websocket.Upgrader

	mu         sync.RWMutex
	spectators map[*spectator]struct{}
	closed     bool
}

func New() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		spectators: make(map[*spectator]struct{}),
	}
}

// Count returns the number of connected spectators.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.spectators)
}

// Publish queues e for every spectator without blocking.
func (h *Hub) Publish(ctx context.Context, e events.Event) error {
	_, span := tracer.Start(ctx, "feed.Publish", trace.WithAttributes(
		attribute.String("event.type", e.Type),
	))
	defer span.End()

	data, err := json.Marshal(e)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Error marshalling event")
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrClosed
	}
	for s := range h.spectators {
		select {
		case s.send <- data:
		default:
			slog.WarnContext(ctx, "spectator too slow, disconnecting", "remote.addr", s.conn.RemoteAddr().String())
			h.removeLocked(s)
		}
	}
	span.SetAttributes(attribute.Int("feed.spectators", len(h.spectators)))
	return nil
}

// ServeHTTP upgrades the request and streams events until the spectator
// leaves or the hub closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "feed.ServeHTTP", trace.WithAttributes(
		attribute.String("http.url", r.URL.String()),
	))
	defer span.End()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.WarnContext(ctx, "Failed to upgrade connection", "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to upgrade connection")
		return
	}

	s := &spectator{conn: conn, send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.spectators[s] = struct{}{}
	h.mu.Unlock()
	slog.InfoContext(ctx, "spectator connected", "remote.addr", conn.RemoteAddr().String())

	go h.writePump(s)
	h.readPump(s)
}

// Close disconnects every spectator and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for s := range h.spectators {
		h.removeLocked(s)
	}
}

func (h *Hub) remove(s *spectator) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(s)
}

func (h *Hub) removeLocked(s *spectator) {
	if _, ok := h.spectators[s]; !ok {
		return
	}
	delete(h.spectators, s)
	close(s.send)
}

// readPump discards client messages; it exists to notice disconnects and
// answer pongs.
func (h *Hub) readPump(s *spectator) {
	defer func() {
		h.remove(s)
		s.conn.Close()
	}()

	s.conn.SetReadLimit(512)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(s *spectator) {
	ticker := time.NewTicker(heartbeatInterval)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case data, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

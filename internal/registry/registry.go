// Package registry keeps the bots currently known to the arena, in the order
// they arrived. It is not safe for concurrent use: the arena loop owns it.
package registry

import (
	"context"
	"ctchen222/rps-arena/internal/listener"
	"ctchen222/rps-arena/internal/player"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNotFound  = errors.New("no such bot")
	ErrDuplicate = errors.New("connection already registered")
)

var (
	meter = otel.Meter("registry")

	evictionCounter, _ = meter.Int64Counter("rps.registry.evictions",
		metric.WithDescription("Bots removed after a failed maintenance operation"))
)

// Entry is a read-only view of one registered bot.
type Entry struct {
	Index   int           `json:"index"`
	ID      string        `json:"id"`
	Name    string        `json:"name"`
	Addr    string        `json:"addr"`
	Timeout time.Duration `json:"timeout"`
}

// Eviction records a bot dropped because an operation on it failed.
type Eviction struct {
	Index int
	ID    string
	Name  string
	Err   error
}

// Drained is what one Drain call picked up from the listener.
type Drained struct {
	Joined   []*player.Player
	Messages []listener.Message
}

// Registry is an insertion-ordered list of bots.
type Registry struct {
	players  []*player.Player
	ready    <-chan *player.Player
	messages <-chan listener.Message
}

// New creates a registry fed by the listener's hand-off channels. Either
// channel may be nil.
func New(ready <-chan *player.Player, messages <-chan listener.Message) *Registry {
	return &Registry{
		players:  make([]*player.Player, 0),
		ready:    ready,
		messages: messages,
	}
}

// Drain collects pending diagnostics and registers every ready bot without
// blocking.
func (r *Registry) Drain() Drained {
	var d Drained
messages:
	for {
		select {
		case msg := <-r.messages:
			d.Messages = append(d.Messages, msg)
		default:
			break messages
		}
	}
ready:
	for {
		select {
		case p := <-r.ready:
			if err := r.Add(p); err != nil {
				slog.Warn("dropping handed off bot", "player.id", p.ID, "error", err)
				continue
			}
			d.Joined = append(d.Joined, p)
		default:
			break ready
		}
	}
	return d
}

// Add appends p unless its socket is already registered.
func (r *Registry) Add(p *player.Player) error {
	for _, existing := range r.players {
		if existing.SameSocket(p) {
			return ErrDuplicate
		}
	}
	r.players = append(r.players, p)
	return nil
}

// Len returns the number of registered bots.
func (r *Registry) Len() int {
	return len(r.players)
}

// Get returns the bot at index i.
func (r *Registry) Get(i int) (*player.Player, error) {
	if i < 0 || i >= len(r.players) {
		return nil, fmt.Errorf("%w %d", ErrNotFound, i)
	}
	return r.players[i], nil
}

// IndexOf returns the current index of p, or -1.
func (r *Registry) IndexOf(p *player.Player) int {
	for i, existing := range r.players {
		if existing == p {
			return i
		}
	}
	return -1
}

// List returns the registered bots with their current indices.
func (r *Registry) List() []Entry {
	entries := make([]Entry, 0, len(r.players))
	for i, p := range r.players {
		entries = append(entries, Entry{
			Index:   i,
			ID:      p.ID,
			Name:    p.Name,
			Addr:    p.Addr.String(),
			Timeout: p.Timeout(),
		})
	}
	return entries
}

// Remove unregisters the bot at index i, shifting later indices down by one.
// The socket is left open.
func (r *Registry) Remove(i int) (*player.Player, error) {
	p, err := r.Get(i)
	if err != nil {
		return nil, err
	}
	r.players = append(r.players[:i], r.players[i+1:]...)
	return p, nil
}

// PingAll sends a keepalive to every bot and evicts those that fail.
func (r *Registry) PingAll(ctx context.Context) []Eviction {
	return r.maintain(ctx, "ping", func(p *player.Player) error {
		return p.Ping(ctx)
	})
}

// SetTimeout applies d to every bot and evicts those that fail.
func (r *Registry) SetTimeout(ctx context.Context, d time.Duration) ([]Eviction, error) {
	if d <= 0 {
		return nil, player.ErrInvalidTimeout
	}
	return r.maintain(ctx, "set_timeout", func(p *player.Player) error {
		return p.SetTimeout(d)
	}), nil
}

// ClearTimeout removes deadlines from every bot and evicts those that fail.
func (r *Registry) ClearTimeout(ctx context.Context) []Eviction {
	return r.maintain(ctx, "clear_timeout", func(p *player.Player) error {
		return p.ClearTimeout()
	})
}

// maintain runs op on every bot, then removes the failures in descending
// index order so the remaining indices stay valid during the pass.
func (r *Registry) maintain(ctx context.Context, op string, fn func(*player.Player) error) []Eviction {
	var failed []Eviction
	for i, p := range r.players {
		if err := fn(p); err != nil {
			slog.WarnContext(ctx, "removing bot", "op", op, "player.id", p.ID, "player.name", p.Name, "error", err)
			failed = append(failed, Eviction{Index: i, ID: p.ID, Name: p.Name, Err: err})
		}
	}
	for i := len(failed) - 1; i >= 0; i-- {
		p, err := r.Remove(failed[i].Index)
		if err != nil {
			continue
		}
		p.Close()
		evictionCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
	}
	return failed
}

// ShutdownAll sends the shutdown byte to every bot and empties the registry.
func (r *Registry) ShutdownAll(ctx context.Context) {
	for _, p := range r.players {
		p.Shutdown(ctx)
	}
	r.players = r.players[:0]
}

// Package arena owns the registry and runs every operator command and battle
// one at a time on a single goroutine.
package arena

import (
	"context"
	"ctchen222/rps-arena/internal/battle"
	"ctchen222/rps-arena/internal/events"
	"ctchen222/rps-arena/internal/listener"
	"ctchen222/rps-arena/internal/registry"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const DefaultDrainInterval = 200 * time.Millisecond

var tracer = otel.Tracer("arena")

var ErrStopped = errors.New("arena stopped")

// Option configures an Arena.
type Option func(*Arena)

// WithListener makes the arena stop h on shutdown and report when it dies.
func WithListener(h *listener.Handle) Option {
	return func(a *Arena) { a.listener = h }
}

// WithPublisher sets where arena events go.
func WithPublisher(p events.Publisher) Option {
	return func(a *Arena) { a.pub = p }
}

// WithDrainInterval sets how often idle arenas pick up new bots.
func WithDrainInterval(d time.Duration) Option {
	return func(a *Arena) {
		if d > 0 {
			a.drainInterval = d
		}
	}
}

type command struct {
	fn   func()
	done chan struct{}
}

// Arena serializes access to the registry. Its methods may be called from
// any goroutine once Run is running.
type Arena struct {
	reg           *registry.Registry
	pub           events.Publisher
	listener      *listener.Handle
	drainInterval time.Duration

	commands chan command
	stopped  chan struct{}
}

func New(reg *registry.Registry, opts ...Option) *Arena {
	a := &Arena{
		reg:           reg,
		pub:           events.Nop{},
		drainInterval: DefaultDrainInterval,
		commands:      make(chan command),
		stopped:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run serves commands until ctx is cancelled, then shuts every bot down and
// stops the listener.
func (a *Arena) Run(ctx context.Context) error {
	defer close(a.stopped)

	ticker := time.NewTicker(a.drainInterval)
	defer ticker.Stop()

	var listenerDone <-chan struct{}
	if a.listener != nil {
		listenerDone = a.listener.Done()
	}

	slog.InfoContext(ctx, "arena started")
	for {
		select {
		case <-ctx.Done():
			a.shutdown(context.WithoutCancel(ctx))
			return nil
		case cmd := <-a.commands:
			a.drain(ctx)
			cmd.fn()
			close(cmd.done)
		case <-ticker.C:
			a.drain(ctx)
		case <-listenerDone:
			a.drain(ctx)
			slog.ErrorContext(ctx, "listener is no longer accepting bots")
			listenerDone = nil
		}
	}
}

// Done is closed once Run has returned.
func (a *Arena) Done() <-chan struct{} {
	return a.stopped
}

// do runs fn on the arena goroutine and waits for it.
func (a *Arena) do(ctx context.Context, fn func()) error {
	cmd := command{fn: fn, done: make(chan struct{})}
	select {
	case a.commands <- cmd:
	case <-a.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	<-cmd.done
	return nil
}

// Bots lists the registered bots.
func (a *Arena) Bots(ctx context.Context) ([]registry.Entry, error) {
	var entries []registry.Entry
	err := a.do(ctx, func() {
		entries = a.reg.List()
	})
	return entries, err
}

// Ping sends a keepalive to every bot, evicts the ones that fail and returns
// the bots that remain.
func (a *Arena) Ping(ctx context.Context) ([]registry.Entry, []registry.Eviction, error) {
	var (
		entries []registry.Entry
		evicted []registry.Eviction
	)
	err := a.do(ctx, func() {
		ctx, span := tracer.Start(ctx, "arena.Ping")
		defer span.End()

		evicted = a.reg.PingAll(ctx)
		a.publishEvictions(ctx, evicted)
		entries = a.reg.List()
		span.SetAttributes(attribute.Int("arena.evicted", len(evicted)))
	})
	return entries, evicted, err
}

// SetTimeout applies d to every bot, evicting the ones that fail.
func (a *Arena) SetTimeout(ctx context.Context, d time.Duration) ([]registry.Eviction, error) {
	var (
		evicted []registry.Eviction
		opErr   error
	)
	err := a.do(ctx, func() {
		evicted, opErr = a.reg.SetTimeout(ctx, d)
		a.publishEvictions(ctx, evicted)
	})
	if err != nil {
		return nil, err
	}
	return evicted, opErr
}

// ClearTimeout removes deadlines from every bot, evicting the ones that fail.
func (a *Arena) ClearTimeout(ctx context.Context) ([]registry.Eviction, error) {
	var evicted []registry.Eviction
	err := a.do(ctx, func() {
		evicted = a.reg.ClearTimeout(ctx)
		a.publishEvictions(ctx, evicted)
	})
	return evicted, err
}

// Battle plays rounds between the bots at indices bot1 and bot2. Usage errors
// are returned before either bot is contacted.
func (a *Arena) Battle(ctx context.Context, bot1, bot2, rounds int) (*battle.Result, error) {
	var (
		res   *battle.Result
		opErr error
	)
	err := a.do(ctx, func() {
		res, opErr = a.battle(ctx, bot1, bot2, rounds)
	})
	if err != nil {
		return nil, err
	}
	return res, opErr
}

func (a *Arena) battle(ctx context.Context, bot1, bot2, rounds int) (*battle.Result, error) {
	b, err := battle.New(a.reg, bot1, bot2, rounds)
	if err != nil {
		return nil, err
	}
	ctx, span := tracer.Start(ctx, "arena.Battle", trace.WithAttributes(
		attribute.String("battle.id", b.ID),
	))
	defer span.End()

	slog.InfoContext(ctx, "battle started", "battle.id", b.ID, "bot1.name", b.Bot1.Name, "bot2.name", b.Bot2.Name, "rounds", rounds)
	a.publish(ctx, events.TypeBattleStarted, events.BattleStartedPayload{
		BattleID: b.ID,
		Bot1:     b.Bot1.Name,
		Bot2:     b.Bot2.Name,
		Rounds:   rounds,
	})

	res, err := b.Run(ctx)
	if err != nil {
		slog.WarnContext(ctx, "battle failed", "battle.id", b.ID, "error", err)
		a.publish(ctx, events.TypeBattleFailed, events.BattleFailedPayload{
			BattleID: b.ID,
			Bot1:     b.Bot1.Name,
			Bot2:     b.Bot2.Name,
			Error:    err.Error(),
		})
		return nil, err
	}
	a.publish(ctx, events.TypeBattleFinished, events.BattleFinishedPayload{
		BattleID: res.ID,
		Bot1:     res.Bot1,
		Bot2:     res.Bot2,
		Wins1:    res.Wins1,
		Wins2:    res.Wins2,
		Ties:     res.Ties,
		Elapsed:  res.Elapsed.Seconds(),
		CDF1:     res.CDF1,
		CDF2:     res.CDF2,
	})
	return res, nil
}

func (a *Arena) drain(ctx context.Context) {
	d := a.reg.Drain()
	for _, msg := range d.Messages {
		if msg.Fatal {
			slog.ErrorContext(ctx, msg.Desc, "error", msg.Err)
		} else {
			slog.WarnContext(ctx, msg.Desc, "error", msg.Err)
		}
		a.publish(ctx, events.TypeListenerMessage, events.ListenerMessagePayload{
			Message: msg.String(),
			Fatal:   msg.Fatal,
		})
	}
	for _, p := range d.Joined {
		idx := a.reg.IndexOf(p)
		slog.InfoContext(ctx, "bot joined", "player.id", p.ID, "player.name", p.Name, "index", idx)
		a.publish(ctx, events.TypeBotJoined, events.BotPayload{
			Index: idx,
			ID:    p.ID,
			Name:  p.Name,
			Addr:  p.Addr.String(),
		})
	}
}

func (a *Arena) publishEvictions(ctx context.Context, evicted []registry.Eviction) {
	for _, ev := range evicted {
		a.publish(ctx, events.TypeBotEvicted, events.BotPayload{
			Index:  ev.Index,
			ID:     ev.ID,
			Name:   ev.Name,
			Reason: ev.Err.Error(),
		})
	}
}

func (a *Arena) publish(ctx context.Context, eventType string, payload any) {
	e, err := events.New(eventType, payload)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to build event", "event.type", eventType, "error", err)
		return
	}
	if err := a.pub.Publish(ctx, e); err != nil {
		slog.WarnContext(ctx, "Failed to publish event", "event.type", eventType, "error", err)
	}
}

// shutdown tells every bot the arena is closing, then stops the listener and
// turns away anything it handed off in the meantime.
func (a *Arena) shutdown(ctx context.Context) {
	a.drain(ctx)
	n := a.reg.Len()
	a.reg.ShutdownAll(ctx)
	if a.listener != nil {
		a.listener.Stop()
	}
	a.drain(ctx)
	a.reg.ShutdownAll(ctx)
	slog.InfoContext(ctx, "arena stopped", "bots", n)
}

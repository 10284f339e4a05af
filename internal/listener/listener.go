// Package listener accepts bot connections on a TCP address, performs the
// name handshake inline and hands ready players to the arena.
package listener

import (
	"context"
	"ctchen222/rps-arena/internal/player"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	DefaultAddr         = ":4321"
	DefaultPollInterval = 50 * time.Millisecond
)

var (
	meter = otel.Meter("listener")

	acceptedCounter, _ = meter.Int64Counter("rps.listener.accepted",
		metric.WithDescription("Bots that completed the handshake"))
	handshakeFailures, _ = meter.Int64Counter("rps.listener.handshake_failures",
		metric.WithDescription("Accepted sockets that failed the handshake"))
)

// Message is a diagnostic produced by the listener for the arena to report.
type Message struct {
	Desc string
	Err  error
	// Fatal is set when the listener stopped accepting because of Err.
	Fatal bool
}

func (m Message) String() string {
	if m.Err == nil {
		return m.Desc
	}
	return fmt.Sprintf("%s %v", m.Desc, m.Err)
}

// Config describes where and how to accept bots.
type Config struct {
	Addr string
	// PollInterval is how long one Accept may block before the stop signal is
	// checked again.
	PollInterval time.Duration
	Player       player.Options
}

// Handle controls a running listener goroutine.
type Handle struct {
	addr     net.Addr
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// Start binds cfg.Addr and launches the accept loop. Ready players are sent on
// ready and diagnostics on messages. Bind errors are returned directly.
func Start(cfg Config, ready chan<- *player.Player, messages chan<- Message) (*Handle, error) {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("unable to start server: %w", err)
	}
	tcpLn, ok := ln.(*net.TCPListener)
	if !ok {
		ln.Close()
		return nil, fmt.Errorf("unable to start server: %T is not a TCP listener", ln)
	}

	h := &Handle{
		addr: tcpLn.Addr(),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go h.run(tcpLn, cfg, ready, messages)
	slog.Info("listening for bots", "addr", h.addr.String())
	return h, nil
}

// Addr is the bound address, useful when listening on port 0.
func (h *Handle) Addr() net.Addr {
	return h.addr
}

// RequestStop asks the accept loop to return after its current iteration.
func (h *Handle) RequestStop() {
	h.stopOnce.Do(func() { close(h.stop) })
}

// AwaitStopped blocks until the accept loop has returned.
func (h *Handle) AwaitStopped() {
	<-h.done
}

// Stop requests a stop and waits for it.
func (h *Handle) Stop() {
	h.RequestStop()
	h.AwaitStopped()
}

// Done is closed once the accept loop has returned, for any reason.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

func (h *Handle) run(ln *net.TCPListener, cfg Config, ready chan<- *player.Player, messages chan<- Message) {
	defer close(h.done)
	defer ln.Close()

	ctx := context.Background()
	for {
		select {
		case <-h.stop:
			slog.Info("listener stopped", "addr", h.addr.String())
			return
		default:
		}

		if err := ln.SetDeadline(time.Now().Add(cfg.PollInterval)); err != nil {
			h.publish(messages, Message{Desc: "Failed setting accept deadline.", Err: err, Fatal: true})
			return
		}
		conn, err := ln.Accept()
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			h.publish(messages, Message{Desc: "Error while listening for new clients.", Err: err, Fatal: true})
			return
		}

		p, err := player.Handshake(ctx, conn, cfg.Player)
		if err != nil {
			handshakeFailures.Add(ctx, 1)
			h.publish(messages, Message{Desc: "Handshake failed.", Err: err})
			continue
		}
		acceptedCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("listener.addr", h.addr.String())))
		slog.Debug("handshake complete", "player.id", p.ID, "player.name", p.Name, "remote.addr", p.Addr.String())

		select {
		case ready <- p:
		case <-h.stop:
			p.Shutdown(ctx)
			return
		}
	}
}

func (h *Handle) publish(messages chan<- Message, msg Message) {
	select {
	case messages <- msg:
	case <-h.stop:
	}
}

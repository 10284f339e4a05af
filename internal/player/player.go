package player

import (
	"bufio"
	"context"
	"ctchen222/rps-arena/internal/game"
	"ctchen222/rps-arena/pkg/proto"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultTimeout          = 10 * time.Second
	DefaultDrainGrace       = 250 * time.Millisecond
)

var tracer = otel.Tracer("player")

var (
	ErrKeepalive      = errors.New("invalid ping response")
	ErrInvalidTimeout = errors.New("timeout must be positive")
)

// Options controls the deadlines applied to a connection.
type Options struct {
	// HandshakeTimeout bounds reading the name. Zero means DefaultHandshakeTimeout.
	HandshakeTimeout time.Duration
	// Timeout bounds every read and write after the handshake. Zero disables it.
	Timeout time.Duration
	// DrainGrace bounds how long AbortGame discards input. Zero means DefaultDrainGrace.
	DrainGrace time.Duration
}

// DefaultOptions returns the deadlines used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		HandshakeTimeout: DefaultHandshakeTimeout,
		Timeout:          DefaultTimeout,
		DrainGrace:       DefaultDrainGrace,
	}
}

// Player is one bot that completed the name handshake.
type Player struct {
	ID   string
	Name string
	Addr net.Addr

	conn       net.Conn
	w          *bufio.Writer
	timeout    time.Duration
	drainGrace time.Duration
}

// Handshake reads the bot's name from a freshly accepted socket. On failure
// the socket is closed and no Player is returned.
func Handshake(ctx context.Context, conn net.Conn, opts Options) (*Player, error) {
	_, span := tracer.Start(ctx, "player.Handshake", trace.WithAttributes(
		attribute.String("remote.addr", conn.RemoteAddr().String()),
	))
	defer span.End()

	hsTimeout := opts.HandshakeTimeout
	if hsTimeout <= 0 {
		hsTimeout = DefaultHandshakeTimeout
	}
	drainGrace := opts.DrainGrace
	if drainGrace <= 0 {
		drainGrace = DefaultDrainGrace
	}

	name, err := readName(conn, hsTimeout)
	if err != nil {
		conn.Close()
		span.RecordError(err)
		span.SetStatus(codes.Error, "Handshake failed")
		return nil, fmt.Errorf("handshake with %s: %w", conn.RemoteAddr(), err)
	}

	p := &Player{
		ID:         uuid.New().String(),
		Name:       name,
		Addr:       conn.RemoteAddr(),
		conn:       conn,
		w:          bufio.NewWriterSize(conn, 16),
		timeout:    opts.Timeout,
		drainGrace: drainGrace,
	}
	span.SetAttributes(attribute.String("player.id", p.ID), attribute.String("player.name", p.Name))
	return p, nil
}

func readName(conn net.Conn, timeout time.Duration) (string, error) {
	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		return "", err
	}
	var length [1]byte
	if _, err := io.ReadFull(conn, length[:]); err != nil {
		return "", err
	}
	buf := make([]byte, int(length[0])+1)
	if _, err := io.ReadFull(conn, buf); err != nil {
		return "", err
	}
	name, term := buf[:length[0]], buf[length[0]]
	if err := proto.ValidateName(name); err != nil {
		return "", err
	}
	if term != proto.NameTerminator {
		slog.Warn("handshake name not newline terminated", "remote.addr", conn.RemoteAddr().String(), "terminator", term)
	}
	if err := conn.SetDeadline(time.Time{}); err != nil {
		return "", err
	}
	return string(name), nil
}

// Timeout returns the per-operation deadline; zero means none.
func (p *Player) Timeout() time.Duration {
	return p.timeout
}

// SetTimeout changes the per-operation deadline.
func (p *Player) SetTimeout(d time.Duration) error {
	if d <= 0 {
		return ErrInvalidTimeout
	}
	if err := p.conn.SetDeadline(time.Now().Add(d)); err != nil {
		return err
	}
	p.timeout = d
	return nil
}

// ClearTimeout lets operations block indefinitely, for long battles.
func (p *Player) ClearTimeout() error {
	if err := p.conn.SetDeadline(time.Time{}); err != nil {
		return err
	}
	p.timeout = 0
	return nil
}

// SameSocket reports whether p and other wrap the same underlying connection.
func (p *Player) SameSocket(other *Player) bool {
	return p.conn == other.conn
}

// Ping sends a keepalive and expects the identical byte back.
func (p *Player) Ping(ctx context.Context) error {
	_, span := p.startSpan(ctx, "player.Ping")
	defer span.End()

	if err := p.writeByte(proto.Keepalive); err != nil {
		return fail(span, err, "Failed to send keepalive")
	}
	b, err := p.readByte()
	if err != nil {
		return fail(span, err, "Failed to read keepalive echo")
	}
	if b != proto.Keepalive {
		return fail(span, fmt.Errorf("%w: got %d expected space", ErrKeepalive, b), "Keepalive mismatch")
	}
	return nil
}

// StartGame tells the bot a battle begins.
func (p *Player) StartGame(ctx context.Context) error {
	_, span := p.startSpan(ctx, "player.StartGame")
	defer span.End()

	if err := p.writeByte(proto.NewGame); err != nil {
		return fail(span, err, "Failed to start game")
	}
	return nil
}

// ContinueGame relays the opponent's move for a round that is not the last.
func (p *Player) ContinueGame(ctx context.Context, opponent game.Move) error {
	_, span := p.startSpan(ctx, "player.ContinueGame")
	defer span.End()

	if err := p.writeByte(proto.EncodeMove(opponent)); err != nil {
		return fail(span, err, "Failed to relay move")
	}
	return nil
}

// EndGame relays the opponent's move for the final round.
func (p *Player) EndGame(ctx context.Context, opponent game.Move) error {
	_, span := p.startSpan(ctx, "player.EndGame")
	defer span.End()

	if err := p.writeByte(proto.EncodeEndMove(opponent)); err != nil {
		return fail(span, err, "Failed to relay final move")
	}
	return nil
}

// GetMove reads the bot's next move.
func (p *Player) GetMove(ctx context.Context) (game.Move, error) {
	_, span := p.startSpan(ctx, "player.GetMove")
	defer span.End()

	b, err := p.readByte()
	if err != nil {
		return 0, fail(span, err, "Failed to read move")
	}
	m, err := proto.DecodeMove(b)
	if err != nil {
		return 0, fail(span, err, "Invalid move")
	}
	span.SetAttributes(attribute.String("move", m.String()))
	return m, nil
}

// AbortGame tells the bot the battle is over early, then discards whatever it
// still sends until it closes, errors, or the drain grace period runs out.
// Only the abort write itself can fail.
func (p *Player) AbortGame(ctx context.Context) error {
	_, span := p.startSpan(ctx, "player.AbortGame")
	defer span.End()

	if err := p.writeByte(proto.AbortGame); err != nil {
		return fail(span, err, "Failed to abort game")
	}
	span.SetAttributes(attribute.Int("drain.bytes", p.drain()))
	return nil
}

func (p *Player) drain() int {
	total := 0
	if err := p.conn.SetReadDeadline(time.Now().Add(p.drainGrace)); err != nil {
		return total
	}
	buf := make([]byte, 1024)
	for {
		n, err := p.conn.Read(buf)
		total += n
		if err != nil {
			break
		}
	}
	_ = p.conn.SetReadDeadline(time.Time{})
	return total
}

// Shutdown tells the bot the connection is closing and closes it. Errors are
// ignored; the socket is gone either way.
func (p *Player) Shutdown(ctx context.Context) {
	_, span := p.startSpan(ctx, "player.Shutdown")
	defer span.End()

	if err := p.writeByte(proto.Shutdown); err != nil {
		slog.DebugContext(ctx, "shutdown byte not delivered", "player.id", p.ID, "error", err)
	}
	p.conn.Close()
}

// Close drops the socket without telling the bot.
func (p *Player) Close() error {
	return p.conn.Close()
}

func (p *Player) deadline() time.Time {
	if p.timeout <= 0 {
		return time.Time{}
	}
	return time.Now().Add(p.timeout)
}

func (p *Player) writeByte(b byte) error {
	if err := p.conn.SetWriteDeadline(p.deadline()); err != nil {
		return err
	}
	if err := p.w.WriteByte(b); err != nil {
		return err
	}
	return p.w.Flush()
}

func (p *Player) readByte() (byte, error) {
	if err := p.conn.SetReadDeadline(p.deadline()); err != nil {
		return 0, err
	}
	var buf [1]byte
	if _, err := io.ReadFull(p.conn, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (p *Player) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("player.id", p.ID),
		attribute.String("player.name", p.Name),
	))
}

func fail(span trace.Span, err error, msg string) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
	return err
}

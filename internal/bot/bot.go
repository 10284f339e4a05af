// Package bot is a client for the arena protocol, used by the rps-bot command
// and by end-to-end tests.
package bot

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
	"sync"
)

var ErrUnexpectedByte = errors.New("unexpected byte from server")

// Stats counts what a client took part in.
type Stats struct {
	Battles int
	Aborted int
	Rounds  int
	Wins    int
	Losses  int
	Ties    int
}

// Client is one bot connected to an arena.
type Client struct {
	Name     string
	conn     net.Conn
	r        *bufio.Reader
	w        *bufio.Writer
	strategy Strategy

	inBattle bool
	mine     game.Move

	mu    sync.Mutex
	stats Stats
}

// Dial connects to addr and sends the name handshake.
func Dial(ctx context.Context, addr, name string, s Strategy) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	c, err := NewClient(conn, name, s)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return c, nil
}

// NewClient sends the name handshake over an existing connection.
func NewClient(conn net.Conn, name string, s Strategy) (*Client, error) {
	frame, err := proto.EncodeHandshake(name)
	if err != nil {
		return nil, err
	}
	c := &Client{
		Name:     name,
		conn:     conn,
		r:        bufio.NewReader(conn),
		w:        bufio.NewWriter(conn),
		strategy: s,
	}
	if _, err := c.w.Write(frame); err != nil {
		return nil, fmt.Errorf("send handshake: %w", err)
	}
	if err := c.w.Flush(); err != nil {
		return nil, fmt.Errorf("send handshake: %w", err)
	}
	return c, nil
}

// Stats returns the counters collected so far.
func (c *Client) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Close drops the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Play serves the server until it sends shutdown, the connection fails or ctx
// is cancelled. A shutdown from the server returns nil.
func (c *Client) Play(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { c.conn.Close() })
	defer stop()

	for {
		b, err := c.r.ReadByte()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) {
				return io.ErrUnexpectedEOF
			}
			return err
		}
		done, err := c.handle(b)
		if err != nil {
			return err
		}
		if done {
			slog.InfoContext(ctx, "server shut down", "bot.name", c.Name, "battles", c.Stats().Battles)
			return nil
		}
	}
}

func (c *Client) handle(b byte) (bool, error) {
	switch b {
	case proto.Keepalive:
		return false, c.send(proto.Keepalive)
	case proto.Shutdown:
		return true, nil
	case proto.NewGame:
		c.inBattle = true
		c.mu.Lock()
		c.stats.Battles++
		c.mu.Unlock()
		c.strategy.Reset()
		return false, c.move()
	case proto.AbortGame:
		if c.inBattle {
			c.mu.Lock()
			c.stats.Aborted++
			c.mu.Unlock()
		}
		c.inBattle = false
		return false, nil
	}

	opponent, final, err := proto.DecodeRelay(b)
	if err != nil || !c.inBattle {
		return false, fmt.Errorf("%w: %d", ErrUnexpectedByte, b)
	}
	c.score(opponent)
	c.strategy.Observe(opponent)
	if final {
		c.inBattle = false
		return false, nil
	}
	return false, c.move()
}

func (c *Client) move() error {
	c.mine = c.strategy.Next()
	return c.send(proto.EncodeMove(c.mine))
}

func (c *Client) score(opponent game.Move) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.Rounds++
	switch game.Play(c.mine, opponent) {
	case game.Win:
		c.stats.Wins++
	case game.Lose:
		c.stats.Losses++
	default:
		c.stats.Ties++
	}
}

func (c *Client) send(b byte) error {
	if err := c.w.WriteByte(b); err != nil {
		return err
	}
	return c.w.Flush()
}

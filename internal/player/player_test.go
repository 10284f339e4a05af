package player

import (
	"context"
	"ctchen222/rps-arena/internal/game"
	"ctchen222/rps-arena/pkg/proto"
	"errors"
	"io"
	"net"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// handshakePipe returns a Player connected over an in-memory pipe, and the
// bot's end of that pipe.
func handshakePipe(t *testing.T, name string, opts Options) (*Player, net.Conn) {
	t.Helper()
	server, client := net.Pipe()
	frame, err := proto.EncodeHandshake(name)
	require.NoError(t, err)
	go client.Write(frame)

	p, err := Handshake(context.Background(), server, opts)
	require.NoError(t, err)
	t.Cleanup(func() {
		client.Close()
		p.Close()
	})
	return p, client
}

// readN collects n bytes written by the server on the bot's end of the pipe.
func readN(conn net.Conn, n int) <-chan []byte {
	out := make(chan []byte, 1)
	go func() {
		buf := make([]byte, n)
		if _, err := io.ReadFull(conn, buf); err != nil {
			close(out)
			return
		}
		out <- buf
	}()
	return out
}

func TestHandshake(t *testing.T) {
	p, _ := handshakePipe(t, "alice", DefaultOptions())
	assert.Equal(t, "alice", p.Name)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, DefaultTimeout, p.Timeout())
}

func TestHandshake_MaxLengthName(t *testing.T) {
	name := strings.Repeat("ü", 127) + "!"
	require.Len(t, name, proto.MaxNameLen)

	p, _ := handshakePipe(t, name, DefaultOptions())
	assert.Equal(t, name, p.Name)
}

func TestHandshake_Failures(t *testing.T) {
	tests := []struct {
		name    string
		frame   []byte
		close   bool
		timeout time.Duration
		check   func(t *testing.T, err error)
	}{
		{
			name:  "invalid utf8",
			frame: []byte{2, 0xff, 0xfe, '\n'},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, proto.ErrNameNotUTF8)
			},
		},
		{
			name:  "peer closes before the name is complete",
			frame: []byte{5, 'a', 'b'},
			close: true,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
			},
		},
		{
			name:  "peer closes before the terminator",
			frame: []byte{2, 'a', 'b'},
			close: true,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
			},
		},
		{
			name:    "peer stalls mid name",
			frame:   []byte{5, 'a'},
			timeout: 50 * time.Millisecond,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, os.ErrDeadlineExceeded)
			},
		},
		{
			name:    "peer never sends anything",
			timeout: 50 * time.Millisecond,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, os.ErrDeadlineExceeded)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, client := net.Pipe()
			defer client.Close()
			go func() {
				if len(tt.frame) > 0 {
					client.Write(tt.frame)
				}
				if tt.close {
					client.Close()
				}
			}()

			start := time.Now()
			p, err := Handshake(context.Background(), server, Options{HandshakeTimeout: tt.timeout})
			require.Error(t, err)
			assert.Nil(t, p)
			assert.Less(t, time.Since(start), 2*time.Second)
			tt.check(t, err)

			// The failed socket must have been closed.
			_, werr := server.Write([]byte{0})
			assert.Error(t, werr)
		})
	}
}

func TestPing(t *testing.T) {
	p, bot := handshakePipe(t, "echo", DefaultOptions())
	go func() {
		var b [1]byte
		if _, err := io.ReadFull(bot, b[:]); err == nil {
			bot.Write(b[:])
		}
	}()

	require.NoError(t, p.Ping(context.Background()))
	assert.Equal(t, "echo", p.Name)
	assert.Equal(t, DefaultTimeout, p.Timeout())
}

func TestPing_Mismatch(t *testing.T) {
	p, bot := handshakePipe(t, "liar", DefaultOptions())
	go func() {
		var b [1]byte
		if _, err := io.ReadFull(bot, b[:]); err == nil {
			bot.Write([]byte{'q'})
		}
	}()

	err := p.Ping(context.Background())
	assert.ErrorIs(t, err, ErrKeepalive)
}

func TestRelayBytes(t *testing.T) {
	p, bot := handshakePipe(t, "relay", DefaultOptions())
	got := readN(bot, 3)

	ctx := context.Background()
	require.NoError(t, p.StartGame(ctx))
	require.NoError(t, p.ContinueGame(ctx, game.Paper))
	require.NoError(t, p.EndGame(ctx, game.Rock))

	select {
	case b := <-got:
		assert.Equal(t, []byte{'n', 'p', 'R'}, b)
	case <-time.After(time.Second):
		t.Fatal("bot did not receive the relayed bytes")
	}
}

func TestGetMove(t *testing.T) {
	p, bot := handshakePipe(t, "mover", DefaultOptions())
	go bot.Write([]byte{'s', 'x'})

	m, err := p.GetMove(context.Background())
	require.NoError(t, err)
	assert.Equal(t, game.Scissor, m)

	_, err = p.GetMove(context.Background())
	assert.ErrorIs(t, err, proto.ErrInvalidMove)
}

func TestGetMove_Timeout(t *testing.T) {
	opts := DefaultOptions()
	opts.Timeout = 50 * time.Millisecond
	p, _ := handshakePipe(t, "silent", opts)

	start := time.Now()
	_, err := p.GetMove(context.Background())
	var ne net.Error
	require.True(t, errors.As(err, &ne), "expected net.Error, got %v", err)
	assert.True(t, ne.Timeout())
	assert.Less(t, time.Since(start), time.Second)
}

func TestAbortGame_DrainsAndStaysUsable(t *testing.T) {
	opts := DefaultOptions()
	opts.DrainGrace = 50 * time.Millisecond
	p, bot := handshakePipe(t, "stale", opts)

	go func() {
		var b [1]byte
		if _, err := io.ReadFull(bot, b[:]); err != nil || b[0] != proto.AbortGame {
			return
		}
		// A move that was already in flight when the battle was torn down.
		bot.Write([]byte{'r', 'r'})
		if _, err := io.ReadFull(bot, b[:]); err == nil {
			bot.Write(b[:])
		}
	}()

	start := time.Now()
	require.NoError(t, p.AbortGame(context.Background()))
	assert.Less(t, time.Since(start), time.Second)

	// Stale bytes are gone, so the next keepalive reads its own echo.
	require.NoError(t, p.Ping(context.Background()))
}

func TestAbortGame_PeerCloses(t *testing.T) {
	p, bot := handshakePipe(t, "leaver", DefaultOptions())
	go func() {
		var b [1]byte
		io.ReadFull(bot, b[:])
		bot.Close()
	}()

	assert.NoError(t, p.AbortGame(context.Background()))
}

func TestShutdown(t *testing.T) {
	p, bot := handshakePipe(t, "bye", DefaultOptions())
	got := readN(bot, 1)

	p.Shutdown(context.Background())

	select {
	case b := <-got:
		assert.Equal(t, []byte{proto.Shutdown}, b)
	case <-time.After(time.Second):
		t.Fatal("bot did not receive shutdown byte")
	}
	var b [1]byte
	_, err := bot.Read(b[:])
	assert.ErrorIs(t, err, io.EOF)
}

func TestShutdown_DeadPeerDoesNotBlock(t *testing.T) {
	opts := DefaultOptions()
	opts.Timeout = 50 * time.Millisecond
	p, bot := handshakePipe(t, "gone", opts)
	bot.Close()

	done := make(chan struct{})
	go func() {
		p.Shutdown(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Shutdown blocked on a dead peer")
	}
}

func TestTimeouts(t *testing.T) {
	p, _ := handshakePipe(t, "timer", DefaultOptions())

	assert.ErrorIs(t, p.SetTimeout(0), ErrInvalidTimeout)
	assert.Equal(t, DefaultTimeout, p.Timeout())

	require.NoError(t, p.SetTimeout(3*time.Second))
	assert.Equal(t, 3*time.Second, p.Timeout())

	require.NoError(t, p.ClearTimeout())
	assert.Zero(t, p.Timeout())

	require.NoError(t, p.Close())
	assert.Error(t, p.SetTimeout(time.Second))
}

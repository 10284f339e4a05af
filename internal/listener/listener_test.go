package listener

import (
	"ctchen222/rps-arena/internal/player"
	"ctchen222/rps-arena/pkg/proto"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startTest(t *testing.T, ready chan *player.Player, messages chan Message) *Handle {
	t.Helper()
	h, err := Start(Config{
		Addr:         "127.0.0.1:0",
		PollInterval: 10 * time.Millisecond,
		Player:       player.Options{HandshakeTimeout: 500 * time.Millisecond},
	}, ready, messages)
	require.NoError(t, err)
	t.Cleanup(h.Stop)
	return h
}

func dial(t *testing.T, h *Handle, frame []byte) net.Conn {
	t.Helper()
	conn, err := net.Dial("tcp", h.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	if frame != nil {
		_, err = conn.Write(frame)
		require.NoError(t, err)
	}
	return conn
}

func TestListener_HandsOffReadyPlayer(t *testing.T) {
	ready := make(chan *player.Player, 1)
	messages := make(chan Message, 1)
	h := startTest(t, ready, messages)

	frame, _ := proto.EncodeHandshake("alpha")
	dial(t, h, frame)

	select {
	case p := <-ready:
		assert.Equal(t, "alpha", p.Name)
		p.Close()
	case msg := <-messages:
		t.Fatalf("unexpected diagnostic: %v", msg)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the player")
	}
}

func TestListener_HandshakeFailureKeepsAccepting(t *testing.T) {
	ready := make(chan *player.Player, 1)
	messages := make(chan Message, 1)
	h := startTest(t, ready, messages)

	dial(t, h, []byte{2, 0xff, 0xfe, '\n'})

	select {
	case msg := <-messages:
		assert.Equal(t, "Handshake failed.", msg.Desc)
		assert.ErrorIs(t, msg.Err, proto.ErrNameNotUTF8)
		assert.False(t, msg.Fatal)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the handshake diagnostic")
	}

	frame, _ := proto.EncodeHandshake("beta")
	dial(t, h, frame)
	select {
	case p := <-ready:
		assert.Equal(t, "beta", p.Name)
		p.Close()
	case <-time.After(2 * time.Second):
		t.Fatal("listener stopped accepting after a failed handshake")
	}
}

func TestListener_SlowPeerOnlyDelaysTheNext(t *testing.T) {
	ready := make(chan *player.Player, 1)
	messages := make(chan Message, 1)
	h := startTest(t, ready, messages)

	// Claims a five byte name and stalls.
	dial(t, h, []byte{5, 'a'})
	frame, _ := proto.EncodeHandshake("patient")
	dial(t, h, frame)

	select {
	case msg := <-messages:
		assert.Equal(t, "Handshake failed.", msg.Desc)
	case <-time.After(2 * time.Second):
		t.Fatal("stalled handshake was never timed out")
	}
	select {
	case p := <-ready:
		assert.Equal(t, "patient", p.Name)
		p.Close()
	case <-time.After(2 * time.Second):
		t.Fatal("second bot was never accepted")
	}
}

func TestListener_Stop(t *testing.T) {
	h := startTest(t, make(chan *player.Player), make(chan Message))
	addr := h.Addr().String()

	stopped := make(chan struct{})
	go func() {
		h.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}

	select {
	case <-h.Done():
	default:
		t.Fatal("Done not closed after Stop")
	}
	_, err := net.DialTimeout("tcp", addr, 200*time.Millisecond)
	assert.Error(t, err)

	// Stopping twice is harmless.
	h.Stop()
}

func TestListener_StopWhileHandOffBlocked(t *testing.T) {
	ready := make(chan *player.Player) // nobody receives
	h := startTest(t, ready, make(chan Message, 1))

	frame, _ := proto.EncodeHandshake("orphan")
	conn := dial(t, h, frame)

	// Give the loop time to finish the handshake and block on the hand-off.
	time.Sleep(100 * time.Millisecond)
	h.Stop()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	buf, err := io.ReadAll(conn)
	require.NoError(t, err)
	assert.Equal(t, []byte{proto.Shutdown}, buf)
}

func TestStart_BindError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	_, err = Start(Config{Addr: ln.Addr().String()}, make(chan *player.Player), make(chan Message))
	assert.ErrorContains(t, err, "unable to start server")
}

func TestMessageString(t *testing.T) {
	assert.Equal(t, "Shutdown disconnected.", Message{Desc: "Shutdown disconnected."}.String())
	assert.Equal(t, "Handshake failed. EOF", Message{Desc: "Handshake failed.", Err: io.EOF}.String())
}

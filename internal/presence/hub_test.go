package presence

import (
	"bufio"
	"context"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return ws
}

func readMessage(t *testing.T, ws *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg Message
	require.NoError(t, ws.ReadJSON(&msg))
	return msg
}

// readUntil reads messages until one reports want active users.
func readUntil(t *testing.T, ws *websocket.Conn, want int) Message {
	t.Helper()
	for {
		msg := readMessage(t, ws)
		if msg.ActiveUsers == want {
			return msg
		}
	}
}

func TestHandler_AnnouncesJoinAndLeave(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(Handler(hub))
	defer srv.Close()

	a := dial(t, srv)
	defer a.Close()
	msg := readMessage(t, a)
	assert.Equal(t, Message{Type: MessageType, ActiveUsers: 1}, msg)

	b := dial(t, srv)
	assert.Equal(t, 2, readUntil(t, a, 2).ActiveUsers)
	assert.Equal(t, 2, readUntil(t, b, 2).ActiveUsers)

	require.NoError(t, b.Close())
	assert.Equal(t, 1, readUntil(t, a, 1).ActiveUsers)
	assert.Equal(t, 1, hub.Count())
}

func TestRun_PeriodicBroadcast(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(Handler(hub))
	defer srv.Close()

	ws := dial(t, srv)
	defer ws.Close()
	readMessage(t, ws)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hub.Run(ctx, 10*time.Millisecond) }()

	// A tick arrives without any membership change.
	msg := readMessage(t, ws)
	assert.Equal(t, 1, msg.ActiveUsers)

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, 0, hub.Count())
}

func TestHub_EmptyBroadcast(t *testing.T) {
	hub := NewHub()
	hub.Broadcast()
	assert.Equal(t, 0, hub.Count())
}

// stalledConn returns a client connection whose peer completes the
// websocket handshake and then never reads again.
func stalledConn(t *testing.T) *websocket.Conn {
	t.Helper()
	local, peer := net.Pipe()
	t.Cleanup(func() {
		_ = local.Close()
		_ = peer.Close()
	})

	go func() {
		req, err := http.ReadRequest(bufio.NewReader(peer))
		if err != nil {
			return
		}
		sum := sha1.Sum([]byte(req.Header.Get("Sec-WebSocket-Key") + "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"))
		_, _ = fmt.Fprintf(peer, "HTTP/1.1 101 Switching Protocols\r\nUpgrade: websocket\r\nConnection: Upgrade\r\nSec-WebSocket-Accept: %s\r\n\r\n",
			base64.StdEncoding.EncodeToString(sum[:]))
	}()

	d := websocket.Dialer{
		NetDial: func(string, string) (net.Conn, error) {
			return local, nil
		},
	}
	ws, _, err := d.Dial("ws://presence.test/", nil)
	require.NoError(t, err)
	return ws
}

func TestBroadcast_DropsStalledClient(t *testing.T) {
	hub := NewHub()
	hub.writeTimeout = 50 * time.Millisecond

	ws := stalledConn(t)
	done := make(chan struct{})
	go func() {
		hub.Join(ws)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("broadcast blocked on a client that stopped reading")
	}
	assert.Equal(t, 0, hub.Count())
}

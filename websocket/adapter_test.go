package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hxri-nxrxyxn/eyetap/domain"
)

// newPair returns a server-side Conn and the client socket talking to it.
func newPair(t *testing.T, opts Options) (*Conn, *websocket.Conn) {
	t.Helper()
	upgrader := websocket.Upgrader{}
	conns := make(chan *Conn, 1)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conns <- NewConn("server-side", ws, opts)
	}))
	t.Cleanup(ts.Close)

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	select {
	case c := <-conns:
		t.Cleanup(func() { c.Close() })
		return c, client
	case <-time.After(2 * time.Second):
		t.Fatal("server side never upgraded")
		return nil, nil
	}
}

func TestConn_SendKinds(t *testing.T) {
	conn, client := newPair(t, DefaultOptions())

	require.NoError(t, conn.Send(domain.BinaryMessage([]byte{1, 2, 3})))
	require.NoError(t, conn.Send(domain.TextMessage(`{"type":"gaze_event","direction":"left"}`)))

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	typ, data, err := client.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, typ)
	assert.Equal(t, []byte{1, 2, 3}, data)

	typ, data, err = client.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, typ)
	assert.Equal(t, `{"type":"gaze_event","direction":"left"}`, string(data))
}

func TestConn_Receive(t *testing.T) {
	conn, client := newPair(t, DefaultOptions())

	require.NoError(t, client.WriteMessage(websocket.BinaryMessage, []byte("frame")))

	typ, data, err := conn.Receive()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, typ)
	assert.Equal(t, []byte("frame"), data)
}

func TestConn_SendAfterClose(t *testing.T) {
	conn, client := newPair(t, DefaultOptions())

	require.NoError(t, conn.Close())
	assert.NoError(t, conn.Close())

	err := conn.Send(domain.BinaryMessage([]byte("late")))
	assert.ErrorIs(t, err, domain.ErrConnectionClosed)

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = client.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)

	select {
	case <-conn.Closed():
	default:
		t.Fatal("Closed channel not signalled")
	}
}

func TestConn_ReadLimit(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxMessageSize = 64
	conn, client := newPair(t, opts)

	require.NoError(t, client.WriteMessage(websocket.BinaryMessage, make([]byte, 128)))

	_, _, err := conn.Receive()
	assert.ErrorIs(t, err, websocket.ErrReadLimit)
}

func TestConn_Ping(t *testing.T) {
	opts := DefaultOptions()
	opts.PingInterval = 20 * time.Millisecond
	_, client := newPair(t, opts)

	pinged := make(chan struct{}, 1)
	client.SetPingHandler(func(string) error {
		select {
		case pinged <- struct{}{}:
		default:
		}
		return nil
	})
	go func() {
		for {
			if _, _, err := client.ReadMessage(); err != nil {
				return
			}
		}
	}()

	select {
	case <-pinged:
	case <-time.After(2 * time.Second):
		t.Fatal("no ping received")
	}
}

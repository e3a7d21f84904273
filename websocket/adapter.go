package websocket

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hxri-nxrxyxn/eyetap/domain"
)

const closeWait = time.Second

type Options struct {
	WriteWait      time.Duration
	PongWait       time.Duration
	PingInterval   time.Duration
	MaxMessageSize int64
}

func DefaultOptions() Options {
	return Options{
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
		PingInterval:   54 * time.Second,
		MaxMessageSize: 4 * 1024 * 1024,
	}
}

// Conn adapts a gorilla connection to domain.Connection. Sends are written
// straight to the socket so a broadcast observes the real delivery result.
type Conn struct {
	id   string
	ws   *websocket.Conn
	opts Options

	writeMu   sync.Mutex
	closed    chan struct{}
	closeOnce sync.Once
}

func NewConn(id string, ws *websocket.Conn, opts Options) *Conn {
	c := &Conn{
		id:     id,
		ws:     ws,
		opts:   opts,
		closed: make(chan struct{}),
	}

	if opts.MaxMessageSize > 0 {
		ws.SetReadLimit(opts.MaxMessageSize)
	}
	if opts.PongWait > 0 {
		ws.SetReadDeadline(time.Now().Add(opts.PongWait))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(opts.PongWait))
		})
	}
	if opts.PingInterval > 0 {
		go c.pingLoop()
	}
	return c
}

func (c *Conn) ID() string         { return c.id }
func (c *Conn) RemoteAddr() string { return c.ws.RemoteAddr().String() }

func (c *Conn) Send(msg domain.Message) error {
	select {
	case <-c.closed:
		return domain.ErrConnectionClosed
	default:
	}

	frameType := websocket.BinaryMessage
	if msg.Kind == domain.Text {
		frameType = websocket.TextMessage
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.opts.WriteWait > 0 {
		c.ws.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
	}
	if err := c.ws.WriteMessage(frameType, msg.Data); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrConnectionClosed, err)
	}
	return nil
}

func (c *Conn) Receive() (int, []byte, error) {
	return c.ws.ReadMessage()
}

// Close sends a going-away close frame and releases the socket. Safe to call
// more than once.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		c.ws.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
			time.Now().Add(closeWait),
		)
		err = c.ws.Close()
	})
	return err
}

func (c *Conn) Closed() <-chan struct{} {
	return c.closed
}

func (c *Conn) pingLoop() {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			wait := c.opts.WriteWait
			if wait <= 0 {
				wait = closeWait
			}
			deadline := time.Now().Add(wait)
			if err := c.ws.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				slog.Debug("ping failed", "clientId", c.id, "error", err)
				c.Close()
				return
			}
		case <-c.closed:
			return
		}
	}
}

// Package relay runs the per-connection lifecycle of the hub: register,
// receive loop, and the guaranteed cleanup on every exit path.
package relay

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"github.com/hxri-nxrxyxn/eyetap/domain"
	"github.com/hxri-nxrxyxn/eyetap/protocol"
)

// Peer is a connection the relay can read from.
type Peer interface {
	domain.Connection
	Receive() (frameType int, data []byte, err error)
}

type Relay struct {
	registry domain.Registry
	handler  domain.MessageHandler
	active   atomic.Int64
}

func New(registry domain.Registry, handler domain.MessageHandler) *Relay {
	return &Relay{registry: registry, handler: handler}
}

// Serve blocks until the peer's receive loop ends. The peer is deregistered
// and closed before Serve returns, whatever ended the loop.
func (r *Relay) Serve(ctx context.Context, p Peer) {
	s := &session{peer: p}
	s.transition(domain.StateConnecting)

	r.registry.Register(p)
	r.active.Add(1)
	s.transition(domain.StateActive)

	defer func() {
		s.transition(domain.StateClosing)
		r.registry.Deregister(p)
		if err := p.Close(); err != nil {
			slog.Debug("close error", "clientId", p.ID(), "error", err)
		}
		r.active.Add(-1)
		s.transition(domain.StateClosed)
		slog.Info("client disconnected", "clientId", p.ID(), "clients", r.registry.Len())
	}()

	for {
		frameType, data, err := p.Receive()
		if err != nil {
			logTermination(p, classifyReceiveError(err))
			return
		}

		msg, err := protocol.Classify(frameType, data)
		if err != nil {
			slog.Warn("dropping frame", "clientId", p.ID(), "error", err)
			continue
		}
		r.handler.Handle(ctx, p, msg)
	}
}

// Active reports the number of receive loops currently running.
func (r *Relay) Active() int {
	return int(r.active.Load())
}

type session struct {
	peer  Peer
	state atomic.Int32
}

func (s *session) transition(to domain.State) {
	from := domain.State(s.state.Swap(int32(to)))
	if from != to {
		slog.Debug("connection state", "clientId", s.peer.ID(), "from", from, "to", to)
	}
}

func classifyReceiveError(err error) error {
	var closeErr *websocket.CloseError
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		return errors.Join(domain.ErrOversizeMessage, err)
	case errors.As(err, &closeErr) && closeErr.Code == websocket.CloseMessageTooBig:
		return errors.Join(domain.ErrOversizeMessage, err)
	case errors.As(err, &closeErr),
		errors.Is(err, io.EOF),
		errors.Is(err, net.ErrClosed),
		errors.Is(err, domain.ErrConnectionClosed):
		return errors.Join(domain.ErrConnectionClosed, err)
	default:
		return err
	}
}

func logTermination(p Peer, err error) {
	switch {
	case errors.Is(err, domain.ErrOversizeMessage):
		slog.Warn("message too large, closing connection", "clientId", p.ID(), "error", err)
	case errors.Is(err, domain.ErrConnectionClosed):
		slog.Info("client closed connection", "clientId", p.ID())
	default:
		slog.Warn("read error", "clientId", p.ID(), "error", err)
	}
}

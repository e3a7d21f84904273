package protocol

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/hxri-nxrxyxn/eyetap/domain"
)

type Handler struct {
	broadcaster   domain.Broadcaster
	sink          domain.EventSink
	forwardEvents bool

	eventsReceived atomic.Uint64
	eventsDropped  atomic.Uint64
}

// NewHandler routes binary frames to b and gaze events to sink. With
// forwardEvents set, the original text of each gaze event is also broadcast.
func NewHandler(b domain.Broadcaster, sink domain.EventSink, forwardEvents bool) *Handler {
	return &Handler{broadcaster: b, sink: sink, forwardEvents: forwardEvents}
}

func (h *Handler) Handle(ctx context.Context, conn domain.Connection, msg domain.Message) {
	switch msg.Kind {
	case domain.Binary:
		h.broadcaster.Broadcast(conn, msg)
	case domain.Text:
		h.handleText(ctx, conn, msg)
	default:
		slog.Warn("dropping message", "clientId", conn.ID(), "kind", msg.Kind)
	}
}

func (h *Handler) handleText(ctx context.Context, conn domain.Connection, msg domain.Message) {
	ev, err := Interpret(msg.Text())
	if err != nil {
		h.eventsDropped.Add(1)
		switch {
		case errors.Is(err, domain.ErrMalformedPayload):
			slog.Warn("invalid json message", "clientId", conn.ID(), "message", truncate(msg.Text(), 256))
		default:
			slog.Warn("unrecognized json message", "clientId", conn.ID(), "error", err)
		}
		return
	}

	h.eventsReceived.Add(1)
	ev.ClientID = conn.ID()
	ev.ReceivedAt = time.Now().UnixMilli()

	if h.sink != nil {
		if err := h.sink.Publish(ctx, ev); err != nil {
			slog.Warn("event sink error", "clientId", conn.ID(), "error", err)
		}
	}

	if h.forwardEvents {
		h.broadcaster.Broadcast(conn, msg)
	}
}

func (h *Handler) EventsReceived() uint64 { return h.eventsReceived.Load() }
func (h *Handler) EventsDropped() uint64  { return h.eventsDropped.Load() }

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

package hub

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/hxri-nxrxyxn/eyetap/domain"
)

type Stats struct {
	Clients          int    `json:"clients"`
	Broadcasts       uint64 `json:"broadcasts"`
	Deliveries       uint64 `json:"deliveries"`
	DeliveryFailures uint64 `json:"deliveryFailures"`
}

type Hub struct {
	registry *Registry

	broadcasts       atomic.Uint64
	deliveries       atomic.Uint64
	deliveryFailures atomic.Uint64
}

func New() *Hub {
	return &Hub{registry: NewRegistry()}
}

func (h *Hub) Register(conn domain.Connection) bool {
	added := h.registry.Register(conn)
	if added {
		slog.Info("client connected", "clientId", conn.ID(), "remoteAddr", conn.RemoteAddr(), "clients", h.registry.Len())
	}
	return added
}

func (h *Hub) Deregister(conn domain.Connection) bool {
	removed := h.registry.Deregister(conn)
	if removed {
		slog.Info("client removed", "clientId", conn.ID(), "clients", h.registry.Len())
	}
	return removed
}

func (h *Hub) Len() int {
	return h.registry.Len()
}

// Broadcast delivers msg to every registered connection except sender, one
// goroutine per recipient, and waits for all of them. A recipient whose send
// fails is deregistered and closed; the others are unaffected. It returns the
// number of successful deliveries.
func (h *Hub) Broadcast(sender domain.Connection, msg domain.Message) int {
	recipients := h.registry.SnapshotExcluding(sender)
	if len(recipients) == 0 {
		return 0
	}
	h.broadcasts.Add(1)

	var (
		wg        sync.WaitGroup
		delivered atomic.Int64
	)
	wg.Add(len(recipients))
	for _, conn := range recipients {
		go func(c domain.Connection) {
			defer wg.Done()
			if err := c.Send(msg); err != nil {
				h.dropRecipient(c, err)
				return
			}
			delivered.Add(1)
		}(conn)
	}
	wg.Wait()

	n := delivered.Load()
	h.deliveries.Add(uint64(n))
	return int(n)
}

func (h *Hub) dropRecipient(c domain.Connection, err error) {
	h.deliveryFailures.Add(1)
	slog.Warn("delivery failed", "clientId", c.ID(), "error", fmt.Errorf("%w: %w", domain.ErrDeliveryFailure, err))
	h.Deregister(c)
	if cerr := c.Close(); cerr != nil {
		slog.Debug("close after failed delivery", "clientId", c.ID(), "error", cerr)
	}
}

// CloseAll closes every registered connection. Their receive loops observe
// the close and deregister themselves.
func (h *Hub) CloseAll() {
	for _, c := range h.registry.Snapshot() {
		if err := c.Close(); err != nil {
			slog.Debug("close on shutdown", "clientId", c.ID(), "error", err)
		}
	}
}

func (h *Hub) Stats() Stats {
	return Stats{
		Clients:          h.registry.Len(),
		Broadcasts:       h.broadcasts.Load(),
		Deliveries:       h.deliveries.Load(),
		DeliveryFailures: h.deliveryFailures.Load(),
	}
}

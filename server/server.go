package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/hxri-nxrxyxn/eyetap/config"
	"github.com/hxri-nxrxyxn/eyetap/domain"
	"github.com/hxri-nxrxyxn/eyetap/hub"
	"github.com/hxri-nxrxyxn/eyetap/protocol"
	"github.com/hxri-nxrxyxn/eyetap/relay"
	ws "github.com/hxri-nxrxyxn/eyetap/websocket"
)

const drainPoll = 20 * time.Millisecond

type Stats struct {
	hub.Stats
	EventsReceived uint64 `json:"eventsReceived"`
	EventsDropped  uint64 `json:"eventsDropped"`
}

type Server struct {
	cfg      config.Config
	hub      *hub.Hub
	handler  *protocol.Handler
	relay    *relay.Relay
	upgrader websocket.Upgrader
	connOpts ws.Options
	baseCtx  context.Context
}

func New(cfg config.Config, sink domain.EventSink) *Server {
	h := hub.New()
	handler := protocol.NewHandler(h, sink, cfg.ForwardEvents)

	return &Server{
		cfg:     cfg,
		hub:     h,
		handler: handler,
		relay:   relay.New(h, handler),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		connOpts: ws.Options{
			WriteWait:      cfg.WriteWait,
			PongWait:       cfg.PongWait,
			PingInterval:   cfg.PingInterval,
			MaxMessageSize: cfg.MaxMessageSize,
		},
		baseCtx: context.Background(),
	}
}

func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/ws", s.wsHandler).Methods(http.MethodGet)
	r.HandleFunc("/health", healthHandler).Methods(http.MethodGet)
	r.HandleFunc("/stats", s.statsHandler).Methods(http.MethodGet)
	return r
}

// Run serves until ctx is cancelled, then stops accepting connections,
// closes every peer and waits for their receive loops to finish.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.baseCtx = ctx
	srv := &http.Server{
		Handler:     s.Router(),
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("relay server running", "url", "ws://"+ln.Addr().String()+"/ws", "maxMessageSize", s.cfg.MaxMessageSize, "forwardEvents", s.cfg.ForwardEvents)
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("server shutting down", "clients", s.hub.Len())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	s.hub.CloseAll()
	return s.drain(shutdownCtx)
}

func (s *Server) drain(ctx context.Context) error {
	ticker := time.NewTicker(drainPoll)
	defer ticker.Stop()

	for s.relay.Active() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

func (s *Server) Stats() Stats {
	return Stats{
		Stats:          s.hub.Stats(),
		EventsReceived: s.handler.EventsReceived(),
		EventsDropped:  s.handler.EventsDropped(),
	}
}

func (s *Server) wsHandler(w http.ResponseWriter, r *http.Request) {
	c, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("upgrade error", "error", err)
		return
	}

	conn := ws.NewConn(uuid.New().String(), c, s.connOpts)
	s.relay.Serve(s.baseCtx, conn)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.Stats())
}

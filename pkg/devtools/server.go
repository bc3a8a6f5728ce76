package devtools

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ServerConfig configures the inspector server.
type ServerConfig struct {
	// Addr is the listen address (default ":7070").
	Addr string

	// Gatherer backs /metrics. If nil, /metrics is not mounted.
	Gatherer prometheus.Gatherer

	// Logger receives connection logs (default slog.Default()).
	Logger *slog.Logger

	// ClientBuffer is the per-client queue of live events.
	ClientBuffer int

	// WriteTimeout bounds a single websocket write.
	WriteTimeout time.Duration
}

// ServerOption configures the inspector server.
type ServerOption func(*ServerConfig)

// WithAddr sets the listen address.
func WithAddr(addr string) ServerOption {
	return func(c *ServerConfig) {
		c.Addr = addr
	}
}

// WithGatherer mounts /metrics for the given gatherer.
func WithGatherer(g prometheus.Gatherer) ServerOption {
	return func(c *ServerConfig) {
		c.Gatherer = g
	}
}

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) ServerOption {
	return func(c *ServerConfig) {
		c.Logger = l
	}
}

// WithClientBuffer sets the per-client live event queue length.
func WithClientBuffer(n int) ServerOption {
	return func(c *ServerConfig) {
		c.ClientBuffer = n
	}
}

func defaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:         ":7070",
		Logger:       slog.Default(),
		ClientBuffer: 64,
		WriteTimeout: 5 * time.Second,
	}
}

// Server serves a Hub over HTTP.
//
// Routes:
//
//	GET /healthz   liveness
//	GET /graph     last published Graph as JSON
//	GET /events    buffered events as JSON, or a live stream when upgraded
//	               to a websocket
//	GET /metrics   Prometheus exposition (when a gatherer is configured)
type Server struct {
	hub      *Hub
	config   ServerConfig
	router   chi.Router
	upgrader websocket.Upgrader
	http     *http.Server
	log      *slog.Logger
}

// NewServer creates an inspector server for hub.
func NewServer(hub *Hub, opts ...ServerOption) *Server {
	config := defaultServerConfig()
	for _, opt := range opts {
		opt(&config)
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	s := &Server{
		hub:    hub,
		config: config,
		log:    config.Logger.With("component", "devtools"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // local inspector
			},
		},
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Get("/graph", s.handleGraph)
	r.Get("/events", s.handleEvents)
	if s.config.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.config.Gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.http = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.log.Info("inspector listening", "addr", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.http.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.hub.Close()
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.hub.Graph())
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if !websocket.IsWebSocketUpgrade(r) {
		writeJSON(w, s.hub.Recent())
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	id := uuid.NewString()
	backlog, live := s.hub.Subscribe(id, s.config.ClientBuffer)
	defer s.hub.Unsubscribe(id)
	s.log.Debug("inspector client connected", "session", id, "backlog", len(backlog))

	// Reader: detect disconnects.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := s.send(conn, hello{Type: "hello", Session: id}); err != nil {
		return
	}
	for _, e := range backlog {
		if err := s.send(conn, e); err != nil {
			return
		}
	}

	for {
		select {
		case <-done:
			s.log.Debug("inspector client disconnected", "session", id)
			return
		case e, ok := <-live:
			if !ok {
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "hub closed"))
				return
			}
			if err := s.send(conn, e); err != nil {
				return
			}
		}
	}
}

type hello struct {
	Type    string `json:"type"`
	Session string `json:"session"`
}

func (s *Server) send(conn *websocket.Conn, v any) error {
	if s.config.WriteTimeout > 0 {
		conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	}
	return conn.WriteJSON(v)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

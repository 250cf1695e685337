package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/safarnama/safarnama/internal/api"
	"github.com/safarnama/safarnama/internal/core/events/bus"
	"github.com/safarnama/safarnama/internal/core/observability/log"
	"github.com/safarnama/safarnama/internal/core/systems/ballfield"
	"github.com/safarnama/safarnama/internal/core/systems/loop"
)

// GenreLister supplies the labels for the genre field endpoint.
type GenreLister interface {
	All(ctx context.Context) []api.Genre
}

// Server streams ball field frames to browser renderers over websockets.
type Server struct {
	config  Config
	logger  log.Log
	events  bus.EventBus
	genres  GenreLister
	upgrade websocket.Upgrader

	httpServer *http.Server
	listener   net.Listener
	baseCtx    context.Context
	cancel     context.CancelFunc

	// Client management
	clients     sync.Map // map[string]*ClientSession
	clientCount atomic.Int64
	clientGroup sync.WaitGroup

	framesSent    atomic.Uint64
	activations   atomic.Uint64
	activationSub bus.Subscription

	running atomic.Bool
	closed  atomic.Bool
}

// Config holds server configuration
type Config struct {
	ListenAddr     string
	MaxClients     int
	MaxBodies      int
	WriteTimeout   time.Duration
	ReadLimit      int64
	AllowedOrigins []string

	// Arena used when a client does not send its own size
	DefaultWidth  float64
	DefaultHeight float64

	// Seed for field randomness; 0 seeds every field from the clock
	Seed uint64

	Loop loop.Config
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() Config {
	return Config{
		ListenAddr:    "127.0.0.1:8090",
		MaxClients:    1000,
		MaxBodies:     64,
		WriteTimeout:  5 * time.Second,
		ReadLimit:     64 * 1024,
		DefaultWidth:  1200,
		DefaultHeight: 600,
		Loop:          loop.DefaultConfig(),
	}
}

// NewServer creates a server. genres may be nil; a nil events gets a private
// bus. Field events are published on bus.TopicField.
func NewServer(config Config, events bus.EventBus, genres GenreLister, logger log.Log) *Server {
	if events == nil {
		events = bus.New()
	}
	s := &Server{
		config: config,
		logger: logger.With(log.String("component", "server")),
		events: events,
		genres: genres,
	}
	_ = events.CreateTopic(bus.TopicField, bus.TopicConfig{Description: "ball field activations and rebuilds"})
	// Handler and event type are both set, so this cannot fail.
	s.activationSub, _ = events.SubscribeTopic(bus.TopicField, bus.TypeBodyActivated, func(bus.Event) error {
		s.activations.Add(1)
		return nil
	})

	s.upgrade = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}

	s.logger.Info("Server created",
		log.String("listen_addr", config.ListenAddr),
		log.Int("max_clients", config.MaxClients),
		log.Int("frame_rate", config.Loop.FrameRate))

	return s
}

// Handler exposes the routes, mainly for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.HandleFunc("GET /genres/field", s.handleGenreField)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return mux
}

// Start listens and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	if s.closed.Load() {
		return ErrServerClosed
	}
	if !s.running.CompareAndSwap(false, true) {
		return ErrServerAlreadyRunning
	}

	listener, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		s.running.Store(false)
		s.logger.Error("Failed to create listener", log.Error(err))
		return fmt.Errorf("listen %s: %w", s.config.ListenAddr, err)
	}

	s.listener = listener
	s.baseCtx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return s.baseCtx },
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server stopped", log.Error(err))
		}
	}()

	s.logger.Info("Server listening", log.String("addr", listener.Addr().String()))
	return nil
}

// Addr is the bound listen address once started.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop shuts the HTTP server down, disconnects every client and waits for
// their loops to stop.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return ErrServerNotRunning
	}
	s.closed.Store(true)

	s.logger.Info("Stopping server")

	err := s.httpServer.Shutdown(ctx)
	s.cancel()

	s.clients.Range(func(_, value any) bool {
		_ = value.(*ClientSession).Connection.Close()
		return true
	})

	done := make(chan struct{})
	go func() {
		s.clientGroup.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	_ = s.events.Unsubscribe(s.activationSub)

	s.logger.Info("Server stopped",
		log.Uint64("frames_sent", s.framesSent.Load()),
		log.Uint64("activations", s.activations.Load()))
	return err
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.closed.Load() {
		http.Error(w, ErrServerClosed.Error(), http.StatusServiceUnavailable)
		return
	}
	if int(s.clientCount.Load()) >= s.config.MaxClients {
		s.logger.Warn("Maximum clients reached, rejecting connection", log.String("remote_addr", r.RemoteAddr))
		http.Error(w, ErrMaxClientsReached.Error(), http.StatusServiceUnavailable)
		return
	}

	width, height, err := s.arenaFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ws, err := s.upgrade.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("Websocket upgrade failed", log.Error(err))
		return
	}

	session := s.newClientSession(uuid.NewString(), NewConnection(ws, s.config.WriteTimeout, s.config.ReadLimit), width, height)

	s.clientGroup.Add(1)
	s.clients.Store(session.ID, session)
	s.clientCount.Add(1)
	s.logger.Info("Client connected",
		log.String("client_id", session.ID),
		log.String("remote_addr", r.RemoteAddr),
		log.Int64("total_clients", s.clientCount.Load()))

	defer func() {
		s.clients.Delete(session.ID)
		s.clientCount.Add(-1)
		s.clientGroup.Done()
		s.logger.Info("Client disconnected",
			log.String("client_id", session.ID),
			log.Int64("total_clients", s.clientCount.Load()))
	}()

	ctx := s.baseCtx
	if ctx == nil {
		ctx = r.Context()
	}
	session.serve(ctx)
}

// handleGenreField builds a field from the backend genres and returns its
// first snapshot, for renderers that only need a static layout.
func (s *Server) handleGenreField(w http.ResponseWriter, r *http.Request) {
	if s.genres == nil {
		http.Error(w, "genre source not configured", http.StatusServiceUnavailable)
		return
	}
	width, height, err := s.arenaFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	labels := uniqueLabels(api.GenreNames(s.genres.All(r.Context())))
	if len(labels) > s.config.MaxBodies {
		labels = labels[:s.config.MaxBodies]
	}
	field := ballfield.NewField(labels, width, height, s.newSource())

	writeJSON(w, http.StatusOK, map[string]any{
		"width":   width,
		"height":  height,
		"palette": paletteNames(),
		"bodies":  field.Snapshot(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.Stats())
}

// Stats returns server statistics
func (s *Server) Stats() Stats {
	topics := s.events.GetTopics()
	names := make([]string, len(topics))
	for i, t := range topics {
		names[i] = t.Name
	}
	return Stats{
		ClientCount:     s.clientCount.Load(),
		FramesSent:      s.framesSent.Load(),
		Activations:     s.activations.Load(),
		EventsPublished: s.events.GetMetrics().Published,
		Topics:          names,
		Running:         s.running.Load(),
	}
}

// Stats contains server statistics
type Stats struct {
	ClientCount     int64    `json:"clients"`
	FramesSent      uint64   `json:"framesSent"`
	Activations     uint64   `json:"activations"`
	EventsPublished uint64   `json:"eventsPublished"`
	Topics          []string `json:"topics"`
	Running         bool     `json:"running"`
}

func (s *Server) arenaFromQuery(r *http.Request) (float64, float64, error) {
	width, height := s.config.DefaultWidth, s.config.DefaultHeight
	q := r.URL.Query()
	for _, p := range []struct {
		key string
		dst *float64
	}{{"width", &width}, {"height", &height}} {
		raw := q.Get(p.key)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v <= 0 {
			return 0, 0, fmt.Errorf("%w: %s=%q", ErrInvalidArena, p.key, raw)
		}
		*p.dst = v
	}
	return width, height, nil
}

func (s *Server) validateLabels(labels []string) error {
	if len(labels) > s.config.MaxBodies {
		return fmt.Errorf("%w: %d > %d", ErrTooManyLabels, len(labels), s.config.MaxBodies)
	}
	seen := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		if l == "" {
			return ErrEmptyLabel
		}
		if _, dup := seen[l]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateLabel, l)
		}
		seen[l] = struct{}{}
	}
	return nil
}

func (s *Server) newSource() ballfield.Source {
	return ballfield.NewSource(s.config.Seed)
}

func (s *Server) publish(e bus.Event) {
	if err := s.events.PublishToTopic(bus.TopicField, e); err != nil {
		s.logger.Warn("Event handlers failed", log.String("type", e.Type()), log.Error(err))
	}
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if len(s.config.AllowedOrigins) == 0 {
		return sameHost(origin, r.Host)
	}
	for _, o := range s.config.AllowedOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

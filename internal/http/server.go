package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"nodebell/internal/telemetry"
	"nodebell/pkg/alert"
	"nodebell/pkg/config"
	"nodebell/pkg/registry"
)

const (
	contentTypeJSON = "application/json"
	// same limit as the usual JSON body parser default
	maxEventBodyBytes = 100 << 10
)

type iRegistry interface {
	Count() int
	Register(ctx context.Context, id string) registry.Status
	Lookup(id string) (registry.Status, bool)
	List() []registry.Entry
}

type iNotifier interface {
	Submit(ctx context.Context, nodeID, eventType string) alert.Event
	Close(ctx context.Context) error
}

// Server represents the HTTP server with the node registry and the event notifier
type Server struct {
	registry iRegistry
	notifier iNotifier

	routes       config.RoutesConfig
	strictLookup bool

	readHeaderTimeout time.Duration
	shutdownTimeout   time.Duration

	httpServer *http.Server
	URL        string
	addr       string
}

// NewServer creates a new server instance
func NewServer(reg iRegistry, notifier iNotifier, cfg *config.Config) *Server {
	port := strconv.Itoa(cfg.Server.Port)
	return &Server{
		registry:          reg,
		notifier:          notifier,
		routes:            cfg.Routes,
		strictLookup:      cfg.Registry.StrictLookup,
		readHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		shutdownTimeout:   cfg.Server.ShutdownTimeout,
		URL:               "http://localhost:" + port,
		addr:              ":" + port,
	}
}

// Start starts the server
func (s *Server) Start() error {
	if err := s.startHTTPServer(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop stops the server and waits for alerts that are still playing.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	var errs []error
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown HTTP server: %w", err))
		}
	}
	// alerts already accepted are drained even if the listener failed to stop
	if err := s.notifier.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to drain notifier: %w", err))
	}
	return errors.Join(errs...)
}

// createRouter builds chi router
func (s *Server) createRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(telemetry.Instrument)

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", telemetry.MetricsHandler())
	r.Get("/debug/nodes", s.handleListNodes)

	r.Mount(s.routes.Nodes, s.nodesRouter())
	r.Mount(s.routes.Events, s.eventsRouter())

	return r
}

func (s *Server) nodesRouter() http.Handler {
	r := chi.NewRouter()
	r.Get("/", s.handleCount)
	r.Post("/{nodeId}", s.handleRegister)
	r.Get("/{nodeId}", s.handleLookup)
	return r
}

func (s *Server) eventsRouter() http.Handler {
	r := chi.NewRouter()
	r.Get("/", s.handleEventsRoot)
	r.Post("/event", s.handleEvent)
	return r
}

func (s *Server) startHTTPServer() error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.createRouter(),
		ReadHeaderTimeout: s.readHeaderTimeout,
	}

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	slog.Info("HTTP server started", "addr", s.URL, "nodes", s.routes.Nodes, "events", s.routes.Events)
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Warn("Error encoding response", "error", err)
	}
}

// nodeID returns the decoded {nodeId} path segment.
func nodeID(r *http.Request) string {
	id := chi.URLParam(r, "nodeId")
	// chi routes on RawPath when the path has escaped slashes
	if r.URL.RawPath == "" {
		return id
	}
	if unescaped, err := url.PathUnescape(id); err == nil {
		return unescaped
	}
	return id
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, NewOKResponse())
}

func (s *Server) handleCount(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, CountResponse{Count: s.registry.Count()})
}

func (s *Server) handleListNodes(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, ListResponse{Nodes: s.registry.List()})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	id := nodeID(r)
	s.registry.Register(r.Context(), id)
	s.writeJSON(w, http.StatusOK, NewRegisterResponse(id))
}

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	status, found := s.registry.Lookup(nodeID(r))
	if found {
		s.writeJSON(w, http.StatusOK, NodeResponse{Node: &status})
		return
	}

	if s.strictLookup {
		s.writeJSON(w, http.StatusNotFound, NodeResponse{Error: "node not found"})
		return
	}
	s.writeJSON(w, http.StatusOK, NodeResponse{})
}

func (s *Server) handleEventsRoot(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, struct{}{})
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	var req EventRequest

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEventBodyBytes))
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeJSON(w, http.StatusRequestEntityTooLarge, NewErrorResponse("request body too large"))
			return
		}
		s.writeJSON(w, http.StatusBadRequest, NewErrorResponse(fmt.Sprintf("invalid event body: %v", err)))
		return
	}

	s.notifier.Submit(r.Context(), req.NodeID, req.Event)
	s.writeJSON(w, http.StatusOK, NewAckResponse())
}

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cliftonc/entente/pkg/contract"
	"github.com/cliftonc/entente/pkg/logging"
	"github.com/cliftonc/entente/pkg/recorder"
	"github.com/cliftonc/entente/pkg/router"
)

// ErrAlreadyRunning is returned by Start on a running server.
var ErrAlreadyRunning = errors.New("server: already running")

const defaultMaxBodyBytes = 1 << 20 // 1 MiB

// Config holds mock server settings.
type Config struct {
	// Host to bind; empty binds all interfaces.
	Host string `json:"host,omitempty" yaml:"host,omitempty"`
	// Port to listen on; 0 picks a free port.
	Port int `json:"port" yaml:"port"`
	// Service is the mocked provider's name, recorded with interactions.
	Service string `json:"service,omitempty" yaml:"service,omitempty"`
	// Consumer is the consumer under test, recorded with interactions.
	Consumer string `json:"consumer,omitempty" yaml:"consumer,omitempty"`
	// Version is the consumer version recorded with interactions.
	Version string `json:"version,omitempty" yaml:"version,omitempty"`
	// MaxBodyBytes caps request body reads. Defaults to 1 MiB.
	MaxBodyBytes int64 `json:"maxBodyBytes,omitempty" yaml:"maxBodyBytes,omitempty"`
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the operational logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// WithRecorder sets the interaction sink. Nil disables recording.
func WithRecorder(sink recorder.Sink) Option {
	return func(s *Server) {
		s.recorder = sink
	}
}

// Server serves mock responses from a router over HTTP, WebSocket, and
// SSE.
type Server struct {
	cfg      Config
	router   *router.Router
	recorder recorder.Sink
	log      *slog.Logger

	mu         sync.Mutex
	httpServer *http.Server
	listener   net.Listener
	running    bool
}

// New creates a mock server over a router.
func New(cfg Config, rt *router.Router, opts ...Option) *Server {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	s := &Server{
		cfg:    cfg,
		router: rt,
		log:    logging.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins listening. It returns once the listener is bound; serving
// continues in the background until Stop.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrAlreadyRunning
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.running = true

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("mock server stopped", "error", err)
		}
	}()

	s.log.Info("mock server listening", "addr", listener.Addr().String())
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	s.running = false
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP dispatches by transport: WebSocket upgrades and SSE Accepts
// go to the event adapters, everything else is a plain mock exchange.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case strings.EqualFold(r.Header.Get("Upgrade"), "websocket"):
		s.handleWebSocket(w, r)
	case strings.Contains(strings.ToLower(r.Header.Get("Accept")), "text/event-stream"):
		s.handleSSE(w, r)
	default:
		s.handleHTTP(w, r)
	}
}

func (s *Server) handleHTTP(w http.ResponseWriter, r *http.Request) {
	req := s.canonicalize(w, r)
	out := s.router.Route(req)
	s.record(req, out)

	if !out.Matched {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"error": "no matching operation",
			"path":  r.URL.Path,
		})
		return
	}

	resp := out.Response
	for k, v := range resp.Headers {
		w.Header().Set(k, v)
	}
	if resp.Body == nil {
		w.WriteHeader(resp.Status)
		return
	}
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(resp.Status)
	if err := json.NewEncoder(w).Encode(resp.Body); err != nil {
		s.log.Warn("write response body", "error", err)
	}
}

// canonicalize reduces an http.Request to the engine's canonical form:
// first header and query values, JSON body parsed when it decodes.
func (s *Server) canonicalize(w http.ResponseWriter, r *http.Request) *contract.Request {
	headers := make(map[string]string, len(r.Header))
	for k := range r.Header {
		headers[k] = r.Header.Get(k)
	}
	var query map[string]string
	if values := r.URL.Query(); len(values) > 0 {
		query = make(map[string]string, len(values))
		for k := range values {
			query[k] = values.Get(k)
		}
	}

	var body any
	if r.Body != nil {
		raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
		if err != nil {
			s.log.Warn("read request body", "error", err)
		} else if len(raw) > 0 {
			var decoded any
			if json.Unmarshal(raw, &decoded) == nil {
				body = decoded
			} else {
				body = string(raw)
			}
		}
	}

	return contract.NewRequest(r.Method, r.URL.Path, headers, query, body)
}

// record forwards the exchange to the recorder sink, if any.
func (s *Server) record(req *contract.Request, out *router.MatchOutcome) {
	if s.recorder == nil {
		return
	}
	s.recorder.RecordInteraction(recorder.Interaction{
		Service:         s.cfg.Service,
		Consumer:        s.cfg.Consumer,
		ConsumerVersion: s.cfg.Version,
		Operation:       out.OperationID,
		SpecType:        out.Format,
		Matched:         out.Matched,
		Request:         req,
		Response:        out.Response,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// Package status serves a read-only view of the scheduler over HTTP.
package status

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/pprof"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"ticksched/internal/journal"
	"ticksched/internal/runtime/supervisor"
	"ticksched/internal/scheduler"
	logx "ticksched/pkg/logx"
)

const (
	defaultJournalLimit = 50
	maxJournalLimit     = 1000
	shutdownTimeout     = 2 * time.Second
)

// SnapshotSource is what the server reads scheduler state from.
type SnapshotSource interface {
	Snapshot() scheduler.Snapshot
}

// RuntimeSource reports process-level goroutine and event bus counters.
type RuntimeSource interface {
	Runtime() Runtime
}

// Runtime is served at /runtime.
type Runtime struct {
	Goroutines supervisor.Snapshot `json:"goroutines"`
	Bus        BusStats            `json:"bus"`
}

type BusStats struct {
	Subscribers int    `json:"subscribers"`
	Published   uint64 `json:"published"`
	Dropped     uint64 `json:"dropped"`
}

type Option func(*Server)

// WithRuntime enables /runtime.
func WithRuntime(src RuntimeSource) Option {
	return func(s *Server) { s.runtime = src }
}

type Config struct {
	Addr  string
	Pprof bool
}

// Server owns the listener lifecycle; routes are fixed at construction.
type Server struct {
	cfg     Config
	log     logx.Logger
	router  chi.Router
	sched   SnapshotSource
	journal journal.Store // nil when disabled
	runtime RuntimeSource // nil when not wired
	started time.Time

	mu   sync.Mutex
	srv  *http.Server
	ln   net.Listener
	addr string
}

func New(cfg Config, sched SnapshotSource, store journal.Store, log logx.Logger, opts ...Option) *Server {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Server{
		cfg:     cfg,
		log:     log,
		router:  chi.NewRouter(),
		sched:   sched,
		journal: store,
		started: time.Now(),
	}
	for _, o := range opts {
		o(s)
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(s.log))

	r.Get("/healthz", s.handleHealth)
	r.Get("/status", s.handleStatus)
	r.Get("/journal", s.handleJournal)
	r.Get("/runtime", s.handleRuntime)

	if s.cfg.Pprof {
		r.Route("/debug/pprof", func(r chi.Router) {
			r.HandleFunc("/", pprof.Index)
			r.HandleFunc("/cmdline", pprof.Cmdline)
			r.HandleFunc("/profile", pprof.Profile)
			r.HandleFunc("/symbol", pprof.Symbol)
			r.HandleFunc("/trace", pprof.Trace)
			r.HandleFunc("/{name}", pprof.Index)
		})
	}
}

func (s *Server) Handler() http.Handler { return s.router }

// Start listens on cfg.Addr and serves in the background.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv != nil {
		return nil
	}

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	s.srv, s.ln, s.addr = srv, ln, ln.Addr().String()

	addr := s.addr
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Warn("status server error", logx.String("addr", addr), logx.Err(err))
		}
	}()
	s.log.Info("status server listening", logx.String("addr", addr), logx.Bool("pprof", s.cfg.Pprof))
	return nil
}

// Stop gracefully shuts the listener down. Safe to call when not started.
func (s *Server) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv == nil {
		return
	}
	srv, ln, addr := s.srv, s.ln, s.addr
	s.srv, s.ln, s.addr = nil, nil, ""

	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
	}
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.log.Warn("status shutdown error", logx.String("addr", addr), logx.Err(err))
	}
	_ = ln.Close()
	s.log.Info("status server stopped", logx.String("addr", addr))
}

// Addr reports the actual listen address while running.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

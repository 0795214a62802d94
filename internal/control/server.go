// Package control exposes the watcher's inputs over a small loopback HTTP API:
// host lifecycle transitions, the manual enable override and a diagnostic
// poll, plus read-only status and recent events.
package control

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"afterschool/internal/eventbus"
	"afterschool/internal/watcher"
	logx "afterschool/pkg/logx"
)

const DefaultAddr = "127.0.0.1:7341"

// Watcher is the part of watcher.Controller the API drives.
type Watcher interface {
	AppStateChanged(next watcher.AppState)
	PollNow(ctx context.Context) (watcher.CycleReport, error)
	Status() watcher.Status
}

// Enabler applies the manual enable override. nil clears it. It returns the
// effective enable flag after the change.
type Enabler interface {
	SetOverride(enabled *bool) bool
}

type Config struct {
	Addr  string
	Token string // optional bearer token
	// Pprof mounts net/http/pprof under /debug/pprof.
	Pprof bool
}

type Deps struct {
	Watcher Watcher
	Enabler Enabler
	Events  *eventbus.Ring
	// Health, when set, is rendered by GET /v1/health.
	Health func() any
	Log    logx.Logger
}

// Server is the control API.
type Server struct {
	cfg    Config
	deps   Deps
	log    logx.Logger
	engine *gin.Engine

	mu   sync.Mutex
	addr net.Addr
}

func New(cfg Config, deps Deps) *Server {
	if strings.TrimSpace(cfg.Addr) == "" {
		cfg.Addr = DefaultAddr
	}
	log := deps.Log
	if log.IsZero() {
		log = logx.Nop()
	}
	log = log.With(logx.String("comp", "control"))

	s := &Server{cfg: cfg, deps: deps, log: log}
	s.engine = s.routes()
	return s
}

// Handler returns the HTTP handler (useful with httptest).
func (s *Server) Handler() http.Handler { return s.engine }

// Addr returns the bound address once Run is listening.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Run listens on cfg.Addr and serves until ctx is canceled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.addr = ln.Addr()
	s.mu.Unlock()

	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	s.log.Info("control api listening", logx.String("addr", ln.Addr().String()), logx.Bool("auth", s.cfg.Token != ""))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shCtx); err != nil {
		return err
	}
	return ctx.Err()
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(s.recovery(), s.requestLog())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/v1")
	v1.Use(s.bearerAuth())
	{
		v1.POST("/lifecycle", s.handleLifecycle())
		v1.POST("/enabled", s.handleEnabled())
		v1.POST("/poll", s.handlePoll())
		v1.GET("/status", s.handleStatus())
		v1.GET("/events", s.handleEvents())
		v1.GET("/health", s.handleHealth())
	}
	if s.cfg.Pprof {
		s.mountPprof(r)
	}
	return r
}

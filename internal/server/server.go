// Package server exposes quota sections and connection control over HTTP
// for dashboards and scripts.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/joshuadavidthomas/zerolimit/internal/connect"
	"github.com/joshuadavidthomas/zerolimit/internal/logging"
	"github.com/joshuadavidthomas/zerolimit/internal/metrics"
	"github.com/joshuadavidthomas/zerolimit/internal/privacy"
	"github.com/joshuadavidthomas/zerolimit/internal/provider"
	"github.com/joshuadavidthomas/zerolimit/internal/quota"
)

// ShutdownTimeout bounds graceful shutdown once the run context ends.
const ShutdownTimeout = 5 * time.Second

// Quotas is the orchestrator surface the API reads and triggers.
type Quotas interface {
	Sections() []quota.Section
	RefreshFile(ctx context.Context, fileID string) bool
}

// Reloader queues a full credential reload. The reload runs on the
// orchestrator's own context, never on a request's.
type Reloader interface {
	RequestReload(reason string)
}

// Connections is the connection machine surface the API drives.
type Connections interface {
	State(p provider.Type) connect.State
	States() map[string]connect.State
	StartAuth(ctx context.Context, p provider.Type, opts connect.StartOptions) (connect.State, error)
	Cancel(p provider.Type)
	SubmitCallback(ctx context.Context, p provider.Type, redirectURL string) error
}

// Server is the HTTP API.
type Server struct {
	router  *gin.Engine
	quotas  Quotas
	reload  Reloader
	conns   Connections
	metrics *metrics.Metrics
	masker  privacy.Masker
	started time.Time
}

// New builds the router. m may be nil, which disables /metrics.
func New(q Quotas, r Reloader, c Connections, m *metrics.Metrics, masker privacy.Masker) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		router:  gin.New(),
		quotas:  q,
		reload:  r,
		conns:   c,
		metrics: m,
		masker:  masker,
		started: time.Now(),
	}
	s.router.HandleMethodNotAllowed = true
	s.router.Use(gin.Recovery())
	if m != nil {
		s.router.Use(metrics.Middleware(m))
	}
	s.setupRoutes()
	return s
}

// Handler returns the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.GET("/healthz", s.handleHealth)
	if s.metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	api := s.router.Group("/api")
	{
		api.GET("/sections", s.handleSections)
		api.POST("/refresh", s.handleRefresh)
		api.GET("/connections", s.handleConnections)
		api.POST("/connections/:provider/start", s.handleStart)
		api.POST("/connections/:provider/cancel", s.handleCancel)
		api.POST("/connections/:provider/callback", s.handleCallback)
	}
}

// Run serves on addr until ctx ends, then shuts down gracefully. Request
// contexts carry ctx's logger but not its cancellation.
func (s *Server) Run(ctx context.Context, addr string) error {
	logger := logging.FromContext(ctx)
	base := context.WithoutCancel(ctx)

	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return base },
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP server", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("serving %s: %w", addr, err)
	case <-ctx.Done():
	}

	logger.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(base, ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

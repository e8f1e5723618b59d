// Package api is the read-only HTTP surface over the materialized store.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"grantstream/internal/cache"
	"grantstream/internal/query"
)

// Server wraps the gin engine and its http.Server.
type Server struct {
	engine *gin.Engine
	srv    *http.Server
	logger *zap.Logger
}

// NewServer builds the engine and registers all routes. pinger may be nil
// when the store has no reachability check.
func NewServer(addr string, service *query.Service, analyticsCache *cache.Cache, pinger Pinger, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	healthHandler := &HealthHandler{Store: pinger}
	healthHandler.Register(engine)
	instanceHandler := &InstanceHandler{Service: service, Logger: logger}
	instanceHandler.Register(engine)
	analyticsHandler := &AnalyticsHandler{Service: service, Cache: analyticsCache, Logger: logger}
	analyticsHandler.Register(engine)

	return &Server{
		engine: engine,
		srv: &http.Server{
			Addr:    addr,
			Handler: engine,
		},
		logger: logger,
	}
}

// Handler exposes the engine, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

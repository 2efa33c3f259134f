package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// RouterConfig carries what the router needs beyond the handler.
type RouterConfig struct {
	AdminToken string
	IconsDir   string
	Debug      bool
}

// NewRouter wires every route.
func NewRouter(h *Handler, hub *RateHub, cfg RouterConfig, logger *slog.Logger) *gin.Engine {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(Recovery(logger), RequestLogger(logger))

	r.GET("/healthz", h.Health)
	if hub != nil {
		r.GET("/ws/rates", hub.ServeWS)
	}
	if cfg.IconsDir != "" {
		r.Static("/icons", cfg.IconsDir)
	}

	v1 := r.Group("/api/v1")
	{
		v1.GET("/quote", h.Quote)
		v1.GET("/quote/range", h.QuoteRange)
		v1.GET("/quote/line", h.QuoteLine)
		v1.GET("/rate", h.Rate)
		v1.POST("/display/toggle", h.Toggle)
	}

	admin := v1.Group("/admin", AdminAuth(cfg.AdminToken))
	{
		admin.GET("/settings", h.GetSettings)
		admin.PUT("/settings", h.UpdateSettings)
		admin.DELETE("/settings/:key", h.ResetSetting)
		admin.POST("/cache/invalidate", h.InvalidateCache)
		admin.GET("/metrics", h.Metrics)
	}

	return r
}

// Server runs the router until the context is cancelled.
type Server struct {
	srv    *http.Server
	logger *slog.Logger
}

// NewServer creates a server listening on addr.
func NewServer(addr string, handler http.Handler, logger *slog.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Run blocks until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server started", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("HTTP server stopped")
	return nil
}

package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/atikulmunna/dlcount/internal/aggregator"
	"github.com/atikulmunna/dlcount/internal/metrics"
	"github.com/atikulmunna/dlcount/internal/model"
	"github.com/atikulmunna/dlcount/internal/output"
	"github.com/atikulmunna/dlcount/internal/store"
	"github.com/atikulmunna/dlcount/internal/watcher"
)

// Server is a read-only HTTP view of the persisted download counts.
type Server struct {
	engine  *gin.Engine
	store   store.Store
	metrics *metrics.Metrics
	start   string

	mu       sync.RWMutex
	counts   *model.CountTable
	loadedAt time.Time
	loadErr  error
}

// New creates the server. Call Reload before serving to populate the counts.
func New(st store.Store, m *metrics.Metrics, reportStart string) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	engine.RedirectTrailingSlash = false
	engine.RedirectFixedPath = false

	s := &Server{
		engine:  engine,
		store:   st,
		metrics: m,
		start:   reportStart,
		counts:  model.NewCountTable(),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		s.mu.RLock()
		defer s.mu.RUnlock()

		status := http.StatusOK
		body := gin.H{
			"status":    "ok",
			"artifacts": s.counts.Len(),
			"loaded_at": s.loadedAt,
		}
		if s.loadErr != nil {
			body["status"] = "degraded"
			body["error"] = s.loadErr.Error()
			if s.loadedAt.IsZero() {
				status = http.StatusServiceUnavailable
			}
		}
		c.JSON(status, body)
	})

	s.engine.GET("/api/counts", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.report())
	})

	s.engine.GET("/stats.txt", func(c *gin.Context) {
		c.String(http.StatusOK, "%s", s.report().String())
	})

	s.engine.GET("/metrics", gin.WrapH(s.metrics.Handler()))
}

// report renders the currently loaded counts.
func (s *Server) report() output.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return output.Report{
		Start:       s.start,
		Total:       aggregator.Total(s.counts),
		GeneratedAt: s.loadedAt,
		Ranked:      s.counts.Ranked(),
	}
}

// Reload reads the persisted count table. On failure the previous counts
// stay in place.
func (s *Server) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts, err := s.store.LoadCounts()
	if err != nil {
		s.loadErr = err
		s.metrics.ReloadErrors.Inc()
		return err
	}
	s.counts = counts
	s.loadedAt = time.Now()
	s.loadErr = nil
	s.metrics.Reloads.Inc()
	s.metrics.Observe(counts)
	return nil
}

// Watch reloads the counts whenever w reports a change. Blocks until the
// watcher's event channel is closed.
func (s *Server) Watch(w *watcher.Watcher) {
	for range w.Events {
		if err := s.Reload(); err != nil {
			log.Warn().Err(err).Msg("reload counts")
			continue
		}
		log.Info().Str("file", w.Path()).Msg("counts reloaded")
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("server starting")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

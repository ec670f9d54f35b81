// Package server exposes research runs and run metrics over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/m-mizutani/ferret/pkg/metrics"
	"github.com/m-mizutani/ferret/pkg/model"
	"github.com/m-mizutani/ferret/pkg/usecase/research"
	"github.com/m-mizutani/ferret/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

const shutdownTimeout = 10 * time.Second

// Researcher runs one research query.
type Researcher interface {
	Research(ctx context.Context, query string) (*research.Outcome, error)
}

type Server struct {
	echo       *echo.Echo
	researcher Researcher
	recorder   *metrics.Recorder
	now        func() time.Time
}

type Option func(*Server)

func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

func New(researcher Researcher, recorder *metrics.Recorder, opts ...Option) *Server {
	s := &Server{
		echo:       echo.New(),
		researcher: researcher,
		recorder:   recorder,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Use(middleware.Recover())
	s.echo.Use(requestLogger)

	s.echo.GET("/", s.root)
	s.echo.GET("/health", s.health)
	s.echo.POST("/research/sync", s.researchSync)
	s.echo.GET("/recent", s.recent)
	s.echo.GET("/metrics/summary", s.summary)
	s.echo.GET("/metrics", echo.WrapHandler(recorder.Handler()))

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		logging.From(ctx).Info("server started", slog.String("addr", addr))
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- goerr.Wrap(err, "failed to serve", goerr.V("addr", addr))
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return goerr.Wrap(err, "failed to shutdown server")
	}
	logging.From(ctx).Info("server stopped")
	return nil
}

func requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		started := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}
		logging.From(c.Request().Context()).Info("request",
			slog.String("method", c.Request().Method),
			slog.String("path", c.Path()),
			slog.Int("status", c.Response().Status),
			slog.Duration("elapsed", time.Since(started)))
		return nil
	}
}

func (s *Server) root(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"name": "ferret",
		"endpoints": map[string]string{
			"POST /research/sync":  "Execute research synchronously",
			"GET /health":          "Health check",
			"GET /recent":          "Recent research runs",
			"GET /metrics/summary": "Summary of recent research runs",
			"GET /metrics":         "Prometheus metrics",
		},
	})
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": s.now(),
	})
}

type researchRequest struct {
	Query string `json:"query"`
}

type researchResponse struct {
	RunID     model.RunID      `json:"run_id"`
	Saved     bool             `json:"saved"`
	ExportURL string           `json:"export_url,omitempty"`
	Result    *model.RunResult `json:"result"`
}

func (s *Server) researchSync(c echo.Context) error {
	var req researchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Query) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query cannot be empty")
	}

	ctx := c.Request().Context()
	out, err := s.researcher.Research(ctx, req.Query)
	if err != nil {
		logging.From(ctx).Error("failed to keep research run", slog.Any("error", err))
		return echo.NewHTTPError(http.StatusInternalServerError, "research execution failed: "+err.Error())
	}
	if !out.Result.Success {
		return echo.NewHTTPError(http.StatusInternalServerError, "research failed: "+out.Result.Error)
	}

	return c.JSON(http.StatusOK, &researchResponse{
		RunID:     out.RunID,
		Saved:     out.Saved,
		ExportURL: out.ExportURL,
		Result:    out.Result,
	})
}

func (s *Server) recent(c echo.Context) error {
	runs := s.recorder.Recent()
	return c.JSON(http.StatusOK, map[string]any{
		"count":    len(runs),
		"research": runs,
	})
}

func (s *Server) summary(c echo.Context) error {
	return c.JSON(http.StatusOK, s.recorder.Summary())
}

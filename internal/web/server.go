package web

import (
	"context"
	"embed"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hpungsan/countrycache/internal/config"
	"github.com/hpungsan/countrycache/internal/db"
	"github.com/hpungsan/countrycache/internal/errors"
	"github.com/hpungsan/countrycache/internal/metrics"
	"github.com/hpungsan/countrycache/internal/ops"
	"github.com/hpungsan/countrycache/internal/report"
)

//go:embed static/*
var staticFS embed.FS

// NewServer creates and configures the HTTP server for the country API.
func NewServer(store *db.Store, refresher *ops.Refresher, renderer *report.Renderer, cfg *config.Config, logger *zap.Logger) *http.Server {
	h := NewHandlers(store, refresher, renderer, cfg, logger)
	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Bind, cfg.Port),
		Handler:           h.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// Router builds the route table with the middleware chain applied.
func (h *Handlers) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.logger))
	r.Use(middleware.Recoverer)
	r.Use(metrics.InstrumentHandler)
	r.Use(corsHeaders)

	r.Get("/", h.HandleHome)
	r.Get("/health", h.HandleHealth)
	r.Get("/docs", h.HandleDocs)
	r.Get("/openapi.yaml", h.HandleOpenAPI)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/countries", func(r chi.Router) {
		r.With(h.rateLimit).Post("/refresh", h.HandleRefresh)
		r.Get("/", h.HandleList)
		r.Get("/image", h.HandleImage)
		r.Get("/{name}", h.HandleGet)
		r.Delete("/{name}", h.HandleDelete)
	})
	r.Get("/status", h.HandleStatus)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		renderJSON(w, http.StatusNotFound, errorBody{Error: "Endpoint not found", Code: "NOT_FOUND", Message: "no route matches this path"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		renderJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "Method not allowed", Code: "INVALID_REQUEST", Message: "method not supported for this path"})
	})
	return r
}

// corsHeaders allows any origin and answers preflight requests directly.
func corsHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With, Accept, Origin")
		w.Header().Set("Access-Control-Max-Age", "86400")
		w.Header().Set("X-Content-Type-Options", "nosniff")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestLogger tags every request with a ULID and logs it once it completes.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := ulid.Make().String()
			w.Header().Set("X-Request-ID", reqID)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			fields := []zap.Field{
				zap.String("request_id", reqID),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Int("bytes", ww.BytesWritten()),
				zap.String("remote", r.RemoteAddr),
				zap.Duration("elapsed", time.Since(start)),
			}
			if status >= http.StatusInternalServerError {
				logger.Warn("request failed", fields...)
				return
			}
			logger.Info("request", fields...)
		})
	}
}

// newRefreshLimiter returns nil when perMinute disables limiting.
func newRefreshLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(float64(perMinute)/60), perMinute)
}

// rateLimit guards the refresh endpoint with one process-wide token bucket.
func (h *Handlers) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.limiter != nil && !h.limiter.Allow() {
			retry := (60 + h.cfg.RefreshPerMinute - 1) / h.cfg.RefreshPerMinute
			w.Header().Set("Retry-After", fmt.Sprintf("%d", retry))
			h.logger.Warn("refresh rate limit exceeded", zap.String("remote", r.RemoteAddr))
			h.renderError(w, errors.NewRateLimited(h.cfg.RefreshPerMinute), "")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Run starts the HTTP server and handles graceful shutdown on SIGINT/SIGTERM.
func Run(srv *http.Server, logger *zap.Logger) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Info("country API listening", zap.String("addr", "http://"+srv.Addr))

	if strings.Contains(srv.Addr, "0.0.0.0") || strings.Contains(srv.Addr, "::") {
		logger.Warn("server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		logger.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}

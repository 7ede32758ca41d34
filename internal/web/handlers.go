package web

import (
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"

	"github.com/hpungsan/countrycache/internal/config"
	"github.com/hpungsan/countrycache/internal/country"
	"github.com/hpungsan/countrycache/internal/db"
	"github.com/hpungsan/countrycache/internal/errors"
	"github.com/hpungsan/countrycache/internal/ops"
	"github.com/hpungsan/countrycache/internal/report"
)

// Handlers contains HTTP route handlers for the country API.
type Handlers struct {
	store     *db.Store
	refresher *ops.Refresher
	renderer  *report.Renderer
	cfg       *config.Config
	logger    *zap.Logger
	limiter   *rate.Limiter
	now       func() time.Time

	openapi []byte
	info    apiInfo
	docs    []byte
}

// apiInfo is the part of the embedded OpenAPI document served on GET /.
type apiInfo struct {
	Info struct {
		Title       string `yaml:"title"`
		Version     string `yaml:"version"`
		Description string `yaml:"description"`
	} `yaml:"info"`
	Paths map[string]map[string]struct {
		Summary string `yaml:"summary"`
	} `yaml:"paths"`
}

// NewHandlers wires the handlers and loads the embedded documents.
func NewHandlers(store *db.Store, refresher *ops.Refresher, renderer *report.Renderer, cfg *config.Config, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handlers{
		store:     store,
		refresher: refresher,
		renderer:  renderer,
		cfg:       cfg,
		logger:    logger,
		limiter:   newRefreshLimiter(cfg.RefreshPerMinute),
		now:       time.Now,
	}

	var err error
	if h.openapi, err = staticFS.ReadFile("static/openapi.yaml"); err != nil {
		logger.Fatal("embedded openapi.yaml missing", zap.Error(err))
	}
	if err := yaml.Unmarshal(h.openapi, &h.info); err != nil {
		logger.Fatal("embedded openapi.yaml is invalid", zap.Error(err))
	}
	md, err := staticFS.ReadFile("static/docs.md")
	if err != nil {
		logger.Fatal("embedded docs.md missing", zap.Error(err))
	}
	if h.docs, err = renderMarkdownPage(h.info.Info.Title, md); err != nil {
		logger.Fatal("failed to render docs", zap.Error(err))
	}
	return h
}

func (h *Handlers) timestamp() string {
	return h.now().UTC().Format(country.WireTimeLayout)
}

// HandleHome handles GET / with service info and the endpoint list.
func (h *Handlers) HandleHome(w http.ResponseWriter, _ *http.Request) {
	endpoints := make(map[string]string)
	for path, methods := range h.info.Paths {
		for method, op := range methods {
			endpoints[strings.ToUpper(method)+" "+path] = op.Summary
		}
	}

	renderJSON(w, http.StatusOK, map[string]any{
		"name":        h.info.Info.Title,
		"version":     h.info.Info.Version,
		"description": h.info.Info.Description,
		"documentation": map[string]string{
			"interactive":  "/docs",
			"openapi_spec": "/openapi.yaml",
		},
		"endpoints": endpoints,
		"status":    "operational",
		"timestamp": h.timestamp(),
	})
}

// HandleHealth handles GET /health. Any failing check makes the response 503.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{
		"database":        "healthy",
		"cache_directory": "healthy",
	}
	if err := h.store.Ping(r.Context()); err != nil {
		h.logger.Warn("health check: database", zap.Error(err))
		checks["database"] = "unhealthy"
	}
	if err := checkWritable(h.renderer.Dir()); err != nil {
		h.logger.Warn("health check: cache directory", zap.Error(err))
		checks["cache_directory"] = "unhealthy"
	}

	status, code := "healthy", http.StatusOK
	for _, v := range checks {
		if v != "healthy" {
			status, code = "unhealthy", http.StatusServiceUnavailable
		}
	}

	renderJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": h.timestamp(),
		"checks":    checks,
	})
}

func checkWritable(dir string) error {
	f, err := os.CreateTemp(dir, ".health-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

// HandleDocs handles GET /docs.
func (h *Handlers) HandleDocs(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(h.docs)
}

// HandleOpenAPI handles GET /openapi.yaml.
func (h *Handlers) HandleOpenAPI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(h.openapi)
}

// HandleRefresh handles POST /countries/refresh.
func (h *Handlers) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	out, err := h.refresher.Refresh(r.Context())
	if err != nil {
		h.renderError(w, err, "Failed to refresh countries data")
		return
	}
	renderJSON(w, http.StatusOK, out)
}

// HandleList handles GET /countries with optional region, currency and sort.
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	out, err := ops.List(r.Context(), h.store, ops.ListInput{
		Region:   q.Get("region"),
		Currency: q.Get("currency"),
		Sort:     q.Get("sort"),
	})
	if err != nil {
		h.renderError(w, err, "Failed to fetch countries")
		return
	}
	renderJSON(w, http.StatusOK, out.Items)
}

// HandleGet handles GET /countries/{name}.
func (h *Handlers) HandleGet(w http.ResponseWriter, r *http.Request) {
	rec, err := ops.Fetch(r.Context(), h.store, ops.FetchInput{Name: nameParam(r)})
	if err != nil {
		h.renderError(w, err, "Failed to fetch country")
		return
	}
	renderJSON(w, http.StatusOK, rec)
}

// HandleDelete handles DELETE /countries/{name}.
func (h *Handlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	out, err := ops.Delete(r.Context(), h.store, ops.DeleteInput{Name: nameParam(r)})
	if err != nil {
		h.renderError(w, err, "Failed to delete country")
		return
	}
	renderJSON(w, http.StatusOK, map[string]string{"message": out.Message})
}

// HandleStatus handles GET /status.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := ops.Status(r.Context(), h.store)
	if err != nil {
		h.renderError(w, err, "Failed to fetch status")
		return
	}
	renderJSON(w, http.StatusOK, status)
}

// HandleImage handles GET /countries/image.
func (h *Handlers) HandleImage(w http.ResponseWriter, r *http.Request) {
	path, err := ops.SummaryImage(h.renderer)
	if errors.Is(err, errors.ErrNotFound) {
		renderJSON(w, http.StatusNotFound, errorBody{
			Error:   "Image not found",
			Code:    string(errors.ErrNotFound),
			Message: "Summary image has not been generated yet. Please run POST /countries/refresh first.",
		})
		return
	}
	if err != nil {
		h.renderError(w, err, "Failed to serve image")
		return
	}

	f, err := os.Open(path)
	if err != nil {
		h.renderError(w, errors.NewInternal(err), "Failed to serve image")
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		h.renderError(w, errors.NewInternal(err), "Failed to serve image")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	http.ServeContent(w, r, "", info.ModTime(), f)
}

// nameParam returns the decoded {name} path segment.
func nameParam(r *http.Request) string {
	raw := chi.URLParam(r, "name")
	if name, err := url.PathUnescape(raw); err == nil {
		return name
	}
	return raw
}

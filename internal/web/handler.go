// Package web serves the recruiting site. Every page is rendered from a
// render context built for the page entity that names its template.
package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/recruitsite/recruit/internal/applications"
	"github.com/recruitsite/recruit/internal/cachemanager"
	"github.com/recruitsite/recruit/internal/content"
	"github.com/recruitsite/recruit/internal/entity"
	"github.com/recruitsite/recruit/internal/log"
	"github.com/recruitsite/recruit/internal/renderdata"
	"github.com/recruitsite/recruit/internal/tracing"
)

// DefaultPageTTL is used when HandlerConfig.PageTTL is zero.
const DefaultPageTTL = 5 * time.Minute

// PageFinder looks up a page by its template file name.
type PageFinder interface {
	PageByFileName(ctx context.Context, fileName string) (*content.Page, error)
}

// ApplicationStore stores submitted applications.
type ApplicationStore interface {
	Create(ctx context.Context, app *applications.Application) error
}

// HandlerConfig configures the site handler.
type HandlerConfig struct {
	// Registry must be initialized before requests are served.
	Registry     *renderdata.Registry
	Pages        PageFinder
	Applications ApplicationStore

	// Signal, when set, drops cached pages whenever a page is written.
	Signal *entity.Signal
	Tracer trace.Tracer

	PageTTL      time.Duration
	TemplatesDir string

	// Now defaults to time.Now.
	Now func() time.Time
}

// Handler provides the site's HTTP endpoints.
type Handler struct {
	registry     *renderdata.Registry
	factory      *renderdata.Factory
	applications ApplicationStore
	pageCache    cachemanager.CacheManager[string, *content.Page]
	pages        *cachemanager.ReadThroughCache[string, *content.Page, string]
	pageTTL      time.Duration
	templates    map[string]*template.Template
	tracer       trace.Tracer
	now          func() time.Time
}

// NewHandler creates the site handler and parses its templates.
func NewHandler(cfg HandlerConfig) (*Handler, error) {
	if cfg.Registry == nil || cfg.Pages == nil || cfg.Applications == nil {
		return nil, errors.New("web: registry, pages and applications are required")
	}
	templates, err := loadTemplates(cfg.TemplatesDir)
	if err != nil {
		return nil, err
	}

	pageTTL := cfg.PageTTL
	if pageTTL <= 0 {
		pageTTL = DefaultPageTTL
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	pageCache := cachemanager.NewInMemoryCacheManager[string, *content.Page]("pages", pageTTL, 2*pageTTL)
	h := &Handler{
		registry:     cfg.Registry,
		factory:      renderdata.NewFactory(cfg.Registry),
		applications: cfg.Applications,
		pageCache:    pageCache,
		pages:        cachemanager.NewReadThroughCache[string, *content.Page, string](pageCache, cfg.Pages.PageByFileName, false),
		pageTTL:      pageTTL,
		templates:    templates,
		tracer:       cfg.Tracer,
		now:          now,
	}
	if cfg.Signal != nil {
		cfg.Signal.Connect(entity.TypeOf[*content.Page](), h.onPageSaved)
	}
	return h, nil
}

// Routes returns an http.Handler with all site routes and middleware.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", h.Index)
	mux.HandleFunc("POST /{$}", h.Apply)
	mux.HandleFunc("GET /success", h.page("success"))
	mux.HandleFunc("GET /legal", h.page("legal"))
	mux.HandleFunc("GET /robots.txt", h.Robots)
	mux.HandleFunc("GET /healthz", h.Health)

	return withRequestID(withAccessLog(tracing.Middleware(h.tracer)(mux)))
}

// formState is the application form as shown back to the visitor.
type formState struct {
	Values map[string]string
	Errors applications.FieldErrors
}

// Index renders the main page with an empty application form.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "index", http.StatusOK, nil)
}

// Apply stores a submitted application and redirects to the success page.
// Invalid input re-renders the main page with the field errors.
func (h *Handler) Apply(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	app, err := applications.FromForm(r.PostForm, h.now())
	var fieldErrs applications.FieldErrors
	if errors.As(err, &fieldErrs) {
		form := &formState{
			Values: map[string]string{
				applications.FieldName:       r.PostForm.Get(applications.FieldName),
				applications.FieldSettlement: r.PostForm.Get(applications.FieldSettlement),
				applications.FieldPhone:      r.PostForm.Get(applications.FieldPhone),
			},
			Errors: fieldErrs,
		}
		h.render(w, r, "index", http.StatusBadRequest, form)
		return
	}
	if err != nil {
		h.serverError(w, r, "building application", err)
		return
	}

	if err := h.applications.Create(r.Context(), app); err != nil {
		h.serverError(w, r, "saving application", err)
		return
	}
	trace.SpanFromContext(r.Context()).SetAttributes(attribute.String(tracing.AttrApplicationID, app.GUID))
	log.Info(log.CatHTTP, "application received", "application", app.GUID, "request_id", RequestID(r.Context()))

	http.Redirect(w, r, "/success", http.StatusSeeOther)
}

func (h *Handler) page(fileName string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.render(w, r, fileName, http.StatusOK, nil)
	}
}

// Robots serves robots.txt from the site settings.
func (h *Handler) Robots(w http.ResponseWriter, r *http.Request) {
	var body string
	if store := h.registry.Store(); store != nil {
		if v, err := store.Get(r.Context(), "site_settings"); err == nil {
			if settings, ok := v.(*content.SiteSettings); ok {
				body = settings.RobotsTxt
			}
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(body))
}

// HealthResponse is the response body for the health check.
type HealthResponse struct {
	Status string   `json:"status"`
	Slots  []string `json:"slots,omitempty"`
}

// Health reports whether render data is ready to be served.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if !h.registry.Initialized() {
		h.writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "starting"})
		return
	}
	h.writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Slots: h.registry.Store().Names()})
}

// render looks up the page entity, builds its render context and executes
// the page template.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, fileName string, status int, form *formState) {
	ctx := r.Context()
	trace.SpanFromContext(ctx).SetAttributes(attribute.String(tracing.AttrHTTPRequestID, RequestID(ctx)))

	tmpl, ok := h.templates[fileName]
	if !ok {
		http.NotFound(w, r)
		return
	}

	page, err := h.pages.GetWithRefresh(ctx, fileName, fileName, h.pageTTL)
	if errors.Is(err, entity.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		h.serverError(w, r, "looking up page", err)
		return
	}

	rc, err := h.factory.Build(ctx, map[string]any{"page": page})
	if err != nil {
		h.serverError(w, r, "building render context", err)
		return
	}

	data := rc.Attrs()
	data["form"] = form

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		h.serverError(w, r, "rendering "+fileName, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// FlushPages drops every cached page so the next request reads it again.
func (h *Handler) FlushPages(ctx context.Context) error {
	if err := h.pageCache.Flush(ctx); err != nil {
		return fmt.Errorf("flushing page cache: %w", err)
	}
	return nil
}

func (h *Handler) onPageSaved(ctx context.Context, ev entity.SavedEvent) {
	// A page can be renamed, so drop every cached page.
	if err := h.FlushPages(ctx); err != nil {
		log.ErrorErr(log.CatCache, "page write", err)
		return
	}
	log.Debug(log.CatCache, "page cache flushed", "deleted", ev.Deleted)
}

func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, what string, err error) {
	log.ErrorErr(log.CatHTTP, fmt.Sprintf("%s failed", what), err,
		"path", r.URL.Path, "request_id", RequestID(r.Context()))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error(log.CatHTTP, "Failed to encode JSON response", "error", err)
	}
}

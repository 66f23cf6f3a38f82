// Package web exposes the metering core over HTTP for its collaborators:
// the generation pipeline, the billing webhook consumer, and support
// tooling. The core itself stays a library; this is a thin JSON surface.
package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/mixwave/quotagate/app"
	"github.com/mixwave/quotagate/ports"
)

// Handler provides the HTTP endpoints.
type Handler struct {
	ledger         *app.Ledger
	hasher         ports.Hasher
	adminTokenHash func() string
	metricsEnabled bool
	logger         zerolog.Logger
}

// Deps contains dependencies for the handler.
type Deps struct {
	Ledger *app.Ledger
	Hasher ports.Hasher
	// AdminTokenHash returns the current bcrypt hash of the admin
	// bearer token; read per request so config reloads take effect.
	AdminTokenHash func() string
	MetricsEnabled bool
	Logger         zerolog.Logger
}

// NewHandler creates a new HTTP handler.
func NewHandler(deps Deps) *Handler {
	return &Handler{
		ledger:         deps.Ledger,
		hasher:         deps.Hasher,
		adminTokenHash: deps.AdminTokenHash,
		metricsEnabled: deps.MetricsEnabled,
		logger:         deps.Logger,
	}
}

// Router builds the HTTP router.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(h.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", h.Health)
	if h.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/usage/summary", h.Summary)
		r.Post("/usage/consume", h.Consume)

		// Mutations on behalf of billing and support require the
		// admin token.
		r.Group(func(r chi.Router) {
			r.Use(h.requireAdmin)
			r.Post("/usage/refund", h.Refund)
			r.Post("/plans/set", h.SetPlan)
		})
	})

	return r
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		h.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

func (h *Handler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hash := h.adminTokenHash()
		if hash == "" {
			writeError(w, http.StatusForbidden, "admin_disabled", "admin endpoints are not configured")
			return
		}

		token := bearerToken(r)
		if token == "" || !h.hasher.Compare([]byte(hash), token) {
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid admin token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	auth := r.Header.Get("Authorization")
	if len(auth) > len(prefix) && auth[:len(prefix)] == prefix {
		return auth[len(prefix):]
	}
	return ""
}

package api

import (
	"encoding/json"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/agentoven/llmguardian/internal/api/handlers"
	"github.com/agentoven/llmguardian/internal/api/middleware"
	"github.com/agentoven/llmguardian/pkg/metrics"
)

// NewRouter builds the HTTP router for the guardian's public surface:
// the completion endpoint, health, and the analytics reads. It is a
// chi router with a fixed global middleware chain and a single
// cors.Handler; there is no tenant, auth, or tracing middleware, since
// this gateway has no multi-tenant or tracing surface.
func NewRouter(h *handlers.Handlers, mx *metrics.Metrics) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(middleware.Logger)
	r.Use(middleware.Metrics(mx))

	// CORS — configurable via LLMGUARDIAN_CORS_ORIGINS. Wildcard origins
	// force AllowCredentials off per the Fetch specification: a "*"
	// origin combined with credentialed requests is a credential-leak
	// vector.
	corsOrigins := parseCORSOrigins()
	isWildcard := len(corsOrigins) == 1 && corsOrigins[0] == "*"
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: !isWildcard,
		MaxAge:           300,
	}))

	r.Get("/health", h.Health)
	if mx != nil {
		r.Handle("/metrics", metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Post("/completions", h.Completions)

		r.Route("/analytics", func(r chi.Router) {
			r.Get("/cache", h.AnalyticsCache)
			r.Post("/cache/clear", h.AnalyticsCacheClear)
			r.Get("/pii", h.AnalyticsPII)
			r.Get("/models", h.AnalyticsModels)
			r.Get("/summary", h.AnalyticsSummary)
			r.Get("/health", h.AnalyticsHealth)
		})
	})

	r.NotFound(notFoundHandler)

	return r
}

func parseCORSOrigins() []string {
	originsEnv := os.Getenv("LLMGUARDIAN_CORS_ORIGINS")
	if originsEnv == "" {
		return []string{"*"}
	}

	var origins []string
	for _, o := range strings.Split(originsEnv, ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

func notFoundHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	json.NewEncoder(w).Encode(map[string]string{
		"error":     "not found",
		"errorType": "NOT_FOUND",
	})
}

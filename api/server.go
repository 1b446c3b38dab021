/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging through logrus
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for frontend
  5. Authenticate / RequireAdmin on the protected groups

ROUTE GROUPS:
  /api/health           Liveness (public)
  /api/cycles/*         Cycle calculator
  /api/records/*        Owner record lifecycle
  /api/summary          Owner totals
  /api/admin/*          Approvals, reports, audit (admin claim)
  /api/scenarios/*      Demo scenarios (admin claim)

SEE ALSO:
  - handlers.go: Handler implementations
  - auth.go: Identity middleware
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterOptions configures the cross-cutting parts of the router.
type RouterOptions struct {
	Verifier       *TokenVerifier
	AllowedOrigins []string
	CORSMaxAge     int
}

// ParseOrigins splits a comma-separated origin list.
func ParseOrigins(raw string) []string {
	origins := splitList(raw)
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: h.Log, NoColor: true}))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: !allowsAny(opts.AllowedOrigins),
		MaxAge:           opts.CORSMaxAge,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)

		r.Group(func(r chi.Router) {
			r.Use(Authenticate(opts.Verifier))

			// Cycle routes
			r.Route("/cycles", func(r chi.Router) {
				r.Get("/", h.CycleForDate)
				r.Get("/current", h.CurrentCycle)
			})

			// Owner record routes
			r.Route("/records", func(r chi.Router) {
				r.Get("/", h.ListRecords)
				r.Post("/", h.CreateRecord)
				r.Get("/{id}", h.GetRecord)
				r.Put("/{id}", h.EditRecord)
				r.Delete("/{id}", h.DeleteRecord)
				r.Post("/{id}/submit", h.SubmitRecord)
			})
			r.Get("/summary", h.Summary)

			// Admin routes
			r.Route("/admin", func(r chi.Router) {
				r.Use(RequireAdmin)
				r.Route("/records", func(r chi.Router) {
					r.Get("/", h.AdminListRecords)
					r.Delete("/{id}", h.AdminDeleteRecord)
					r.Post("/{id}/approve", h.ApproveRecord)
					r.Post("/{id}/reject", h.RejectRecord)
					r.Post("/{id}/complete", h.CompleteRecord)
					r.Get("/{id}/audit", h.RecordAudit)
				})
				r.Get("/summary", h.AdminSummary)
				r.Get("/weekly-summaries", h.AdminWeeklySummaries)
			})

			// Scenario routes
			r.Route("/scenarios", func(r chi.Router) {
				r.Use(RequireAdmin)
				r.Get("/", h.ListScenarios)
				r.Get("/current", h.GetCurrentScenario)
				r.Post("/load", h.LoadScenario)
				r.Post("/reset", h.ResetDatabase)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found", nil)
	})

	return r
}

// allowsAny reports a wildcard origin, which browsers refuse to combine
// with credentials.
func allowsAny(origins []string) bool {
	for _, o := range origins {
		if strings.TrimSpace(o) == "*" {
			return true
		}
	}
	return false
}

/**
 * @description
 * This file sets up the HTTP router for the billing-service. It defines the API
 * endpoints, associates them with their corresponding handlers, and applies any
 * necessary middleware for CORS, rate limiting and internal authentication.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 * - github.com/go-chi/cors: CORS middleware for browser dashboards.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/cloudlens/billing-service/internal/app"
)

// RouterOptions carries the middleware configuration for the API router.
type RouterOptions struct {
	InternalAPIKey    string
	RateLimiter       *app.RedisRateLimiter
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// BillingRoutes creates and returns the router for the billing service.
func BillingRoutes(h *BillingHandlers, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	// Add standard middleware for logging, panic recovery, and timeouts.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", "X-Internal-API-Key"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check endpoint, excluded from rate limiting.
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(RateLimitMiddleware(opts.RateLimiter, opts.RateLimitRequests, opts.RateLimitWindow))

		r.Get("/config", h.ConfigHandler)

		r.Get("/projects", h.ListProjectsHandler)
		r.Get("/projects/{projectID}", h.GetProjectHandler)
		r.Get("/projects/{projectID}/costs", h.ProjectCostsHandler)

		r.Get("/bills", h.ListBillsHandler)
		r.Get("/bills/{billID}", h.GetBillHandler)
		r.Get("/bills/{billID}/details", h.ListBillDetailsHandler)

		r.Route("/analysis", func(r chi.Router) {
			r.Get("/by-project", h.CostsByProjectHandler)
			r.Get("/by-service", h.CostsByServiceHandler)
			r.Get("/by-resource-type", h.CostsByResourceTypeHandler)
			r.Get("/resource-type/{resourceType}", h.ResourceTypeCostsHandler)
			r.Get("/daily-trend", h.DailyTrendHandler)
			r.Get("/monthly-trend", h.MonthlyTrendHandler)
			r.Get("/gpu", h.GPUCostsHandler)
		})

		r.Get("/summary", h.SummaryHandler)
		r.Get("/months", h.ListMonthsHandler)

		r.Get("/import/status", h.ImportStatusHandler)

		// Server-to-server surface.
		r.Group(func(r chi.Router) {
			r.Use(InternalAuthMiddleware(opts.InternalAPIKey))
			r.Post("/import", h.TriggerImportHandler)
		})
	})

	return r
}

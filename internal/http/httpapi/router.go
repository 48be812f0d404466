// Package httpapi assembles the chi router for the public API.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"server/internal/http/handlers"
	"server/internal/middleware"
)

// NewRouter wires the full HTTP surface. Operational endpoints and the bank
// settlement webhook sit outside the JWT gate; everything else under /api/v1
// requires a bearer token. The webhook authenticates with its own HMAC
// signature instead.
func NewRouter(app *handlers.App, lookup middleware.CountryLookup) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		middleware.Logger(app.Logger),
		chimw.Recoverer,
		middleware.CORS(app.Config.CORSOrigins),
		middleware.RateLimit(app.Config.RateLimitPerMin, time.Minute),
		middleware.I18N(app.Config.DefaultLocale, lookup),
	)

	r.Get("/healthz", app.Health)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/openapi.json", app.OpenAPIJSON)
	r.Get("/docs", app.OpenAPIDocs)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/webhooks/bank", app.BankWebhook)

		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthJWT(app.Config.JWTSecret, app.Config.JWTIssuer))

			r.Route("/pools", func(r chi.Router) {
				r.Post("/", app.PoolsCreate)
				r.Route("/{pool_id}", func(r chi.Router) {
					r.Get("/", app.PoolsGet)
					r.Post("/fund", app.PoolsFund)
					r.Post("/projects", app.PoolsRegisterProject)
					r.Post("/end", app.PoolsEnd)
					r.Post("/distribute", app.PoolsDistribute)
					r.Get("/allocations", app.PoolsAllocations)
					r.Get("/report", app.PoolsReport)
					r.Post("/donations", app.DonationsCreate)
					r.Get("/donations", app.DonationsList)
				})
			})

			r.Route("/proposals", func(r chi.Router) {
				r.Post("/", app.ProposalsCreate)
				r.Get("/", app.ProposalsList)
				r.Route("/{proposal_id}", func(r chi.Router) {
					r.Get("/", app.ProposalsGet)
					r.Post("/votes", app.ProposalsVote)

					// Decision and execution stay platform-only at the edge;
					// the services check the loaded user row again.
					r.Group(func(r chi.Router) {
						r.Use(middleware.RequireRoles("platform"))
						r.Post("/decision", app.ProposalsDecide)
						r.Post("/execute", app.ProposalsExecute)
					})
				})
			})

			r.Get("/stats", app.StatsSummary)
		})
	})

	return r
}

package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/kasir-api/internal/audit"
	"github.com/noah-isme/kasir-api/internal/obs"
)

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if s.tracing {
		r.Use(obs.TracingMiddleware)
	}
	if s.metrics != nil {
		r.Use(obs.HTTPObs{Metrics: s.metrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: s.logger, Skip: obs.SkipProbes}.Middleware)
	r.Use(s.headers.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(s.origins),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(s.bodyLimit.Middleware)

	if s.metrics != nil {
		r.Handle("/metrics", promhttp.Handler())
	}
	if s.pprof != nil {
		r.Mount("/debug/pprof", s.pprof)
	}
	r.Get("/health/live", s.health.Live)
	r.Get("/health/ready", s.health.Ready)

	r.Route("/api", func(api chi.Router) {
		api.Use(s.apiLimit.Middleware)
		api.Use(s.authMW.Authenticate)

		api.Get("/regions", s.regions.List)
		api.Get("/regions/{id}", s.regions.Get)

		api.Route("/products", func(p chi.Router) {
			p.Get("/", s.catalog.List)
			p.Get("/{id}", s.catalog.Get)
			p.Group(func(admin chi.Router) {
				admin.Use(s.authMW.RequireAdmin)
				admin.With(s.auditRec.Middleware(audit.HTTPConfig{Action: "product.create", ResourceType: "product"})).
					Post("/", s.catalog.Create)
				admin.With(s.auditRec.Middleware(audit.HTTPConfig{Action: "product.update", ResourceType: "product", ResourceIDParam: "id"})).
					Put("/{id}", s.catalog.Update)
				admin.With(s.auditRec.Middleware(audit.HTTPConfig{Action: "product.delete", ResourceType: "product", ResourceIDParam: "id"})).
					Delete("/{id}", s.catalog.Delete)
			})
		})

		api.Route("/transactions", func(t chi.Router) {
			t.With(s.idem.Middleware).Post("/", s.checkout.Create)
			t.With(s.authMW.RequireAdmin).Get("/", s.checkout.List)
		})

		api.Post("/cart/quote", s.cart.Quote)
		api.Get("/scanner/stream", s.scanner.Stream)
		api.Get("/detections", s.scanner.Recent)

		api.Route("/analytics", func(an chi.Router) {
			an.Use(s.authMW.RequireAdmin)
			an.Get("/overview", s.analytics.Overview)
			an.Get("/sales", s.analytics.Sales)
			an.Get("/top-products", s.analytics.TopProducts)
		})

		api.Route("/auth", func(a chi.Router) {
			a.Group(func(limited chi.Router) {
				limited.Use(s.authLimit.Middleware)
				limited.Post("/login", s.auth.Login)
				limited.With(s.auditRec.Middleware(audit.HTTPConfig{Action: "admin.signup", ResourceType: "admin"})).
					Post("/signup", s.auth.Signup)
			})
			a.With(s.authMW.RequireAdmin).Get("/me", s.auth.Me)
		})

		api.With(s.authMW.RequireAdmin).Get("/audit", s.audit.List)
	})
	return r
}

func allowedOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

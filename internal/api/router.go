package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fairshare/internal/auth"
	"fairshare/internal/middleware"
	"fairshare/internal/service"
)

// NewRouter assembles the full HTTP surface.
func NewRouter(bills *service.BillService, accounts *service.AuthService, jwtManager *auth.JWTManager) http.Handler {
	billHandler := NewBillHandler(bills)
	authHandler := NewAuthHandler(accounts)

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeMessage(w, http.StatusOK, "ok")
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.With(middleware.RequireAuth(jwtManager)).Get("/me", authHandler.Me)
		})

		r.Route("/bills", func(r chi.Router) {
			// Account-only views.
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth(jwtManager))
				r.Get("/", billHandler.List)
				r.Get("/stats", billHandler.Stats)
			})

			// Shareable-link operations: guests allowed, a valid token
			// attaches the creator identity.
			r.Group(func(r chi.Router) {
				r.Use(middleware.OptionalAuth(jwtManager))
				r.Post("/", billHandler.Create)
				r.Get("/{billID}", billHandler.Get)
				r.Put("/{billID}", billHandler.Update)
				r.Delete("/{billID}", billHandler.Delete)
				r.Post("/{billID}/payments", billHandler.MarkPayment)
			})
		})
	})

	return r
}

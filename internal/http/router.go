package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/MrJamesThe3rd/payflow/internal/http/auth"
	"github.com/MrJamesThe3rd/payflow/internal/http/invoice"
	"github.com/MrJamesThe3rd/payflow/internal/http/ledger"
	"github.com/MrJamesThe3rd/payflow/internal/http/webhook"
)

func New(
	invoicesV1 *invoice.Handler,
	transactionsV1 *ledger.Handler,
	webhooksV1 *webhook.Handler,
	jwtSecret string,
) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}))

	router.Route("/api/v1", func(r chi.Router) {
		// Gateway callbacks carry their own signature; no tenant token.
		r.Route("/webhooks", webhooksV1.Routes)

		r.Group(func(r chi.Router) {
			r.Use(auth.TenantAuth(jwtSecret))

			r.Route("/invoices", func(r chi.Router) {
				r.Use(middleware.AllowContentType("application/json"))
				invoicesV1.Routes(r)
			})

			r.Route("/transactions", func(r chi.Router) {
				r.Use(middleware.AllowContentType("application/json"))
				transactionsV1.Routes(r)
			})
		})
	})

	return router
}

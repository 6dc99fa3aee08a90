package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter registers the HTTP routes and middleware stack. The webhook
// endpoint stays outside the principal group; its trust comes from the
// delivery signature, not a session token.
func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/healthz", handler.healthz)
	r.Get("/readyz", handler.readyz)

	r.Post("/webhooks/identity", handler.identityWebhook)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(handler.principalMiddleware)

		r.Get("/me", handler.me)
		r.Post("/me/role", handler.selectRole)
		r.Get("/team", handler.teamRoster)

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", handler.listTransactions)
			r.Post("/", handler.createTransaction)
			r.Get("/{transaction_id}", handler.getTransaction)
			r.Post("/{transaction_id}/participants", handler.addParticipant)
			r.Post("/{transaction_id}/status", handler.updateStatus)
		})
	})

	return r
}

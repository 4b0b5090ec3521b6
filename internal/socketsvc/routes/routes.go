package routes

import (
	"github.com/avvvet/chipledger-services/internal/auth"
	"github.com/avvvet/chipledger-services/internal/socketsvc/handlers"
	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
)

func SetRoutes(r chi.Router, h *handlers.Handler, tokenAuth *jwtauth.JWTAuth) {
	r.Route("/v1", func(r chi.Router) {
		r.Get("/health", h.HealthHandler)

		// Secure routes; browsers pass the token as ?jwt= on the upgrade
		r.Group(func(r chi.Router) {
			r.Use(auth.Verifier(tokenAuth))
			r.Use(jwtauth.Authenticator)

			r.Get("/ws", h.HandleWebSocket)
		})
	})
}

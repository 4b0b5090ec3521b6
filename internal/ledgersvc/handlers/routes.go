package handlers

import (
	"github.com/avvvet/chipledger-services/internal/auth"
	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
)

func (h *Handler) SetRoutes(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Get("/health", h.HealthHandler)

		// Secure routes
		r.Group(func(r chi.Router) {
			r.Use(auth.Verifier(h.tokenAuth))
			r.Use(jwtauth.Authenticator)

			r.Get("/sessions", h.ListSessions)
			r.Post("/sessions", h.OpenSession)
			r.Get("/sessions/active", h.GetActiveSession)
			r.Post("/sessions/{sessionID}/archive", h.ArchiveSession)

			r.Get("/table", h.GetTable)
			r.Post("/table/seats/{seat}", h.SeatPlayer)
			r.Post("/table/endgame-chips", h.SaveEndgameChips)
			r.Get("/table/summary", h.Summary)

			r.Get("/players/{playerID}", h.GetPlayer)
			r.Delete("/players/{playerID}", h.RemovePlayer)
			r.Patch("/players/{playerID}", h.EditPlayer)
			r.Put("/players/{playerID}/endgame-chips", h.UpdateEndgameChips)
		})
	})
}

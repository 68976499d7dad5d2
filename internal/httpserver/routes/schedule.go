package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/dailymanna/manna/internal/httpserver/deps"
	"github.com/dailymanna/manna/internal/httpserver/handlers"
)

func init() { Register(registerSchedule) }

func registerSchedule(r chi.Router, d deps.Deps) {
	r.Route("/api/schedule", func(r chi.Router) {
		r.Get("/", handlers.ListSchedule(d))
		r.Post("/batch", handlers.BatchAssign(d))
		r.Post("/ensure", handlers.EnsureWeek(d))
		r.Get("/next", handlers.NextEntry(d))

		r.Route("/{date}", func(r chi.Router) {
			r.Get("/", handlers.GetEntry(d))
			r.Put("/", handlers.PutEntry(d))
			r.Delete("/", handlers.DeleteEntry(d))
			r.Post("/sent", handlers.MarkSent(d))
			r.Post("/send", handlers.SendNow(d))
		})
	})
}

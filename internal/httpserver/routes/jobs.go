package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/dailymanna/manna/internal/httpserver/deps"
	"github.com/dailymanna/manna/internal/httpserver/handlers"
)

func init() { Register(registerJobs) }

func registerJobs(r chi.Router, d deps.Deps) {
	r.Get("/api/jobs", handlers.ListJobs(d))
	r.Get("/api/sources", handlers.ListSources(d))
}

package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/dailymanna/manna/internal/httpserver/deps"
	"github.com/dailymanna/manna/internal/httpserver/handlers"
)

func init() { Register(registerReply) }

func registerReply(r chi.Router, d deps.Deps) {
	r.Post("/api/reply", handlers.ApplyReply(d))
	r.Get("/api/tokens", handlers.ListTokens(d))
}

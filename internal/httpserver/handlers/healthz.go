package handlers

import (
	"net/http"
	"time"

	"github.com/dailymanna/manna/internal/httpserver/deps"
)

// Healthz reports process liveness, uptime and build info.
func Healthz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"status":     "ok",
			"uptime":     time.Since(d.StartTime).Round(time.Second).String(),
			"version":    d.Version,
			"commit":     d.Commit,
			"build_date": d.BuildDate,
			"go_version": d.GoVersion,
			"source":     d.Source.SourceName(),
		})
	}
}

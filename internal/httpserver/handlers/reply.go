package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dailymanna/manna/internal/dates"
	"github.com/dailymanna/manna/internal/httpserver/deps"
	"github.com/dailymanna/manna/internal/logger"
	"github.com/dailymanna/manna/internal/reply"
	"github.com/dailymanna/manna/internal/schedule"
)

const maxReplyBody = 256 << 10

type replyRequest struct {
	Body string `json:"body"`
}

// ApplyReply parses an email reply body for token commands and applies them
// to the schedule. Accepts either a JSON {"body": ...} payload or a raw
// text body.
func ApplyReply(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(io.LimitReader(r.Body, maxReplyBody))
		if err != nil {
			respondError(w, http.StatusBadRequest, "failed to read request body")
			return
		}

		body := string(raw)
		if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
			var req replyRequest
			if err := json.Unmarshal(raw, &req); err != nil {
				respondError(w, http.StatusBadRequest, "invalid JSON body")
				return
			}
			body = req.Body
		}
		if strings.TrimSpace(body) == "" {
			respondError(w, http.StatusBadRequest, "empty reply body")
			return
		}

		instructions, err := reply.ParseBody(body)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		if len(instructions) == 0 {
			respondJSON(w, http.StatusOK, reply.ProcessResult{Outcomes: []reply.Outcome{}})
			return
		}

		var result reply.ProcessResult
		err = d.Store.Update(func(s *schedule.Schedule) (bool, error) {
			result = reply.ApplyInstructions(s, d.Source, instructions, d.Now())
			return result.Changed, nil
		})
		if err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}

		d.Logger.Info("reply instructions processed",
			logger.Int("instructions", len(instructions)),
			logger.Bool("changed", result.Changed))
		respondJSON(w, http.StatusOK, result)
	}
}

type tokenView struct {
	Code      string `json:"code"`
	Date      string `json:"date"`
	Selector  string `json:"selector"`
	SummaryID string `json:"summary_id"`
	IssuedAt  string `json:"issued_at"`
	ExpiresAt string `json:"expires_at"`
}

// ListTokens returns the live reply tokens.
func ListTokens(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var views []tokenView
		err := d.Store.View(func(s *schedule.Schedule) error {
			for _, token := range reply.ListActive(s, d.Now()) {
				views = append(views, tokenView{
					Code:      token.Code,
					Date:      dates.ISO(token.Date),
					Selector:  token.Selector,
					SummaryID: token.SummaryID,
					IssuedAt:  token.IssuedAt.Format(time.RFC3339),
					ExpiresAt: token.ExpiresAt.Format(time.RFC3339),
				})
			}
			return nil
		})
		if err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if views == nil {
			views = []tokenView{}
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{"tokens": views})
	}
}

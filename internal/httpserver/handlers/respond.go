package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/dailymanna/manna/internal/dates"
	"github.com/dailymanna/manna/internal/schedule"
)

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// entryView is the API shape of a schedule entry. Weekday is derived from
// the date, mirroring the persisted document.
type entryView struct {
	Date     string `json:"date"`
	Weekday  string `json:"weekday"`
	Selector string `json:"selector"`
	Status   string `json:"status"`
	SentAt   string `json:"sent_at,omitempty"`
	Notes    string `json:"notes,omitempty"`
	Override string `json:"override,omitempty"`
}

func viewOf(e *schedule.Entry) entryView {
	return entryView{
		Date:     dates.ISO(e.Date),
		Weekday:  dates.WeekdayLabel(e.Date),
		Selector: e.Selector,
		Status:   e.Status,
		SentAt:   e.SentAt,
		Notes:    e.Notes,
		Override: e.Override,
	}
}

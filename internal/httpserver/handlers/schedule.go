package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dailymanna/manna/internal/dates"
	"github.com/dailymanna/manna/internal/httpserver/deps"
	"github.com/dailymanna/manna/internal/logger"
	"github.com/dailymanna/manna/internal/schedule"
)

// ListSchedule returns entries in a date window. Defaults to the 14 days
// starting today; override with start/end ISO dates or window=<days>.
func ListSchedule(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		today := dates.Today(d.Now())
		start := today
		window := 14

		q := r.URL.Query()
		if raw := q.Get("start"); raw != "" {
			parsed, err := dates.ParseDescriptor(raw, today)
			if err != nil {
				respondError(w, http.StatusBadRequest, err.Error())
				return
			}
			start = parsed
		}
		if raw := q.Get("window"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 || n > 366 {
				respondError(w, http.StatusBadRequest, "window must be 1..366 days")
				return
			}
			window = n
		}
		end := start.AddDate(0, 0, window-1)
		if raw := q.Get("end"); raw != "" {
			parsed, err := dates.ParseDescriptor(raw, today)
			if err != nil {
				respondError(w, http.StatusBadRequest, err.Error())
				return
			}
			end = parsed
		}
		if end.Before(start) {
			respondError(w, http.StatusBadRequest, "end date precedes start date")
			return
		}

		var views []entryView
		err := d.Store.View(func(s *schedule.Schedule) error {
			for _, e := range s.EntriesInRange(start, end) {
				views = append(views, viewOf(e))
			}
			return nil
		})
		if err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if views == nil {
			views = []entryView{}
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"start":   dates.ISO(start),
			"end":     dates.ISO(end),
			"entries": views,
		})
	}
}

func dateParam(r *http.Request, d deps.Deps) (time.Time, error) {
	raw := chi.URLParam(r, "date")
	return dates.ParseDescriptor(raw, dates.Today(d.Now()))
}

// GetEntry returns the entry for one date.
func GetEntry(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date, err := dateParam(r, d)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}

		var view *entryView
		err = d.Store.View(func(s *schedule.Schedule) error {
			if e := s.GetEntry(date); e != nil {
				v := viewOf(e)
				view = &v
			}
			return nil
		})
		if err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if view == nil {
			respondError(w, http.StatusNotFound, fmt.Sprintf("no entry for %s", dates.ISO(date)))
			return
		}
		respondJSON(w, http.StatusOK, view)
	}
}

type putEntryRequest struct {
	Selector string  `json:"selector"`
	Status   string  `json:"status"`
	Notes    *string `json:"notes"`
	Override *string `json:"override"`
}

// PutEntry creates or replaces the entry for a date. Selector is validated
// against the active source; omitted fields keep their current values.
func PutEntry(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date, err := dateParam(r, d)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		var req putEntryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		var view entryView
		err = d.Store.Update(func(s *schedule.Schedule) (bool, error) {
			entry := s.GetEntry(date)
			if entry == nil {
				if req.Selector == "" {
					return false, errors.New("selector is required for a new entry")
				}
				entry = &schedule.Entry{Date: date, Status: schedule.StatusPending}
				s.UpsertEntry(entry)
				entry = s.GetEntry(date)
			}
			if req.Selector != "" {
				if !d.Source.ValidateSelector(req.Selector) {
					return false, fmt.Errorf("invalid selector %q for source %s", req.Selector, d.Source.SourceName())
				}
				entry.Selector = req.Selector
			}
			if req.Status != "" {
				entry.Status = req.Status
			}
			if req.Notes != nil {
				entry.Notes = *req.Notes
			}
			if req.Override != nil {
				entry.Override = *req.Override
			}
			view = viewOf(entry)
			return true, nil
		})
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		d.Logger.Info("schedule entry updated",
			logger.String("date", view.Date),
			logger.String("selector", view.Selector))
		respondJSON(w, http.StatusOK, view)
	}
}

// DeleteEntry removes the entry for a date.
func DeleteEntry(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date, err := dateParam(r, d)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}

		removed := false
		err = d.Store.Update(func(s *schedule.Schedule) (bool, error) {
			removed = s.RemoveEntry(date)
			return removed, nil
		})
		if err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if !removed {
			respondError(w, http.StatusNotFound, fmt.Sprintf("no entry for %s", dates.ISO(date)))
			return
		}
		respondJSON(w, http.StatusOK, map[string]string{"removed": dates.ISO(date)})
	}
}

type batchRequest struct {
	Start     string `json:"start"`
	Selectors string `json:"selectors"`
	Overwrite bool   `json:"overwrite"`
}

// BatchAssign parses a selector list or range expression and assigns the
// results to consecutive dates. Existing entries are preserved unless
// overwrite is set.
func BatchAssign(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req batchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		start, err := dates.ParseDescriptor(req.Start, dates.Today(d.Now()))
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		selectors, err := d.Source.ParseBatchSelectors(req.Selectors)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		if len(selectors) == 0 {
			respondError(w, http.StatusBadRequest, "no selectors in input")
			return
		}

		var assigned []entryView
		skipped := 0
		err = d.Store.Update(func(s *schedule.Schedule) (bool, error) {
			changed := false
			for i, selector := range selectors {
				date := start.AddDate(0, 0, i)
				if existing := s.GetEntry(date); existing != nil && !req.Overwrite {
					skipped++
					continue
				}
				entry := &schedule.Entry{Date: date, Selector: selector, Status: schedule.StatusPending}
				s.UpsertEntry(entry)
				assigned = append(assigned, viewOf(entry))
				changed = true
			}
			return changed, nil
		})
		if err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if assigned == nil {
			assigned = []entryView{}
		}
		d.Logger.Info("batch selectors assigned",
			logger.Int("assigned", len(assigned)),
			logger.Int("skipped", skipped))
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"assigned": assigned,
			"skipped":  skipped,
		})
	}
}

type ensureRequest struct {
	Start string `json:"start"`
	Email bool   `json:"email"`
}

// EnsureWeek extends coverage for the week containing the start descriptor
// (next Monday when omitted), reissuing reply tokens and optionally sending
// the admin summary.
func EnsureWeek(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ensureRequest
		if r.ContentLength > 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				respondError(w, http.StatusBadRequest, "invalid JSON body")
				return
			}
		}

		today := dates.Today(d.Now())
		start := dates.NextMonday(today)
		if req.Start != "" {
			parsed, err := dates.ParseDescriptor(req.Start, today)
			if err != nil {
				respondError(w, http.StatusBadRequest, err.Error())
				return
			}
			start = parsed
		}

		result, err := d.Refresher.RefreshWeek(r.Context(), start, req.Email)
		if err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondJSON(w, http.StatusOK, result)
	}
}

// NextEntry resolves the entry that would be sent for a date, creating it
// on demand. Mirrors the daily send's entry resolution without sending.
func NextEntry(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		today := dates.Today(d.Now())
		date := today
		if raw := r.URL.Query().Get("date"); raw != "" {
			parsed, err := dates.ParseDescriptor(raw, today)
			if err != nil {
				respondError(w, http.StatusBadRequest, err.Error())
				return
			}
			date = parsed
		}
		includeSent := r.URL.Query().Get("include_sent") == "true"

		planner := schedule.NewPlanner(d.Source, d.Logger)
		var view *entryView
		var skipReason string
		err := d.Store.Update(func(s *schedule.Schedule) (bool, error) {
			changed, err := planner.EnsureDateRange(r.Context(), s, date, date, "")
			if err != nil {
				return false, err
			}
			entry := s.GetEntry(date)
			if entry == nil {
				return false, fmt.Errorf("failed to create entry for %s", dates.ISO(date))
			}
			if (entry.Status == schedule.StatusSent || entry.Status == schedule.StatusSkipped) && !includeSent {
				if entry.Status == schedule.StatusSent {
					skipReason = "already_sent"
				} else {
					skipReason = entry.Status
				}
			}
			v := viewOf(entry)
			view = &v
			return changed, nil
		})
		if err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if skipReason != "" {
			respondJSON(w, http.StatusOK, map[string]interface{}{
				"skip":   true,
				"reason": skipReason,
				"entry":  view,
			})
			return
		}
		respondJSON(w, http.StatusOK, view)
	}
}

// MarkSent flips an entry to sent without delivering anything, for sends
// performed out of band.
func MarkSent(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date, err := dateParam(r, d)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}

		var view entryView
		err = d.Store.Update(func(s *schedule.Schedule) (bool, error) {
			entry, err := s.MarkSent(date, d.Now())
			if err != nil {
				return false, err
			}
			view = viewOf(entry)
			return true, nil
		})
		if err != nil {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		respondJSON(w, http.StatusOK, view)
	}
}

// SendNow triggers an immediate delivery for a date. ?force=true resends
// entries already marked sent or skipped.
func SendNow(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date, err := dateParam(r, d)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		force := r.URL.Query().Get("force") == "true"

		result, err := d.Sender.SendFor(r.Context(), date, force)
		if err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondJSON(w, http.StatusOK, result)
	}
}

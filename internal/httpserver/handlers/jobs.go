package handlers

import (
	"fmt"
	"net/http"

	"github.com/dailymanna/manna/internal/dispatch"
	"github.com/dailymanna/manna/internal/httpserver/deps"
	"github.com/dailymanna/manna/internal/sources"
)

type ruleView struct {
	Name     string `json:"name"`
	Job      string `json:"job"`
	Time     string `json:"time"`
	Weekdays string `json:"weekdays"`
}

// ListJobs returns the active dispatch rules and recent run history.
func ListJobs(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var rules []ruleView
		var history []dispatch.Run
		if d.Dispatcher != nil {
			for _, rule := range d.Dispatcher.Rules() {
				rules = append(rules, ruleView{
					Name:     rule.Name,
					Job:      rule.JobName(),
					Time:     clockLabel(rule),
					Weekdays: rule.WeekdaysLabel(),
				})
			}
			history = d.Dispatcher.History()
		}
		if rules == nil {
			rules = []ruleView{}
		}
		if history == nil {
			history = []dispatch.Run{}
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"rules": rules,
			"runs":  history,
		})
	}
}

func clockLabel(rule dispatch.Rule) string {
	return fmt.Sprintf("%02d:%02d", rule.Hour, rule.Minute)
}

type sourceView struct {
	Name    string                 `json:"name"`
	Active  bool                   `json:"active"`
	BatchUI *sources.BatchUIConfig `json:"batch_ui,omitempty"`
}

// ListSources returns the registered content sources; the active one
// carries its batch input hints for the dashboard.
func ListSources(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var views []sourceView
		for _, name := range sources.Available() {
			view := sourceView{Name: name, Active: name == d.Source.SourceName()}
			if view.Active {
				ui := d.Source.BatchUIConfig()
				view.BatchUI = &ui
			}
			views = append(views, view)
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{"sources": views})
	}
}

package reply

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dailymanna/manna/internal/dates"
	"github.com/dailymanna/manna/internal/schedule"
	"github.com/dailymanna/manna/internal/sources"
)

// Outcome statuses.
const (
	OutcomeApplied = "applied"
	OutcomeNoop    = "noop"
	OutcomeError   = "error"
)

// Outcome reports what happened to one instruction. Date is the entry date
// the token resolved to, when it resolved at all.
type Outcome struct {
	Token   string    `json:"token"`
	Verb    string    `json:"verb"`
	Status  string    `json:"status"`
	Message string    `json:"message"`
	Date    time.Time `json:"date,omitzero"`
}

// ProcessResult is the applier's full report. Changed tells callers whether
// the schedule document needs to be persisted.
type ProcessResult struct {
	Outcomes []Outcome `json:"outcomes"`
	Changed  bool      `json:"changed"`
}

// ApplyInstructions runs each instruction against the schedule. Instructions
// are independent: a failing one records an error outcome and leaves its
// token live for a corrected retry, while successes (keep included) consume
// their token so each can act at most once.
func ApplyInstructions(s *schedule.Schedule, source sources.ContentSource, instructions []Instruction, now time.Time) ProcessResult {
	if now.IsZero() {
		now = time.Now().In(dates.Taipei)
	}

	result := ProcessResult{Outcomes: make([]Outcome, 0, len(instructions))}
	for _, inst := range instructions {
		outcome := Outcome{Token: inst.Token, Verb: inst.Verb}

		token, err := GetToken(s, inst.Token, now)
		if err != nil {
			outcome.Status = OutcomeError
			outcome.Message = err.Error()
			result.Outcomes = append(result.Outcomes, outcome)
			continue
		}
		outcome.Date = token.Date

		entry := s.GetEntry(token.Date)
		if entry == nil {
			outcome.Status = OutcomeError
			outcome.Message = fmt.Sprintf("no schedule entry for %s", dates.ISO(token.Date))
			result.Outcomes = append(result.Outcomes, outcome)
			continue
		}

		changed, err := applyVerb(s, source, entry, inst)
		if err != nil {
			outcome.Status = OutcomeError
			outcome.Message = err.Error()
			if !errors.Is(err, ErrApply) {
				outcome.Message = applyErrorf("%v", err).Error()
			}
			result.Outcomes = append(result.Outcomes, outcome)
			continue
		}

		RemoveToken(s, inst.Token)
		result.Changed = true
		if changed {
			outcome.Status = OutcomeApplied
			outcome.Message = appliedMessage(entry, inst)
		} else {
			outcome.Status = OutcomeNoop
			outcome.Message = fmt.Sprintf("kept %s as scheduled", dates.ISO(entry.Date))
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}
	return result
}

// applyVerb mutates the entry per the instruction, reporting whether the
// entry itself changed (keep does not).
func applyVerb(s *schedule.Schedule, source sources.ContentSource, entry *schedule.Entry, inst Instruction) (bool, error) {
	switch inst.Verb {
	case "keep":
		return false, nil

	case "skip":
		entry.Status = schedule.StatusSkipped
		if inst.Reason != "" {
			entry.Notes = schedule.AppendNote(entry.Notes, inst.Reason)
		}
		return true, nil

	case "move":
		target := dates.Midnight(inst.Date)
		if dates.SameDate(target, entry.Date) {
			return true, nil
		}
		if occupant := s.GetEntry(target); occupant != nil {
			return false, applyErrorf("target date %s already has an entry", dates.ISO(target))
		}
		entry.Date = target
		s.SortEntries()
		return true, nil

	case "override":
		// Free text, stored as given. It may be a weekday label but the
		// calendar never interprets it.
		entry.Override = strings.TrimSpace(inst.Override)
		return true, nil

	case "selector":
		if !source.ValidateSelector(inst.Selector) {
			return false, applyErrorf("invalid selector %q for source %s", inst.Selector, source.SourceName())
		}
		entry.Selector = inst.Selector
		if entry.Status == "" {
			entry.Status = schedule.StatusPending
		}
		return true, nil

	case "note":
		entry.Notes = schedule.AppendNote(entry.Notes, inst.Note)
		return true, nil

	case "status":
		entry.Status = strings.TrimSpace(inst.Status)
		return true, nil
	}
	return false, applyErrorf("unsupported verb %q", inst.Verb)
}

func appliedMessage(entry *schedule.Entry, inst Instruction) string {
	day := dates.ISO(entry.Date)
	switch inst.Verb {
	case "skip":
		return fmt.Sprintf("marked %s skipped", day)
	case "move":
		return fmt.Sprintf("moved entry to %s", day)
	case "override":
		return fmt.Sprintf("set override %s on %s", entry.Override, day)
	case "selector":
		return fmt.Sprintf("set selector %s on %s", entry.Selector, day)
	case "note":
		return fmt.Sprintf("appended note on %s", day)
	case "status":
		return fmt.Sprintf("set status %s on %s", entry.Status, day)
	}
	return fmt.Sprintf("updated %s", day)
}

// Package schedule holds the persisted calendar model: one entry per date,
// each binding a date to a content selector, plus the reply-token store that
// rides along in the document's meta section.
package schedule

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dailymanna/manna/internal/dates"
)

// Version tags the on-disk document format.
const Version = 1

// Recognized entry statuses. Status is free text; these three are the
// values the system itself assigns and reacts to.
const (
	StatusPending = "pending"
	StatusSent    = "sent"
	StatusSkipped = "skipped"
)

// Entry is one calendar day's assignment.
type Entry struct {
	Date     time.Time // calendar date, unique within a Schedule
	Selector string    // source-specific content selector
	Status   string    // pending|sent|skipped|free text
	SentAt   string    // ISO timestamp, set when status becomes "sent"
	Notes    string    // free text, append-only via AppendNote
	Override string    // free-text descriptor, independent of status
}

// TokenRecord is the stored form of one reply token. All fields are ISO
// strings to keep the document shape stable.
type TokenRecord struct {
	Date      string `json:"date"`
	Selector  string `json:"selector"`
	SummaryID string `json:"summary_id"`
	IssuedAt  string `json:"issued_at"`
	ExpiresAt string `json:"expires_at"`
}

// TokenStore is the typed home of reply tokens inside Schedule.Meta.
type TokenStore struct {
	Tokens        map[string]TokenRecord `json:"tokens"`
	LastSummaryID string                 `json:"last_summary_id,omitempty"`
	LastIssuedAt  string                 `json:"last_issued_at,omitempty"`
	LastExpiresAt string                 `json:"last_expires_at,omitempty"`
	LastPurgeAt   string                 `json:"last_purge_at,omitempty"`
}

// Meta is the document's extensible side-channel. Reply tokens are its only
// occupant today, kept as a typed sub-structure rather than an open map.
type Meta struct {
	ReplyTokens *TokenStore `json:"reply_tokens,omitempty"`
}

// Schedule is the full calendar document: entries sorted ascending by date,
// at most one entry per date.
type Schedule struct {
	Entries  []*Entry
	Ver      int
	Timezone string
	Meta     Meta
}

// New returns an empty schedule in the operating timezone.
func New() *Schedule {
	return &Schedule{Ver: Version, Timezone: dates.TZName}
}

// TokenStore returns the schedule's reply-token store, creating it on first
// use.
func (s *Schedule) TokenStore() *TokenStore {
	if s.Meta.ReplyTokens == nil {
		s.Meta.ReplyTokens = &TokenStore{}
	}
	if s.Meta.ReplyTokens.Tokens == nil {
		s.Meta.ReplyTokens.Tokens = map[string]TokenRecord{}
	}
	return s.Meta.ReplyTokens
}

// GetEntry returns the entry for a date, or nil.
func (s *Schedule) GetEntry(date time.Time) *Entry {
	date = dates.Midnight(date)
	for _, e := range s.Entries {
		if dates.SameDate(e.Date, date) {
			return e
		}
	}
	return nil
}

// LatestBefore returns the last entry strictly before the date, or nil.
func (s *Schedule) LatestBefore(date time.Time) *Entry {
	var found *Entry
	for _, e := range s.Entries {
		if dates.ISO(e.Date) < dates.ISO(date) {
			found = e
		}
	}
	return found
}

// UpsertEntry inserts the entry or overwrites the fields of an existing
// entry for the same date. The entries slice stays sorted.
func (s *Schedule) UpsertEntry(entry *Entry) {
	entry.Date = dates.Midnight(entry.Date)
	if existing := s.GetEntry(entry.Date); existing != nil {
		existing.Selector = entry.Selector
		existing.Status = entry.Status
		existing.SentAt = entry.SentAt
		existing.Notes = entry.Notes
		existing.Override = entry.Override
		return
	}
	s.Entries = append(s.Entries, entry)
	s.sortEntries()
}

// RemoveEntry deletes the entry for a date, reporting whether one existed.
func (s *Schedule) RemoveEntry(date time.Time) bool {
	date = dates.Midnight(date)
	for i, e := range s.Entries {
		if dates.SameDate(e.Date, date) {
			s.Entries = append(s.Entries[:i], s.Entries[i+1:]...)
			return true
		}
	}
	return false
}

// EntriesInRange returns the entries for every date in [start, end] that
// has one, in date order.
func (s *Schedule) EntriesInRange(start, end time.Time) []*Entry {
	var out []*Entry
	for d := dates.Midnight(start); !d.After(dates.Midnight(end)); d = d.AddDate(0, 0, 1) {
		if e := s.GetEntry(d); e != nil {
			out = append(out, e)
		}
	}
	return out
}

// MarkSent flips an entry to sent and stamps the send time.
func (s *Schedule) MarkSent(date time.Time, at time.Time) (*Entry, error) {
	entry := s.GetEntry(date)
	if entry == nil {
		return nil, fmt.Errorf("no schedule entry for %s", dates.ISO(date))
	}
	if at.IsZero() {
		at = time.Now().In(dates.Taipei)
	}
	entry.Status = StatusSent
	entry.SentAt = at.In(dates.Taipei).Format(time.RFC3339)
	return entry, nil
}

// NextForDate returns the entry for a date unless it was already sent
// (and includeSent is false).
func (s *Schedule) NextForDate(date time.Time, includeSent bool) *Entry {
	entry := s.GetEntry(date)
	if entry == nil {
		return nil
	}
	if entry.Status == StatusSent && !includeSent {
		return nil
	}
	return entry
}

func (s *Schedule) sortEntries() {
	sort.SliceStable(s.Entries, func(i, j int) bool {
		return s.Entries[i].Date.Before(s.Entries[j].Date)
	})
}

// SortEntries restores date order after a mutation that changed an entry's
// date in place (the move verb).
func (s *Schedule) SortEntries() { s.sortEntries() }

// AppendNote merges an addition into a notes field. Verbatim duplicates are
// dropped so replayed instructions do not stack identical notes.
func AppendNote(current, addition string) string {
	addition = strings.TrimSpace(addition)
	if addition == "" {
		return current
	}
	existing := strings.TrimSpace(current)
	if existing == "" {
		return addition
	}
	if strings.Contains(existing, addition) {
		return existing
	}
	return existing + " | " + addition
}

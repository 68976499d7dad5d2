package schedule

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/dailymanna/manna/internal/dates"
)

// entryJSON is the wire shape of one entry. The weekday field is derived
// from the date at serialization time and never read back as authoritative.
type entryJSON struct {
	Date     string  `json:"date"`
	Weekday  string  `json:"weekday"`
	Selector string  `json:"selector"`
	Status   string  `json:"status"`
	SentAt   *string `json:"sent_at"`
	Notes    string  `json:"notes"`
	Override *string `json:"override"`
}

type documentJSON struct {
	Version  int         `json:"version"`
	Timezone string      `json:"timezone"`
	Meta     Meta        `json:"meta"`
	Entries  []entryJSON `json:"entries"`
}

// MarshalDocument renders the schedule as the persisted JSON document:
// UTF-8, two-space indent, trailing newline, entries sorted ascending.
func MarshalDocument(s *Schedule) ([]byte, error) {
	s.sortEntries()
	doc := documentJSON{
		Version:  s.Ver,
		Timezone: s.Timezone,
		Meta:     s.Meta,
		Entries:  make([]entryJSON, 0, len(s.Entries)),
	}
	if doc.Version == 0 {
		doc.Version = Version
	}
	if doc.Timezone == "" {
		doc.Timezone = dates.TZName
	}
	for _, e := range s.Entries {
		doc.Entries = append(doc.Entries, entryJSON{
			Date:     dates.ISO(e.Date),
			Weekday:  dates.WeekdayLabel(e.Date),
			Selector: e.Selector,
			Status:   e.Status,
			SentAt:   nullable(e.SentAt),
			Notes:    e.Notes,
			Override: nullable(e.Override),
		})
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("failed to marshal schedule: %w", err)
	}
	// json.Encoder already terminates the document with a newline.
	return buf.Bytes(), nil
}

// UnmarshalDocument parses a schedule document. Only the date field of each
// entry is trusted; the denormalized weekday is ignored. The timezone is
// always normalized to the operating timezone on load.
func UnmarshalDocument(data []byte) (*Schedule, error) {
	var doc documentJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse schedule document: %w", err)
	}

	s := New()
	if doc.Version != 0 {
		s.Ver = doc.Version
	}
	s.Meta = doc.Meta
	for _, raw := range doc.Entries {
		date, err := dates.ParseISO(raw.Date)
		if err != nil {
			return nil, fmt.Errorf("schedule entry has invalid date: %w", err)
		}
		if raw.Selector == "" {
			return nil, fmt.Errorf("schedule entry %s missing selector", raw.Date)
		}
		status := raw.Status
		if status == "" {
			status = StatusPending
		}
		s.Entries = append(s.Entries, &Entry{
			Date:     date,
			Selector: raw.Selector,
			Status:   status,
			SentAt:   deref(raw.SentAt),
			Notes:    raw.Notes,
			Override: deref(raw.Override),
		})
	}
	s.sortEntries()
	return s, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

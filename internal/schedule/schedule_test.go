package schedule

import (
	"testing"
	"time"

	"github.com/dailymanna/manna/internal/dates"
)

func day(iso string) time.Time {
	d, err := dates.ParseISO(iso)
	if err != nil {
		panic(err)
	}
	return d
}

func TestUpsertEntryKeepsOrder(t *testing.T) {
	s := New()
	s.UpsertEntry(&Entry{Date: day("2026-08-26"), Selector: "1-1-3", Status: StatusPending})
	s.UpsertEntry(&Entry{Date: day("2026-08-24"), Selector: "1-1-1", Status: StatusPending})
	s.UpsertEntry(&Entry{Date: day("2026-08-25"), Selector: "1-1-2", Status: StatusPending})

	want := []string{"2026-08-24", "2026-08-25", "2026-08-26"}
	if len(s.Entries) != len(want) {
		t.Fatalf("got %d entries, want %d", len(s.Entries), len(want))
	}
	for i, e := range s.Entries {
		if dates.ISO(e.Date) != want[i] {
			t.Errorf("entry %d = %s, want %s", i, dates.ISO(e.Date), want[i])
		}
	}
}

func TestUpsertEntryOverwritesSameDate(t *testing.T) {
	s := New()
	s.UpsertEntry(&Entry{Date: day("2026-08-24"), Selector: "1-1-1", Status: StatusPending})
	s.UpsertEntry(&Entry{Date: day("2026-08-24"), Selector: "2-3-4", Status: StatusSkipped, Notes: "swap"})

	if len(s.Entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(s.Entries))
	}
	e := s.Entries[0]
	if e.Selector != "2-3-4" || e.Status != StatusSkipped || e.Notes != "swap" {
		t.Errorf("overwrite missed fields: %+v", e)
	}
}

func TestRemoveEntry(t *testing.T) {
	s := New()
	s.UpsertEntry(&Entry{Date: day("2026-08-24"), Selector: "1-1-1", Status: StatusPending})

	if !s.RemoveEntry(day("2026-08-24")) {
		t.Error("RemoveEntry of existing date = false")
	}
	if s.RemoveEntry(day("2026-08-24")) {
		t.Error("RemoveEntry of absent date = true")
	}
	if len(s.Entries) != 0 {
		t.Errorf("entries left after removal: %d", len(s.Entries))
	}
}

func TestLatestBefore(t *testing.T) {
	s := New()
	s.UpsertEntry(&Entry{Date: day("2026-08-20"), Selector: "1-1-1", Status: StatusPending})
	s.UpsertEntry(&Entry{Date: day("2026-08-22"), Selector: "1-1-3", Status: StatusPending})

	if got := s.LatestBefore(day("2026-08-24")); got == nil || got.Selector != "1-1-3" {
		t.Errorf("LatestBefore(2026-08-24) = %+v, want selector 1-1-3", got)
	}
	if got := s.LatestBefore(day("2026-08-22")); got == nil || got.Selector != "1-1-1" {
		t.Errorf("LatestBefore(2026-08-22) = %+v, want selector 1-1-1", got)
	}
	if got := s.LatestBefore(day("2026-08-20")); got != nil {
		t.Errorf("LatestBefore(2026-08-20) = %+v, want nil", got)
	}
}

func TestEntriesInRange(t *testing.T) {
	s := New()
	s.UpsertEntry(&Entry{Date: day("2026-08-24"), Selector: "1-1-1", Status: StatusPending})
	s.UpsertEntry(&Entry{Date: day("2026-08-26"), Selector: "1-1-3", Status: StatusPending})
	s.UpsertEntry(&Entry{Date: day("2026-09-01"), Selector: "1-2-2", Status: StatusPending})

	got := s.EntriesInRange(day("2026-08-24"), day("2026-08-30"))
	if len(got) != 2 {
		t.Fatalf("got %d entries, want 2", len(got))
	}
	if dates.ISO(got[0].Date) != "2026-08-24" || dates.ISO(got[1].Date) != "2026-08-26" {
		t.Errorf("range = [%s, %s]", dates.ISO(got[0].Date), dates.ISO(got[1].Date))
	}
}

func TestMarkSent(t *testing.T) {
	s := New()
	s.UpsertEntry(&Entry{Date: day("2026-08-24"), Selector: "1-1-1", Status: StatusPending})

	at := time.Date(2026, 8, 24, 6, 0, 0, 0, dates.Taipei)
	entry, err := s.MarkSent(day("2026-08-24"), at)
	if err != nil {
		t.Fatalf("MarkSent failed: %v", err)
	}
	if entry.Status != StatusSent {
		t.Errorf("Status = %s, want %s", entry.Status, StatusSent)
	}
	if entry.SentAt != at.Format(time.RFC3339) {
		t.Errorf("SentAt = %s", entry.SentAt)
	}

	if _, err := s.MarkSent(day("2026-08-25"), at); err == nil {
		t.Error("MarkSent on absent date expected error")
	}
}

func TestNextForDate(t *testing.T) {
	s := New()
	s.UpsertEntry(&Entry{Date: day("2026-08-24"), Selector: "1-1-1", Status: StatusSent})

	if got := s.NextForDate(day("2026-08-24"), false); got != nil {
		t.Errorf("sent entry returned without includeSent: %+v", got)
	}
	if got := s.NextForDate(day("2026-08-24"), true); got == nil {
		t.Error("sent entry not returned with includeSent")
	}
	if got := s.NextForDate(day("2026-08-25"), true); got != nil {
		t.Errorf("absent date returned an entry: %+v", got)
	}
}

func TestAppendNote(t *testing.T) {
	tests := []struct {
		name     string
		current  string
		addition string
		want     string
	}{
		{name: "empty current", current: "", addition: "first", want: "first"},
		{name: "appends", current: "first", addition: "second", want: "first | second"},
		{name: "duplicate dropped", current: "first | second", addition: "second", want: "first | second"},
		{name: "blank addition ignored", current: "first", addition: "   ", want: "first"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AppendNote(tt.current, tt.addition); got != tt.want {
				t.Errorf("AppendNote(%q, %q) = %q, want %q", tt.current, tt.addition, got, tt.want)
			}
		})
	}
}

package schedule

import (
	"strings"
	"testing"

	"github.com/dailymanna/manna/internal/dates"
)

func TestMarshalDocument(t *testing.T) {
	s := New()
	s.UpsertEntry(&Entry{Date: day("2026-08-25"), Selector: "1-1-2", Status: StatusSent, SentAt: "2026-08-25T06:00:00+08:00"})
	s.UpsertEntry(&Entry{Date: day("2026-08-24"), Selector: "1-1-1", Status: StatusPending})

	data, err := MarshalDocument(s)
	if err != nil {
		t.Fatalf("MarshalDocument failed: %v", err)
	}
	out := string(data)

	if !strings.HasSuffix(out, "\n") {
		t.Error("document missing trailing newline")
	}
	for _, want := range []string{
		`"version": 1`,
		`"timezone": "Asia/Taipei"`,
		`"weekday": "週一"`,
		`"weekday": "週二"`,
		`"sent_at": null`,
		`"sent_at": "2026-08-25T06:00:00+08:00"`,
		`"override": null`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("document missing %s:\n%s", want, out)
		}
	}

	// Entries serialize in date order regardless of insertion order.
	if strings.Index(out, "2026-08-24") > strings.Index(out, "2026-08-25") {
		t.Error("entries not sorted by date")
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	s := New()
	s.UpsertEntry(&Entry{
		Date:     day("2026-08-24"),
		Selector: "1-1-1",
		Status:   StatusSent,
		SentAt:   "2026-08-24T06:00:00+08:00",
		Notes:    "first | second",
		Override: "特別聚會",
	})
	store := s.TokenStore()
	store.Tokens["ABC123"] = TokenRecord{
		Date:      "2026-08-24",
		Selector:  "1-1-1",
		SummaryID: "2026-08-24_2026-08-30",
		IssuedAt:  "2026-08-23T21:00:00+08:00",
		ExpiresAt: "2026-09-02T21:00:00+08:00",
	}

	data, err := MarshalDocument(s)
	if err != nil {
		t.Fatalf("MarshalDocument failed: %v", err)
	}
	got, err := UnmarshalDocument(data)
	if err != nil {
		t.Fatalf("UnmarshalDocument failed: %v", err)
	}

	if len(got.Entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(got.Entries))
	}
	e := got.Entries[0]
	if dates.ISO(e.Date) != "2026-08-24" || e.Selector != "1-1-1" || e.Status != StatusSent {
		t.Errorf("entry fields lost: %+v", e)
	}
	if e.SentAt != "2026-08-24T06:00:00+08:00" || e.Notes != "first | second" || e.Override != "特別聚會" {
		t.Errorf("optional fields lost: %+v", e)
	}
	if rec, ok := got.TokenStore().Tokens["ABC123"]; !ok || rec.Date != "2026-08-24" {
		t.Errorf("token store lost: %+v", got.Meta.ReplyTokens)
	}
}

func TestUnmarshalDocument(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
		check   func(t *testing.T, s *Schedule)
	}{
		{
			name:  "weekday field ignored",
			input: `{"version":1,"entries":[{"date":"2026-08-24","weekday":"主日","selector":"1-1-1","status":"pending"}]}`,
			check: func(t *testing.T, s *Schedule) {
				// 2026-08-24 is a Monday; the stored weekday lies.
				if got := dates.WeekdayLabel(s.Entries[0].Date); got != "週一" {
					t.Errorf("weekday = %s, want 週一", got)
				}
			},
		},
		{
			name:  "empty status becomes pending",
			input: `{"entries":[{"date":"2026-08-24","selector":"1-1-1","status":""}]}`,
			check: func(t *testing.T, s *Schedule) {
				if s.Entries[0].Status != StatusPending {
					t.Errorf("status = %s, want pending", s.Entries[0].Status)
				}
			},
		},
		{
			name:  "null optionals",
			input: `{"entries":[{"date":"2026-08-24","selector":"1-1-1","status":"pending","sent_at":null,"override":null}]}`,
			check: func(t *testing.T, s *Schedule) {
				if s.Entries[0].SentAt != "" || s.Entries[0].Override != "" {
					t.Errorf("null optionals not empty: %+v", s.Entries[0])
				}
			},
		},
		{
			name:    "missing selector",
			input:   `{"entries":[{"date":"2026-08-24","status":"pending"}]}`,
			wantErr: true,
		},
		{
			name:    "bad date",
			input:   `{"entries":[{"date":"24/08/2026","selector":"1-1-1"}]}`,
			wantErr: true,
		},
		{
			name:    "not json",
			input:   `nope`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := UnmarshalDocument([]byte(tt.input))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("UnmarshalDocument failed: %v", err)
			}
			if tt.check != nil {
				tt.check(t, s)
			}
		})
	}
}

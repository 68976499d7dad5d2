package dates

import (
	"testing"
	"time"
)

// 2026-08-24 is a Monday.
func monday() time.Time {
	return time.Date(2026, 8, 24, 0, 0, 0, 0, Taipei)
}

func TestMondayIndex(t *testing.T) {
	for i := 0; i < 7; i++ {
		d := monday().AddDate(0, 0, i)
		if got := MondayIndex(d); got != i {
			t.Errorf("MondayIndex(%s) = %d, want %d", ISO(d), got, i)
		}
	}
}

func TestWeekdayLabel(t *testing.T) {
	tests := []struct {
		offset int
		want   string
	}{
		{offset: 0, want: "週一"},
		{offset: 3, want: "週四"},
		{offset: 5, want: "週六"},
		{offset: 6, want: "主日"},
	}
	for _, tt := range tests {
		d := monday().AddDate(0, 0, tt.offset)
		if got := WeekdayLabel(d); got != tt.want {
			t.Errorf("WeekdayLabel(%s) = %s, want %s", ISO(d), got, tt.want)
		}
	}
}

func TestParseISO(t *testing.T) {
	d, err := ParseISO("2026-08-24")
	if err != nil {
		t.Fatalf("ParseISO failed: %v", err)
	}
	if !SameDate(d, monday()) {
		t.Errorf("ParseISO(2026-08-24) = %s", ISO(d))
	}
	if d.Location() != Taipei {
		t.Errorf("parsed date not in operating timezone: %v", d.Location())
	}

	for _, bad := range []string{"2026-8-24", "24-08-2026", "2026/08/24", "not a date", ""} {
		if _, err := ParseISO(bad); err == nil {
			t.Errorf("ParseISO(%q) expected error", bad)
		}
	}
}

func TestParseDescriptor(t *testing.T) {
	today := monday()

	tests := []struct {
		name       string
		descriptor string
		want       string
		wantErr    bool
	}{
		{name: "iso date", descriptor: "2026-09-01", want: "2026-09-01"},
		{name: "today english", descriptor: "today", want: "2026-08-24"},
		{name: "today chinese", descriptor: "今天", want: "2026-08-24"},
		{name: "tomorrow", descriptor: "tomorrow", want: "2026-08-25"},
		{name: "tomorrow chinese", descriptor: "明天", want: "2026-08-25"},
		{name: "same weekday resolves to today", descriptor: "mon", want: "2026-08-24"},
		{name: "later weekday this week", descriptor: "wed", want: "2026-08-26"},
		{name: "traditional weekday", descriptor: "週五", want: "2026-08-28"},
		{name: "simplified weekday", descriptor: "周五", want: "2026-08-28"},
		{name: "sunday label", descriptor: "主日", want: "2026-08-30"},
		{name: "digit weekday", descriptor: "7", want: "2026-08-30"},
		{name: "zero is sunday", descriptor: "0", want: "2026-08-30"},
		{name: "case insensitive", descriptor: "Friday", want: "2026-08-28"},
		{name: "unknown", descriptor: "someday", wantErr: true},
		{name: "empty", descriptor: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDescriptor(tt.descriptor, today)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseDescriptor(%q) expected error, got %s", tt.descriptor, ISO(got))
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDescriptor(%q) failed: %v", tt.descriptor, err)
			}
			if ISO(got) != tt.want {
				t.Errorf("ParseDescriptor(%q) = %s, want %s", tt.descriptor, ISO(got), tt.want)
			}
		})
	}
}

func TestNextMonday(t *testing.T) {
	tests := []struct {
		name  string
		today string
		want  string
	}{
		{name: "from monday skips a week", today: "2026-08-24", want: "2026-08-31"},
		{name: "from wednesday", today: "2026-08-26", want: "2026-08-31"},
		{name: "from sunday", today: "2026-08-30", want: "2026-08-31"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			today, err := ParseISO(tt.today)
			if err != nil {
				t.Fatalf("ParseISO failed: %v", err)
			}
			if got := ISO(NextMonday(today)); got != tt.want {
				t.Errorf("NextMonday(%s) = %s, want %s", tt.today, got, tt.want)
			}
		})
	}
}

func TestWeekdayIndex(t *testing.T) {
	tests := []struct {
		alias string
		want  int
		ok    bool
	}{
		{alias: "mon", want: 0, ok: true},
		{alias: " SUNDAY ", want: 6, ok: true},
		{alias: "週三", want: 2, ok: true},
		{alias: "nope", ok: false},
	}
	for _, tt := range tests {
		got, ok := WeekdayIndex(tt.alias)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("WeekdayIndex(%q) = (%d, %v), want (%d, %v)", tt.alias, got, ok, tt.want, tt.ok)
		}
	}
}

func TestMidnight(t *testing.T) {
	d := time.Date(2026, 8, 24, 17, 45, 12, 999, Taipei)
	got := Midnight(d)
	if got.Hour() != 0 || got.Minute() != 0 || got.Second() != 0 || got.Nanosecond() != 0 {
		t.Errorf("Midnight left time-of-day: %v", got)
	}
	if !SameDate(got, d) {
		t.Errorf("Midnight changed the date: %v", got)
	}
}

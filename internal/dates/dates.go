package dates

import (
	"fmt"
	"strings"
	"time"
)

// TZName is the fixed operating timezone. Every date descriptor, weekday
// resolution and "today" computation is anchored here, never to system-local
// time, so that a deployment in any region produces identical schedules.
const TZName = "Asia/Taipei"

// Taipei is loaded once at startup; time.LoadLocation only fails when the
// tzdata is missing, which is a broken deployment.
var Taipei = mustLoadLocation(TZName)

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(fmt.Sprintf("cannot load timezone %s: %v", name, err))
	}
	return loc
}

// WeekdayTW maps a weekday index (0=Monday .. 6=Sunday) to its Traditional
// Chinese label as used in schedule files and email summaries.
var WeekdayTW = [7]string{"週一", "週二", "週三", "週四", "週五", "週六", "主日"}

// weekdayAliases resolves user-facing weekday spellings to the Monday-based
// index 0..6. Both Simplified (周) and Traditional (週) forms are accepted,
// along with English names, common abbreviations, and digits (ISO style,
// where both "7" and "0" mean Sunday).
var weekdayAliases = map[string]int{
	"mon": 0, "monday": 0, "1": 0, "週一": 0, "周一": 0,
	"tue": 1, "tues": 1, "tuesday": 1, "2": 1, "週二": 1, "周二": 1,
	"wed": 2, "weds": 2, "wednesday": 2, "3": 2, "週三": 2, "周三": 2,
	"thu": 3, "thurs": 3, "thursday": 3, "4": 3, "週四": 3, "周四": 3,
	"fri": 4, "friday": 4, "5": 4, "週五": 4, "周五": 4,
	"sat": 5, "saturday": 5, "6": 5, "週六": 5, "周六": 5,
	"sun": 6, "sunday": 6, "7": 6, "0": 6, "週日": 6, "周日": 6, "主日": 6,
}

// MondayIndex converts Go's Sunday-based time.Weekday to the Monday-based
// index used throughout the schedule (0=Monday .. 6=Sunday).
func MondayIndex(d time.Time) int {
	return (int(d.Weekday()) + 6) % 7
}

// WeekdayLabel returns the Chinese weekday label for a date.
func WeekdayLabel(d time.Time) string {
	return WeekdayTW[MondayIndex(d)]
}

// Today returns the current calendar date in the operating timezone,
// truncated to midnight.
func Today(now time.Time) time.Time {
	if now.IsZero() {
		now = time.Now()
	}
	return Midnight(now.In(Taipei))
}

// Midnight strips the time-of-day component, keeping the location.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// ParseISO parses a strict YYYY-MM-DD date in the operating timezone.
func ParseISO(s string) (time.Time, error) {
	d, err := time.ParseInLocation("2006-01-02", s, Taipei)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid ISO date %q", s)
	}
	return d, nil
}

// ISO formats a date as YYYY-MM-DD.
func ISO(d time.Time) string {
	return d.Format("2006-01-02")
}

// SameDate reports whether two instants fall on the same calendar day.
func SameDate(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

// ParseDescriptor resolves a user-supplied date descriptor against today.
// Accepted forms: ISO dates, "today"/"tomorrow" (English or Chinese), and
// weekday names or labels, which resolve to the next occurrence on or after
// today (same-day when today already is that weekday).
func ParseDescriptor(descriptor string, today time.Time) (time.Time, error) {
	descriptor = strings.TrimSpace(descriptor)
	if descriptor == "" {
		return time.Time{}, fmt.Errorf("date descriptor cannot be empty")
	}
	if today.IsZero() {
		today = Today(time.Time{})
	}

	if d, err := ParseISO(descriptor); err == nil {
		return d, nil
	}

	lowered := strings.ToLower(descriptor)
	switch lowered {
	case "today", "現今", "今天":
		return today, nil
	case "tomorrow", "明天":
		return today.AddDate(0, 0, 1), nil
	}

	target, ok := weekdayAliases[lowered]
	if !ok {
		return time.Time{}, fmt.Errorf("unrecognized date descriptor: %s", descriptor)
	}
	delta := (target - MondayIndex(today) + 7) % 7
	return today.AddDate(0, 0, delta), nil
}

// WeekdayIndex resolves a weekday alias to the Monday-based index 0..6.
func WeekdayIndex(alias string) (int, bool) {
	idx, ok := weekdayAliases[strings.ToLower(strings.TrimSpace(alias))]
	return idx, ok
}

// NextMonday returns the Monday strictly after today.
func NextMonday(today time.Time) time.Time {
	delta := (7 - MondayIndex(today)) % 7
	if delta == 0 {
		delta = 7
	}
	return today.AddDate(0, 0, delta)
}

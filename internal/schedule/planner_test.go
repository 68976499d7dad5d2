package schedule

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"github.com/dailymanna/manna/internal/dates"
	"github.com/dailymanna/manna/internal/logger"
	"github.com/dailymanna/manna/internal/sources"
	"github.com/dailymanna/manna/internal/sources/triplet"
)

// tripletSource is a minimal triplet-selector source for planner tests.
type tripletSource struct{}

func (tripletSource) SourceName() string { return "test" }

func (tripletSource) SelectorType() string { return "volume-lesson-day" }

func (tripletSource) AdvanceSelector(selector string) (string, error) {
	sel, err := triplet.Parse(selector)
	if err != nil {
		return "", err
	}
	return sel.Advance().String(), nil
}

func (tripletSource) PreviousSelector(selector string) (string, error) {
	sel, err := triplet.Parse(selector)
	if err != nil {
		return "", err
	}
	return sel.Previous().String(), nil
}

func (tripletSource) ValidateSelector(selector string) bool {
	_, err := triplet.Parse(selector)
	return err == nil
}

func (tripletSource) DefaultSelector() string { return "1-1-1" }

func (tripletSource) GetDailyContent(ctx context.Context, selector string) (*sources.ContentBlock, error) {
	return nil, errors.New("not implemented")
}

func (tripletSource) ContentURL(selector string) (string, error) { return "", nil }

func (tripletSource) EmailSubject(selector, title string) string { return title }

func (tripletSource) ParseBatchSelectors(input string) ([]string, error) {
	return nil, errors.New("not implemented")
}

func (tripletSource) SupportsRangeSyntax() bool { return true }

func (tripletSource) BatchUIConfig() sources.BatchUIConfig { return sources.BatchUIConfig{} }

// validatingSource adds lesson existence checks on top of tripletSource.
type validatingSource struct {
	tripletSource
	maxLesson map[int]int // per volume; missing volume means fetch failure
	checks    int
}

func (v *validatingSource) ValidateLessonExists(ctx context.Context, volume, lesson int) (bool, error) {
	v.checks++
	max, ok := v.maxLesson[volume]
	if !ok {
		return false, fmt.Errorf("volume %d index unavailable", volume)
	}
	return lesson <= max, nil
}

// opaqueSource mints selectors the lesson validator cannot decompose.
type opaqueSource struct {
	tripletSource
}

func (opaqueSource) ValidateSelector(selector string) bool { return selector != "" }

func (opaqueSource) ValidateLessonExists(ctx context.Context, volume, lesson int) (bool, error) {
	return true, nil
}

func testLogger() logger.Logger { return logger.New("error", false) }

// warnRecorder counts warnings while delegating everything else.
type warnRecorder struct {
	logger.Logger
	warns []string
}

func (l *warnRecorder) Warn(msg string, fields ...zap.Field) {
	l.warns = append(l.warns, msg)
}

func selectorsByDate(s *Schedule) map[string]string {
	out := map[string]string{}
	for _, e := range s.Entries {
		out[dates.ISO(e.Date)] = e.Selector
	}
	return out
}

func TestEnsureDateRangeFromEmpty(t *testing.T) {
	s := New()
	p := NewPlanner(tripletSource{}, testLogger())

	added, err := p.EnsureDateRange(context.Background(), s, day("2026-08-24"), day("2026-08-30"), "")
	if err != nil {
		t.Fatalf("EnsureDateRange failed: %v", err)
	}
	if !added {
		t.Error("added = false, want true")
	}

	got := selectorsByDate(s)
	want := map[string]string{
		"2026-08-24": "1-1-1",
		"2026-08-25": "1-1-2",
		"2026-08-26": "1-1-3",
		"2026-08-27": "1-1-4",
		"2026-08-28": "1-1-5",
		"2026-08-29": "1-1-6",
		"2026-08-30": "1-1-7",
	}
	for date, sel := range want {
		if got[date] != sel {
			t.Errorf("%s = %s, want %s", date, got[date], sel)
		}
	}
	for _, e := range s.Entries {
		if e.Status != StatusPending {
			t.Errorf("%s status = %s, want pending", dates.ISO(e.Date), e.Status)
		}
	}
}

func TestEnsureDateRangeContinuesFromLastEntry(t *testing.T) {
	s := New()
	s.UpsertEntry(&Entry{Date: day("2026-08-22"), Selector: "1-2-6", Status: StatusSent})
	p := NewPlanner(tripletSource{}, testLogger())

	if _, err := p.EnsureDateRange(context.Background(), s, day("2026-08-24"), day("2026-08-26"), ""); err != nil {
		t.Fatalf("EnsureDateRange failed: %v", err)
	}

	got := selectorsByDate(s)
	// The cursor resumes from the entry before the range, not from day one.
	want := map[string]string{
		"2026-08-24": "1-2-7",
		"2026-08-25": "1-3-1",
		"2026-08-26": "1-3-2",
	}
	for date, sel := range want {
		if got[date] != sel {
			t.Errorf("%s = %s, want %s", date, got[date], sel)
		}
	}
}

func TestEnsureDateRangeNeverClobbersExisting(t *testing.T) {
	s := New()
	s.UpsertEntry(&Entry{Date: day("2026-08-25"), Selector: "3-4-2", Status: StatusSent, SentAt: "2026-08-25T06:00:00+08:00"})
	p := NewPlanner(tripletSource{}, testLogger())

	if _, err := p.EnsureDateRange(context.Background(), s, day("2026-08-24"), day("2026-08-27"), "3-4-1"); err != nil {
		t.Fatalf("EnsureDateRange failed: %v", err)
	}

	existing := s.GetEntry(day("2026-08-25"))
	if existing.Status != StatusSent || existing.Selector != "3-4-2" {
		t.Errorf("existing entry was clobbered: %+v", existing)
	}

	got := selectorsByDate(s)
	// Gap insertion resumes from the existing entry's selector.
	want := map[string]string{
		"2026-08-24": "3-4-1",
		"2026-08-26": "3-4-3",
		"2026-08-27": "3-4-4",
	}
	for date, sel := range want {
		if got[date] != sel {
			t.Errorf("%s = %s, want %s", date, got[date], sel)
		}
	}
}

func TestEnsureDateRangeExplicitSeedWins(t *testing.T) {
	s := New()
	s.UpsertEntry(&Entry{Date: day("2026-08-01"), Selector: "1-1-1", Status: StatusSent})
	p := NewPlanner(tripletSource{}, testLogger())

	// LatestBefore moves the cursor, so the seed only applies when the
	// range starts with no prior entries at all.
	s2 := New()
	if _, err := p.EnsureDateRange(context.Background(), s2, day("2026-08-24"), day("2026-08-25"), "5-1-3"); err != nil {
		t.Fatalf("EnsureDateRange failed: %v", err)
	}
	got := selectorsByDate(s2)
	if got["2026-08-24"] != "5-1-3" || got["2026-08-25"] != "5-1-4" {
		t.Errorf("seeded range = %v", got)
	}

	if _, err := p.EnsureDateRange(context.Background(), s, day("2026-08-24"), day("2026-08-24"), "invalid"); err == nil {
		t.Error("invalid seed selector expected error")
	}
}

func TestEnsureDateRangeNoChanges(t *testing.T) {
	s := New()
	s.UpsertEntry(&Entry{Date: day("2026-08-24"), Selector: "1-1-1", Status: StatusPending})
	p := NewPlanner(tripletSource{}, testLogger())

	added, err := p.EnsureDateRange(context.Background(), s, day("2026-08-24"), day("2026-08-24"), "")
	if err != nil {
		t.Fatalf("EnsureDateRange failed: %v", err)
	}
	if added {
		t.Error("added = true for fully covered range")
	}
}

func TestEnsureDateRangeBadRange(t *testing.T) {
	p := NewPlanner(tripletSource{}, testLogger())
	if _, err := p.EnsureDateRange(context.Background(), New(), day("2026-08-25"), day("2026-08-24"), ""); err == nil {
		t.Error("reversed range expected error")
	}
}

func TestEnsureDateRangeRollsOverMissingLesson(t *testing.T) {
	s := New()
	// Volume 1 ends at lesson 2; crossing into lesson 3 must fast-forward
	// to volume 2 lesson 1.
	src := &validatingSource{maxLesson: map[int]int{1: 2, 2: 18}}
	p := NewPlanner(src, testLogger())

	s.UpsertEntry(&Entry{Date: day("2026-08-23"), Selector: "1-2-6", Status: StatusSent})
	if _, err := p.EnsureDateRange(context.Background(), s, day("2026-08-24"), day("2026-08-26"), ""); err != nil {
		t.Fatalf("EnsureDateRange failed: %v", err)
	}

	got := selectorsByDate(s)
	want := map[string]string{
		"2026-08-24": "1-2-7",
		"2026-08-25": "2-1-1",
		"2026-08-26": "2-1-2",
	}
	for date, sel := range want {
		if got[date] != sel {
			t.Errorf("%s = %s, want %s", date, got[date], sel)
		}
	}
}

func TestEnsureDateRangeUnparseableSelectorSkipsValidation(t *testing.T) {
	log := &warnRecorder{Logger: testLogger()}
	p := NewPlanner(opaqueSource{}, log)

	s := New()
	if _, err := p.EnsureDateRange(context.Background(), s, day("2026-08-24"), day("2026-08-24"), "not-a-triplet"); err != nil {
		t.Fatalf("EnsureDateRange failed: %v", err)
	}

	if e := s.GetEntry(day("2026-08-24")); e == nil || e.Selector != "not-a-triplet" {
		t.Fatalf("entry = %+v, want selector not-a-triplet", e)
	}
	if len(log.warns) == 0 {
		t.Error("unparseable selector produced no warning")
	}
}

func TestEnsureDateRangeFetchFailureIsNotFatal(t *testing.T) {
	s := New()
	// No volume data at all: every existence check fails. The selector is
	// used unvalidated and generation continues.
	src := &validatingSource{maxLesson: map[int]int{}}
	p := NewPlanner(src, testLogger())

	s.UpsertEntry(&Entry{Date: day("2026-08-23"), Selector: "1-1-7", Status: StatusSent})
	if _, err := p.EnsureDateRange(context.Background(), s, day("2026-08-24"), day("2026-08-25"), ""); err != nil {
		t.Fatalf("EnsureDateRange failed: %v", err)
	}

	got := selectorsByDate(s)
	if got["2026-08-24"] != "1-2-1" || got["2026-08-25"] != "1-2-2" {
		t.Errorf("unvalidated continuation = %v", got)
	}
	if src.checks != 1 {
		t.Errorf("existence checks = %d, want 1 (only on day-1 boundaries)", src.checks)
	}
}

package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/dailymanna/manna/internal/dates"
	"github.com/dailymanna/manna/internal/logger"
	"github.com/dailymanna/manna/internal/sources"
	"github.com/dailymanna/manna/internal/sources/triplet"
)

// Planner fills calendar gaps for one content source. It never touches
// entries that already exist; it only inserts around them, continuing the
// selector sequence from whatever is already on the calendar.
type Planner struct {
	source sources.ContentSource
	log    logger.Logger
}

func NewPlanner(source sources.ContentSource, log logger.Logger) *Planner {
	return &Planner{source: source, log: log}
}

// EnsureDateRange guarantees an entry for every date in [start, end],
// inserting missing ones by extending the selector sequence. Returns true
// when at least one entry was inserted, so callers can skip a save when
// nothing changed.
//
// The walk keeps a cursor selector: existing entries move the cursor to
// their own selector (so insertion resumes from the real sequence even when
// another writer pre-filled earlier gaps), and gaps advance it by one step.
// Upstream flakiness during boundary validation is never fatal; only a bad
// date range is.
func (p *Planner) EnsureDateRange(ctx context.Context, s *Schedule, start, end time.Time, seedSelector string) (bool, error) {
	start = dates.Midnight(start)
	end = dates.Midnight(end)
	if end.Before(start) {
		return false, fmt.Errorf("end date %s must not be before start date %s", dates.ISO(end), dates.ISO(start))
	}

	seed, err := p.determineSeed(s, seedSelector)
	if err != nil {
		return false, err
	}

	var cursor string
	if prior := s.LatestBefore(start); prior != nil {
		cursor = prior.Selector
	}

	added := false
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if existing := s.GetEntry(d); existing != nil {
			cursor = existing.Selector
			continue
		}
		if cursor == "" {
			cursor = seed
		} else {
			next, err := p.source.AdvanceSelector(cursor)
			if err != nil {
				return added, fmt.Errorf("cannot advance selector %q: %w", cursor, err)
			}
			cursor = next
		}
		cursor = p.validateBoundary(ctx, cursor)

		s.UpsertEntry(&Entry{Date: d, Selector: cursor, Status: StatusPending})
		added = true
	}
	return added, nil
}

// determineSeed picks the selector for the first inserted date when no
// cursor is available: an explicit seed wins, then continuation from the
// schedule's last entry, then the source default.
func (p *Planner) determineSeed(s *Schedule, explicit string) (string, error) {
	if explicit != "" {
		if !p.source.ValidateSelector(explicit) {
			return "", fmt.Errorf("invalid seed selector: %s", explicit)
		}
		return explicit, nil
	}
	if n := len(s.Entries); n > 0 {
		next, err := p.source.AdvanceSelector(s.Entries[n-1].Selector)
		if err != nil {
			return "", fmt.Errorf("cannot advance last entry selector %q: %w", s.Entries[n-1].Selector, err)
		}
		return next, nil
	}
	return p.source.DefaultSelector(), nil
}

// validateBoundary guards lesson rollovers for triplet sources. When an
// advanced selector enters a new lesson (day 1) and the source can check
// lesson existence, a missing lesson fast-forwards to the next volume's
// first lesson, repeating until a valid lesson is found. A fetch failure
// leaves the selector unvalidated: calendar generation must never block on
// a flaky site.
func (p *Planner) validateBoundary(ctx context.Context, selector string) string {
	validator, ok := p.source.(sources.LessonValidator)
	if !ok {
		return selector
	}
	sel, err := triplet.Parse(selector)
	if err != nil {
		p.log.Warn("selector not triplet-shaped, skipping lesson validation",
			logger.String("selector", selector),
			logger.Error(err))
		return selector
	}
	if sel.Day != 1 {
		// Mid-lesson; nothing to validate.
		return selector
	}

	for {
		exists, err := validator.ValidateLessonExists(ctx, sel.Volume, sel.Lesson)
		if err != nil {
			p.log.Warn("lesson existence check failed, using selector unvalidated",
				logger.String("selector", sel.String()),
				logger.Error(err))
			return sel.String()
		}
		if exists {
			return sel.String()
		}
		p.log.Info("lesson does not exist, rolling over to next volume",
			logger.Int("volume", sel.Volume),
			logger.Int("lesson", sel.Lesson))
		sel = triplet.Selector{Volume: sel.Volume + 1, Lesson: 1, Day: 1}
	}
}

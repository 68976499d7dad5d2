package scheduler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dailymanna/manna/internal/dates"
	"github.com/dailymanna/manna/internal/logger"
	"github.com/dailymanna/manna/internal/mailer"
	"github.com/dailymanna/manna/internal/reply"
	"github.com/dailymanna/manna/internal/schedule"
	"github.com/dailymanna/manna/internal/sources"
	filestore "github.com/dailymanna/manna/internal/store/file"
)

// CoverageRefresher keeps the upcoming week scheduled. Each run extends the
// calendar through the next Monday-to-Sunday window, issues fresh reply
// tokens for those entries, archives the rendered summary, and emails it to
// the admin address.
type CoverageRefresher struct {
	store       *filestore.Store
	source      sources.ContentSource
	planner     *schedule.Planner
	mail        mailer.Mailer
	from        string
	adminTo     []string
	subjectTag  string
	archivePath string
	logger      logger.Logger
}

func NewCoverageRefresher(
	store *filestore.Store,
	source sources.ContentSource,
	mail mailer.Mailer,
	from string,
	adminTo []string,
	subjectTag string,
	archivePath string,
	log logger.Logger,
) *CoverageRefresher {
	if subjectTag == "" {
		subjectTag = "[DailyManna]"
	}
	return &CoverageRefresher{
		store:       store,
		source:      source,
		planner:     schedule.NewPlanner(source, log),
		mail:        mail,
		from:        from,
		adminTo:     adminTo,
		subjectTag:  subjectTag,
		archivePath: archivePath,
		logger:      log,
	}
}

// RefreshResult reports one coverage run.
type RefreshResult struct {
	Start      string `json:"start"`
	End        string `json:"end"`
	Changed    bool   `json:"changed"`
	TokenCount int    `json:"token_count"`
	Emailed    bool   `json:"emailed"`
}

// Run refreshes coverage for the week starting next Monday. Satisfies the
// dispatcher's job signature.
func (cr *CoverageRefresher) Run(ctx context.Context) error {
	start := dates.NextMonday(dates.Today(time.Time{}))
	_, err := cr.RefreshWeek(ctx, start, true)
	return err
}

// RefreshWeek ensures entries for [start, start+6], reissues tokens, and
// optionally emails the summary. Start is normalized back to its Monday.
func (cr *CoverageRefresher) RefreshWeek(ctx context.Context, start time.Time, email bool) (*RefreshResult, error) {
	start = dates.Midnight(start).AddDate(0, 0, -dates.MondayIndex(start))
	end := start.AddDate(0, 0, 6)
	summaryID := fmt.Sprintf("%s_%s", dates.ISO(start), dates.ISO(end))

	result := &RefreshResult{Start: dates.ISO(start), End: dates.ISO(end)}

	var entries []*schedule.Entry
	tokenMap := map[string]string{}
	err := cr.store.Update(func(s *schedule.Schedule) (bool, error) {
		added, err := cr.planner.EnsureDateRange(ctx, s, start, end, "")
		if err != nil {
			return false, err
		}
		result.Changed = added

		changed := added
		if removed := reply.PurgeExpired(s, time.Now().In(dates.Taipei)); removed > 0 {
			changed = true
		}

		week := s.EntriesInRange(start, end)
		if len(week) > 0 {
			tokens, err := reply.IssueTokens(s, week, summaryID, time.Time{}, reply.DefaultTokenTTL)
			if err != nil {
				return false, err
			}
			for _, token := range tokens {
				tokenMap[dates.ISO(token.Date)] = token.Code
			}
			result.TokenCount = len(tokens)
			changed = true
		}

		// Snapshot under the lock; rendering happens after the save.
		for _, e := range week {
			copied := *e
			entries = append(entries, &copied)
		}
		return changed, nil
	})
	if err != nil {
		return nil, err
	}

	textBody := mailer.RenderPlainSummary(entries, cr.store.Path(), tokenMap)
	htmlBody := mailer.RenderHTMLSummary(entries, cr.store.Path(), tokenMap)

	if cr.archivePath != "" {
		if err := archiveSummary(cr.archivePath, htmlBody); err != nil {
			cr.logger.Warn("failed to archive weekly summary", logger.Error(err))
		}
	}

	if email {
		subject := fmt.Sprintf("%s Weekly Schedule %s – %s", cr.subjectTag, result.Start, result.End)
		msg := mailer.Message{
			From:     cr.from,
			To:       cr.adminTo,
			Subject:  subject,
			TextBody: textBody,
			HTMLBody: htmlBody,
		}
		if len(cr.adminTo) == 0 {
			cr.logger.Warn("no admin summary recipients configured, skipping email")
		} else if err := cr.mail.Send(ctx, msg); err != nil {
			cr.logger.Error("failed to send weekly summary", logger.Error(err))
		} else {
			result.Emailed = true
		}
	}

	cr.logger.Info("weekly coverage refreshed",
		logger.String("start", result.Start),
		logger.String("end", result.End),
		logger.Bool("changed", result.Changed),
		logger.Int("tokens", result.TokenCount),
		logger.Bool("emailed", result.Emailed))
	return result, nil
}

func archiveSummary(path, html string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(html), 0o644)
}

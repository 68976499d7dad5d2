package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/dailymanna/manna/internal/dates"
	"github.com/dailymanna/manna/internal/logger"
	"github.com/dailymanna/manna/internal/mailer"
	"github.com/dailymanna/manna/internal/schedule"
	"github.com/dailymanna/manna/internal/sources"
	"github.com/dailymanna/manna/internal/sources/wix"
	filestore "github.com/dailymanna/manna/internal/store/file"
)

// DailySender delivers one day's content: it makes sure today has a
// schedule entry, fetches the content behind the entry's selector, emails
// it, and marks the entry sent. Invoked by the dispatcher at the configured
// clock time and by the dashboard's manual send.
type DailySender struct {
	store      *filestore.Store
	source     sources.ContentSource
	planner    *schedule.Planner
	mail       mailer.Mailer
	from       string
	recipients []string
	logger     logger.Logger
}

func NewDailySender(
	store *filestore.Store,
	source sources.ContentSource,
	mail mailer.Mailer,
	from string,
	recipients []string,
	log logger.Logger,
) *DailySender {
	return &DailySender{
		store:      store,
		source:     source,
		planner:    schedule.NewPlanner(source, log),
		mail:       mail,
		from:       from,
		recipients: recipients,
		logger:     log,
	}
}

// SendResult reports what one send attempt did.
type SendResult struct {
	Date     string `json:"date"`
	Weekday  string `json:"weekday"`
	Selector string `json:"selector"`
	Status   string `json:"status"`
	Skipped  bool   `json:"skipped"`
	Reason   string `json:"reason,omitempty"`
	Resend   bool   `json:"resend,omitempty"`
}

// Run sends for today. Satisfies the dispatcher's job signature.
func (ds *DailySender) Run(ctx context.Context) error {
	_, err := ds.SendFor(ctx, dates.Today(time.Time{}), false)
	return err
}

// SendFor delivers the entry for a specific date. With force set, entries
// already sent or skipped go out again (a resend); otherwise they are left
// alone.
func (ds *DailySender) SendFor(ctx context.Context, date time.Time, force bool) (*SendResult, error) {
	date = dates.Midnight(date)

	var entry schedule.Entry
	err := ds.store.Update(func(s *schedule.Schedule) (bool, error) {
		changed, err := ds.planner.EnsureDateRange(ctx, s, date, date, "")
		if err != nil {
			return false, err
		}
		found := s.GetEntry(date)
		if found == nil {
			return false, fmt.Errorf("failed to create schedule entry for %s", dates.ISO(date))
		}
		entry = *found
		return changed, nil
	})
	if err != nil {
		return nil, err
	}

	result := &SendResult{
		Date:     dates.ISO(date),
		Weekday:  dates.WeekdayLabel(date),
		Selector: ds.resolveSelector(entry),
		Status:   entry.Status,
	}

	if !force && (entry.Status == schedule.StatusSent || entry.Status == schedule.StatusSkipped) {
		result.Skipped = true
		if entry.Status == schedule.StatusSent {
			result.Reason = "already_sent"
		} else {
			result.Reason = entry.Status
		}
		ds.logger.Info("daily send skipped",
			logger.Date("date", date),
			logger.String("reason", result.Reason))
		return result, nil
	}
	result.Resend = entry.Status == schedule.StatusSent

	content, err := ds.source.GetDailyContent(ctx, result.Selector)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch content for %s: %w", result.Selector, err)
	}

	url, err := ds.source.ContentURL(result.Selector)
	if err != nil {
		url = ""
	}

	msg := mailer.Message{
		From:     ds.from,
		To:       ds.recipients,
		Subject:  ds.source.EmailSubject(result.Selector, content.Title),
		TextBody: renderDailyText(content, url, date),
		HTMLBody: content.HTMLContent,
	}
	if err := ds.mail.Send(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to send daily email: %w", err)
	}

	err = ds.store.Update(func(s *schedule.Schedule) (bool, error) {
		if _, err := s.MarkSent(date, time.Now()); err != nil {
			return false, err
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	result.Status = schedule.StatusSent
	ds.logger.Info("daily content sent",
		logger.Date("date", date),
		logger.String("selector", result.Selector),
		logger.String("subject", msg.Subject))
	return result, nil
}

// resolveSelector adapts the stored selector to the active source. Weekday
// sources derive the selector from the entry's date, so a calendar built
// under a triplet source still sends correctly after switching to one.
func (ds *DailySender) resolveSelector(entry schedule.Entry) string {
	if ds.source.SelectorType() != "chinese-weekday" {
		return entry.Selector
	}
	sel, err := wix.FormatSelector(dates.MondayIndex(entry.Date))
	if err != nil {
		return entry.Selector
	}
	return sel
}

func renderDailyText(content *sources.ContentBlock, url string, date time.Time) string {
	header := content.Title
	if url != "" {
		header += "\n連結: " + url
	}
	header += "\n日期: " + dates.ISO(date)
	return header + "\n\n" + content.PlainTextContent
}

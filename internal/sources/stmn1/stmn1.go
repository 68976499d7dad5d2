// Package stmn1 is the content source for the mana.stmn1.com Bible Journey
// site. Selectors are volume-lesson-day triplets; lessons live at sequential
// HTML pages with a gap of one page number between volumes.
package stmn1

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/dailymanna/manna/internal/logger"
	"github.com/dailymanna/manna/internal/sources"
	"github.com/dailymanna/manna/internal/sources/triplet"
)

const (
	defaultBase = "https://mana.stmn1.com/books/2264"

	// Each volume carries 18 lessons; page numbering leaves a one-page gap
	// between volumes (volume 1 = 001-018, volume 2 = 020-037, ...).
	lessonsPerVolume = 18
	volumeStride     = 19
)

// Simplified weekday labels as used in stmn1 lesson headings and subjects.
var dayLabels = [7]string{"周一", "周二", "周三", "周四", "周五", "周六", "主日"}

func init() {
	sources.Register("stmn1", func(opts sources.Options) sources.ContentSource {
		return New(opts.Logger, opts.Client)
	})
}

// Source implements sources.ContentSource for mana.stmn1.com.
type Source struct {
	baseURL string
	client  *http.Client
	log     logger.Logger
}

func New(log logger.Logger, client *http.Client) *Source {
	base := os.Getenv("STMN1_BASE")
	if base == "" {
		base = defaultBase
	}
	return &Source{baseURL: base, client: client, log: log}
}

func (s *Source) SourceName() string   { return "stmn1" }
func (s *Source) SelectorType() string { return "volume-lesson-day" }

func (s *Source) AdvanceSelector(selector string) (string, error) {
	return triplet.Advance(selector)
}

func (s *Source) PreviousSelector(selector string) (string, error) {
	return triplet.Previous(selector)
}

func (s *Source) ValidateSelector(selector string) bool {
	return triplet.Validate(selector)
}

// DefaultSelector prefers a full STMN1_SELECTOR override, then the
// individual component overrides, then 1-1-1.
func (s *Source) DefaultSelector() string {
	if sel := os.Getenv("STMN1_SELECTOR"); sel != "" && triplet.Validate(sel) {
		return sel
	}
	volume := envInt("STMN1_VOLUME", 1)
	lesson := envInt("STMN1_LESSON", 1)
	day := envInt("STMN1_DAY_START", 1)
	formatted, err := triplet.Format(triplet.Selector{Volume: volume, Lesson: lesson, Day: day})
	if err != nil {
		return "1-1-1"
	}
	return formatted
}

func (s *Source) GetDailyContent(ctx context.Context, selector string) (*sources.ContentBlock, error) {
	sel, err := triplet.Parse(selector)
	if err != nil {
		return nil, err
	}
	lessonURL := s.lessonURL(sel.Volume, sel.Lesson)
	page, err := sources.FetchPage(ctx, s.client, lessonURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch lesson content from %s: %w", lessonURL, err)
	}

	daily := s.extractDailySection(page, sel.Day)
	title := s.extractTitle(page)
	return &sources.ContentBlock{
		HTMLContent:      daily,
		PlainTextContent: sources.HTMLToPlainText(daily),
		Title:            title,
	}, nil
}

func (s *Source) ContentURL(selector string) (string, error) {
	sel, err := triplet.Parse(selector)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s#%d", s.lessonURL(sel.Volume, sel.Lesson), sel.Day), nil
}

// EmailSubject prefixes the content title with the day's weekday label
// unless the title already starts with one.
func (s *Source) EmailSubject(selector, contentTitle string) string {
	weekday := dayLabels[0]
	if sel, err := triplet.Parse(selector); err == nil {
		weekday = dayLabels[sel.Day-1]
	}
	title := strings.TrimSpace(contentTitle)
	hasPrefix := false
	for _, label := range dayLabels {
		if strings.HasPrefix(title, label) {
			hasPrefix = true
			break
		}
	}
	switch {
	case hasPrefix:
		// keep title as-is
	case title != "":
		title = weekday + " " + title
	default:
		title = weekday
	}
	return "聖經之旅 | " + title
}

func (s *Source) ParseBatchSelectors(input string) ([]string, error) {
	start, end, isRange, items := sources.SplitBatchInput(input)
	if isRange {
		return triplet.ExpandRange(start, end)
	}
	for _, item := range items {
		if !triplet.Validate(item) {
			return nil, fmt.Errorf("invalid stmn1 selector: %q (expected volume-lesson-day, e.g. 1-1-1)", item)
		}
	}
	return items, nil
}

func (s *Source) SupportsRangeSyntax() bool { return true }

func (s *Source) BatchUIConfig() sources.BatchUIConfig {
	return sources.BatchUIConfig{
		Placeholder:   "e.g., 1-1-1 to 1-1-7 or 1-1-1, 1-1-2, 1-1-3",
		HelpText:      "stmn1 format: volume-lesson-day. Use 'X to Y' for ranges within the same lesson.",
		Examples:      []string{"1-1-1", "1-1-2", "1-1-3"},
		SupportsRange: true,
		RangeExample:  "1-1-1 to 1-1-7",
	}
}

// lessonURL builds the lesson page URL from the absolute lesson number.
func (s *Source) lessonURL(volume, lesson int) string {
	return fmt.Sprintf("%s/%03d.html", strings.TrimRight(s.baseURL, "/"), absoluteLesson(volume, lesson))
}

func absoluteLesson(volume, lesson int) int {
	return (volume-1)*volumeStride + lesson
}

// extractDailySection pulls out the paragraphs between the day's 《周X》
// heading and the next day heading (or the discussion-questions block).
// Falls back to the whole page when the heading is not found.
func (s *Source) extractDailySection(page string, day int) string {
	paragraphs := paragraphPattern.FindAllString(page, -1)
	target := "《" + dayLabels[day-1] + "》"

	var collected []string
	collecting := false
	for _, p := range paragraphs {
		text := strings.TrimSpace(sources.HTMLToPlainText(p))
		switch {
		case strings.HasPrefix(text, target):
			collecting = true
			collected = append(collected, p)
		case collecting && (startsWithOtherDay(text, day) || strings.HasPrefix(text, "问题讨论：")):
			return `<div class="daily-content">` + strings.Join(collected, "") + `</div>`
		case collecting && text != "":
			collected = append(collected, p)
		}
	}
	if len(collected) > 0 {
		return `<div class="daily-content">` + strings.Join(collected, "") + `</div>`
	}
	if s.log != nil {
		s.log.Warn("failed to find day section, returning full page",
			logger.Int("day", day))
	}
	return page
}

func startsWithOtherDay(text string, day int) bool {
	for i, label := range dayLabels {
		if i == day-1 {
			continue
		}
		if strings.HasPrefix(text, "《"+label+"》") {
			return true
		}
	}
	return false
}

var (
	paragraphPattern = regexp.MustCompile(`(?is)<p\b[^>]*>.*?</p>`)
	titlePattern     = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	headingPattern   = regexp.MustCompile(`(?is)<h[1-3][^>]*>(.*?)</h[1-3]>`)
)

func (s *Source) extractTitle(page string) string {
	if m := titlePattern.FindStringSubmatch(page); m != nil {
		title := strings.TrimSpace(sources.HTMLToPlainText(m[1]))
		if title != "" {
			// Normalize the site's Simplified title fragments to the
			// Traditional forms used in subjects.
			title = strings.ReplaceAll(title, "圣经之旅第", "聖經之旅第")
			title = strings.ReplaceAll(title, "册丨", "冊｜")
			return title
		}
	}
	if m := headingPattern.FindStringSubmatch(page); m != nil {
		if title := strings.TrimSpace(sources.HTMLToPlainText(m[1])); title != "" {
			return title
		}
	}
	return "聖經之旅 每日內容"
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

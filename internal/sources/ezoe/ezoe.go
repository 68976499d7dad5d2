// Package ezoe is the content source for the ezoe.work site. Selectors are
// volume-lesson-day triplets; lesson pages follow the fixed
// "2264-<volume>-<lesson>.html" naming under the book root.
//
// ezoe is the one source that can confirm whether a lesson actually exists:
// each volume has an index page listing its lesson links, which is scraped
// (and optionally cached) to back boundary validation during calendar fill.
package ezoe

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

const defaultBase = "https://ezoe.work/books/2"

// Day headings on lesson pages use Simplified forms; subjects use
// Traditional ones.
var (
	pageDayLabels    = [7]string{"周一", "周二", "周三", "周四", "周五", "周六", "主日"}
	subjectDayLabels = [7]string{"週一", "週二", "週三", "週四", "週五", "週六", "主日"}
)

func init() {
	sources.Register("ezoe", func(opts sources.Options) sources.ContentSource {
		return New(opts.Logger, opts.Client, opts.LessonCache)
	})
}

// Source implements sources.ContentSource and sources.LessonValidator.
type Source struct {
	baseURL string
	client  *http.Client
	cache   sources.LessonCache
	log     logger.Logger
}

func New(log logger.Logger, client *http.Client, cache sources.LessonCache) *Source {
	base := os.Getenv("EZOE_BASE")
	if base == "" {
		base = defaultBase
	}
	return &Source{baseURL: base, client: client, cache: cache, log: log}
}

func (s *Source) SourceName() string   { return "ezoe" }
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

// DefaultSelector resolves EZOE_SELECTOR, then the component overrides,
// falling back to volume 2 lesson 1 day 1 (where the original deployment
// started).
func (s *Source) DefaultSelector() string {
	if sel := os.Getenv("EZOE_SELECTOR"); sel != "" && triplet.Validate(sel) {
		return sel
	}
	volume := envInt("EZOE_VOLUME", 2)
	lesson := envInt("EZOE_LESSON", 1)
	day := envInt("EZOE_DAY_START", 1)
	formatted, err := triplet.Format(triplet.Selector{Volume: volume, Lesson: lesson, Day: day})
	if err != nil {
		return "2-1-1"
	}
	return formatted
}

func (s *Source) GetDailyContent(ctx context.Context, selector string) (*sources.ContentBlock, error) {
	sel, err := triplet.Parse(selector)
	if err != nil {
		return nil, err
	}
	url := s.lessonURL(sel.Volume, sel.Lesson)
	page, err := sources.FetchPage(ctx, s.client, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch lesson page: %w", err)
	}

	daily := s.extractDaySection(page, sel.Day)
	title := s.extractTitle(page)
	return &sources.ContentBlock{
		HTMLContent:      daily,
		PlainTextContent: sources.HTMLToPlainText(daily),
		Title:            title,
	}, nil
}

// ContentURL returns the lesson URL anchored at the requested day. The
// static anchor mapping (day 1..7 -> 1_6..1_12) matches the site's largely
// stable markup; a live anchor probe is deliberately not attempted here so
// that URL construction stays pure.
func (s *Source) ContentURL(selector string) (string, error) {
	sel, err := triplet.Parse(selector)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s#1_%d", s.lessonURL(sel.Volume, sel.Lesson), 5+sel.Day), nil
}

func (s *Source) EmailSubject(selector, contentTitle string) string {
	weekday := subjectDayLabels[0]
	if sel, err := triplet.Parse(selector); err == nil {
		weekday = subjectDayLabels[sel.Day-1]
	}
	title := strings.TrimSpace(contentTitle)
	hasPrefix := false
	for _, label := range subjectDayLabels {
		if strings.HasPrefix(title, label) {
			hasPrefix = true
			break
		}
	}
	switch {
	case hasPrefix:
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
			return nil, fmt.Errorf("invalid ezoe selector: %q (expected volume-lesson-day, e.g. 2-1-1)", item)
		}
	}
	return items, nil
}

func (s *Source) SupportsRangeSyntax() bool { return true }

func (s *Source) BatchUIConfig() sources.BatchUIConfig {
	return sources.BatchUIConfig{
		Placeholder:   "e.g., 2-1-1 to 2-1-7 or 2-1-1, 2-1-2, 2-1-3",
		HelpText:      "ezoe format: volume-lesson-day. Use 'X to Y' for ranges within the same lesson.",
		Examples:      []string{"2-1-1", "2-1-2", "2-1-3"},
		SupportsRange: true,
		RangeExample:  "2-1-1 to 2-1-7",
	}
}

// ValidateLessonExists reports whether the volume's index page lists the
// lesson. Results go through the optional cache so a week's worth of
// boundary checks costs at most one fetch per volume.
func (s *Source) ValidateLessonExists(ctx context.Context, volume, lesson int) (bool, error) {
	if s.cache != nil {
		if lessons, ok := s.cache.GetVolumeLessons(volume); ok {
			return containsInt(lessons, lesson), nil
		}
	}
	lessons, err := s.fetchVolumeLessons(ctx, volume)
	if err != nil {
		return false, err
	}
	if s.cache != nil {
		s.cache.SetVolumeLessons(volume, lessons)
	}
	return containsInt(lessons, lesson), nil
}

// fetchVolumeLessons scrapes the volume index page for lesson links. Link
// pages for maps and other resources share the same URL pattern but are not
// preceded by a 第X课 caption, so only captioned links count.
func (s *Source) fetchVolumeLessons(ctx context.Context, volume int) ([]int, error) {
	url := s.volumeIndexURL(volume)
	page, err := sources.FetchPage(ctx, s.client, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch volume index: %w", err)
	}

	linkPattern := regexp.MustCompile(fmt.Sprintf(`2264-%d-(\d+)\.html`, volume))
	var lessons []int
	for _, p := range paragraphPattern.FindAllString(page, -1) {
		if !lessonCaptionPattern.MatchString(sources.HTMLToPlainText(p)) {
			continue
		}
		for _, m := range linkPattern.FindAllStringSubmatch(p, -1) {
			if n, err := strconv.Atoi(m[1]); err == nil && !containsInt(lessons, n) {
				lessons = append(lessons, n)
			}
		}
	}
	return lessons, nil
}

func (s *Source) lessonURL(volume, lesson int) string {
	return fmt.Sprintf("%s/2264-%d-%d.html", strings.TrimRight(s.baseURL, "/"), volume, lesson)
}

func (s *Source) volumeIndexURL(volume int) string {
	return fmt.Sprintf("%s/2264-%d.html", strings.TrimRight(s.baseURL, "/"), volume)
}

var (
	paragraphPattern     = regexp.MustCompile(`(?is)<p\b[^>]*>.*?</p>`)
	lessonCaptionPattern = regexp.MustCompile(`第.{1,4}[课課]`)
	titlePattern         = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	headingPattern       = regexp.MustCompile(`(?is)<h[1-3][^>]*>(.*?)</h[1-3]>`)
)

// extractDaySection collects the markup between the day's heading and the
// next day heading. Returns the full page when the heading is missing, so a
// markup change degrades to "too much content" instead of an empty email.
func (s *Source) extractDaySection(page string, day int) string {
	blocks := paragraphPattern.FindAllString(page, -1)
	label := pageDayLabels[day-1]

	var collected []string
	collecting := false
	for _, block := range blocks {
		text := strings.TrimSpace(sources.HTMLToPlainText(block))
		if !collecting {
			if text == label || strings.HasPrefix(text, label) {
				collecting = true
			}
			continue
		}
		if isOtherDayLabel(text, day) {
			break
		}
		if text != "" {
			collected = append(collected, block)
		}
	}
	if len(collected) > 0 {
		return strings.Join(collected, "")
	}
	if s.log != nil {
		s.log.Warn("day heading not found on lesson page, returning full page",
			logger.Int("day", day))
	}
	return page
}

func isOtherDayLabel(text string, day int) bool {
	for i, label := range pageDayLabels {
		if i != day-1 && text == label {
			return true
		}
	}
	return false
}

func (s *Source) extractTitle(page string) string {
	if m := titlePattern.FindStringSubmatch(page); m != nil {
		if title := strings.TrimSpace(sources.HTMLToPlainText(m[1])); title != "" {
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

func containsInt(list []int, n int) bool {
	for _, v := range list {
		if v == n {
			return true
		}
	}
	return false
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

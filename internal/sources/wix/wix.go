// Package wix is the content source for the Wix "Morning Revival" page.
// Selectors are bracketed Chinese weekday markers, 【週一】 through 【主日】,
// cycling modulo 7. The whole week lives on a single page that is
// re-segmented per weekday on fetch.
package wix

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"regexp"
	"strings"

	"github.com/dailymanna/manna/internal/logger"
	"github.com/dailymanna/manna/internal/sources"
)

const defaultURL = "https://churchintamsui.wixsite.com/index/morning-revival"

// markers maps weekday index 0 (Monday) .. 6 (Sunday/主日) to the page's
// section markers, in cycle order.
var markers = [7]string{"【週一】", "【週二】", "【週三】", "【週四】", "【週五】", "【週六】", "【主日】"}

// combinedMarker covers the site's occasional merged Thursday/Friday section.
const combinedMarker = "【週四、週五】"

func init() {
	sources.Register("wix", func(opts sources.Options) sources.ContentSource {
		return New(opts.Logger, opts.Client)
	})
}

// Source implements sources.ContentSource for the Wix site.
type Source struct {
	pageURL string
	client  *http.Client
	log     logger.Logger
}

func New(log logger.Logger, client *http.Client) *Source {
	url := os.Getenv("WIX_URL")
	if url == "" {
		url = defaultURL
	}
	return &Source{pageURL: url, client: client, log: log}
}

func (s *Source) SourceName() string   { return "wix" }
func (s *Source) SelectorType() string { return "chinese-weekday" }

// ParseSelector maps a marker to its weekday index 0..6.
func ParseSelector(selector string) (int, error) {
	trimmed := strings.TrimSpace(selector)
	for i, marker := range markers {
		if trimmed == marker {
			return i, nil
		}
	}
	return 0, fmt.Errorf("invalid weekday selector: %s (expected 【週一】..【主日】)", selector)
}

// FormatSelector is the inverse of ParseSelector.
func FormatSelector(index int) (string, error) {
	if index < 0 || index > 6 {
		return "", fmt.Errorf("weekday index must be 0..6, got %d", index)
	}
	return markers[index], nil
}

func (s *Source) AdvanceSelector(selector string) (string, error) {
	idx, err := ParseSelector(selector)
	if err != nil {
		return "", err
	}
	return FormatSelector((idx + 1) % 7)
}

func (s *Source) PreviousSelector(selector string) (string, error) {
	idx, err := ParseSelector(selector)
	if err != nil {
		return "", err
	}
	return FormatSelector((idx + 6) % 7)
}

func (s *Source) ValidateSelector(selector string) bool {
	_, err := ParseSelector(selector)
	return err == nil
}

func (s *Source) DefaultSelector() string {
	if sel := os.Getenv("WIX_WEEKDAY"); sel != "" {
		if _, err := ParseSelector(sel); err == nil {
			return strings.TrimSpace(sel)
		}
	}
	return markers[0]
}

func (s *Source) GetDailyContent(ctx context.Context, selector string) (*sources.ContentBlock, error) {
	if _, err := ParseSelector(selector); err != nil {
		return nil, err
	}
	page, err := sources.FetchPage(ctx, s.client, s.pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch morning revival page: %w", err)
	}

	segments := segmentByWeekday(page)
	content, ok := segments[strings.TrimSpace(selector)]
	if !ok {
		return nil, fmt.Errorf("weekday selector %s not found on page", selector)
	}

	title := strings.Trim(strings.TrimSpace(selector), "【】")
	if m := headingPattern.FindStringSubmatch(content); m != nil {
		if t := strings.TrimSpace(sources.HTMLToPlainText(m[1])); t != "" {
			title = t
		}
	}
	html := fmt.Sprintf("<h3>%s</h3>%s", title, content)
	return &sources.ContentBlock{
		HTMLContent:      html,
		PlainTextContent: sources.HTMLToPlainText(html),
		Title:            title,
	}, nil
}

// ContentURL returns the page URL; the Wix site is a single page without
// per-day anchors.
func (s *Source) ContentURL(selector string) (string, error) {
	if _, err := ParseSelector(selector); err != nil {
		return "", err
	}
	return s.pageURL, nil
}

// EmailSubject ignores the content title: the weekly page's titles are not
// per-day, so the weekday is the only reliable subject component.
func (s *Source) EmailSubject(selector, _ string) string {
	weekday := strings.Trim(strings.TrimSpace(selector), "【】")
	return "晨興聖言 | " + weekday
}

// ParseBatchSelectors supports both explicit lists and wrap-around ranges:
// 【週六】 to 【週二】 expands to Saturday, Sunday, Monday, Tuesday.
func (s *Source) ParseBatchSelectors(input string) ([]string, error) {
	start, end, isRange, items := sources.SplitBatchInput(input)
	if isRange {
		return expandRange(start, end)
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		idx, err := ParseSelector(item)
		if err != nil {
			return nil, fmt.Errorf("invalid wix selector: %q (expected 【週一】..【主日】)", item)
		}
		out = append(out, markers[idx])
	}
	return out, nil
}

func expandRange(start, end string) ([]string, error) {
	from, err := ParseSelector(start)
	if err != nil {
		return nil, fmt.Errorf("invalid range start: %w", err)
	}
	to, err := ParseSelector(end)
	if err != nil {
		return nil, fmt.Errorf("invalid range end: %w", err)
	}
	// Walk forward with wrap; a start after the end crosses the week
	// boundary rather than being an error.
	count := (to-from+7)%7 + 1
	out := make([]string, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, markers[(from+i)%7])
	}
	return out, nil
}

func (s *Source) SupportsRangeSyntax() bool { return true }

func (s *Source) BatchUIConfig() sources.BatchUIConfig {
	return sources.BatchUIConfig{
		Placeholder:   "e.g., 【週一】 to 【週五】 or 【週一】, 【週三】",
		HelpText:      "wix format: bracketed Chinese weekday. Ranges may wrap across the week boundary.",
		Examples:      []string{"【週一】", "【週三】", "【主日】"},
		SupportsRange: true,
		RangeExample:  "【週六】 to 【週二】",
	}
}

var (
	blockPattern   = regexp.MustCompile(`(?is)<(p|h2|h3)\b[^>]*>.*?</(p|h2|h3)>`)
	headingPattern = regexp.MustCompile(`(?is)<h[1-3][^>]*>(.*?)</h[1-3]>`)
)

// segmentByWeekday splits page markup into per-marker segments. A combined
// 【週四、週五】 section is duplicated under both Thursday and Friday.
func segmentByWeekday(page string) map[string]string {
	sectionMarkers := append([]string{}, markers[:]...)
	sectionMarkers = append(sectionMarkers, combinedMarker)

	segments := map[string]string{}
	var current string
	var buf []string

	flush := func() {
		if current == "" || len(buf) == 0 {
			return
		}
		content := strings.Join(buf, "\n")
		if current == combinedMarker {
			segments[markers[3]] = content
			segments[markers[4]] = content
		} else {
			segments[current] = content
		}
	}

	for _, block := range blockPattern.FindAllString(page, -1) {
		text := strings.TrimSpace(sources.HTMLToPlainText(block))
		marker := matchMarker(text, sectionMarkers)
		if marker != "" {
			flush()
			current = marker
			buf = nil
			continue
		}
		if current != "" {
			buf = append(buf, block)
		}
	}
	flush()
	return segments
}

func matchMarker(text string, sectionMarkers []string) string {
	for _, marker := range sectionMarkers {
		if strings.HasPrefix(text, marker) || strings.Contains(text, marker) {
			return marker
		}
	}
	return ""
}

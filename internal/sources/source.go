package sources

import "context"

// ContentBlock is the standardized container for content returned by any
// ContentSource.
type ContentBlock struct {
	HTMLContent      string
	PlainTextContent string
	Title            string
}

// BatchUIConfig describes how the dashboard should present batch selector
// input for a source. Presentation only.
type BatchUIConfig struct {
	Placeholder   string   `json:"placeholder"`
	HelpText      string   `json:"help_text"`
	Examples      []string `json:"examples"`
	SupportsRange bool     `json:"supports_range"`
	RangeExample  string   `json:"range_example"`
}

// ContentSource is the capability contract every content provider must
// satisfy. The calendar engine only ever talks to this interface, never to a
// concrete provider.
//
// All operations are pure except GetDailyContent, which performs network I/O.
// Selector strings are opaque to callers; only the source that minted a
// selector can interpret it.
type ContentSource interface {
	// SourceName returns the unique registry identifier (e.g. "ezoe").
	SourceName() string
	// SelectorType names the selector syntax family
	// (e.g. "volume-lesson-day", "chinese-weekday").
	SelectorType() string

	// AdvanceSelector returns the next selector in the source's sequence.
	AdvanceSelector(selector string) (string, error)
	// PreviousSelector is the exact inverse of AdvanceSelector, except
	// where a source clamps at a structural boundary.
	PreviousSelector(selector string) (string, error)
	// ValidateSelector reports whether the selector parses.
	ValidateSelector(selector string) bool
	// DefaultSelector returns the seed used when a schedule is empty.
	// Resolved from environment overrides with a hardcoded fallback.
	DefaultSelector() string

	// GetDailyContent fetches and extracts one day's content.
	GetDailyContent(ctx context.Context, selector string) (*ContentBlock, error)
	// ContentURL returns the canonical URL for a selector.
	ContentURL(selector string) (string, error)
	// EmailSubject builds the subject line for a day's send.
	EmailSubject(selector, contentTitle string) string

	// ParseBatchSelectors accepts either an "<A> to <B>" range expression
	// or a comma/newline-delimited list, returning validated selectors in
	// order. Errors name the offending token.
	ParseBatchSelectors(input string) ([]string, error)
	SupportsRangeSyntax() bool
	BatchUIConfig() BatchUIConfig
}

// LessonValidator is the optional extension implemented by triplet-family
// sources that can confirm whether a (volume, lesson) pair exists on the
// live site. The calendar engine uses it to detect dead ends before
// emitting a selector pointing at non-existent content.
type LessonValidator interface {
	ValidateLessonExists(ctx context.Context, volume, lesson int) (bool, error)
}

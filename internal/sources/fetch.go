package sources

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/dailymanna/manna/internal/utils"
)

const defaultUserAgent = "daily-manna/1.0 (+non-commercial)"

// NewHTTPClient builds the HTTP client sources use for page fetches.
// Keep-alives are disabled because fetches are infrequent (one per send or
// per boundary check) and the target sites drop idle connections anyway.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DisableKeepAlives: true,
		},
	}
}

// FetchPage fetches a URL and returns its body as a string. Non-2xx
// responses are errors. The body is capped at 8 MiB; lesson pages are a few
// hundred KiB at most.
func FetchPage(ctx context.Context, client *http.Client, url string) (string, error) {
	if client == nil {
		client = NewHTTPClient(0)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", defaultUserAgent)

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer utils.Close(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("failed to fetch %s: status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", url, err)
	}
	return string(body), nil
}

var (
	dropPattern     = regexp.MustCompile(`(?is)<(script|style|iframe|nav|footer)\b.*?</(script|style|iframe|nav|footer)>`)
	blockEndPattern = regexp.MustCompile(`(?i)</(p|li|h1|h2|h3|div|blockquote|tr)>|<br\s*/?>`)
	tagPattern      = regexp.MustCompile(`(?s)<[^>]*>`)
	newlinePattern  = regexp.MustCompile(`\n+`)
	spacePattern    = regexp.MustCompile(`[ \t\x{3000}]+`)
)

// HTMLToPlainText produces a readable plain-text rendering of an HTML
// fragment for the text/plain email part. A deliberately simple
// tag-stripping pass, not a DOM walk.
func HTMLToPlainText(htmlFragment string) string {
	s := dropPattern.ReplaceAllString(htmlFragment, "")
	s = blockEndPattern.ReplaceAllString(s, "\n")
	s = tagPattern.ReplaceAllString(s, "")
	s = html.UnescapeString(s)

	lines := make([]string, 0, 64)
	for _, line := range newlinePattern.Split(s, -1) {
		line = strings.TrimSpace(spacePattern.ReplaceAllString(line, " "))
		if len([]rune(line)) >= 2 {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return "(純文字預覽不可用；請查看 HTML 內容)"
	}
	return strings.Join(lines, "\n\n")
}

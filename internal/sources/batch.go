package sources

import (
	"regexp"
	"strings"
)

var (
	rangePattern = regexp.MustCompile(`(?i)^(.+?)\s+to\s+(.+)$`)
	listSplitter = regexp.MustCompile(`[,\n]+`)
)

// SplitBatchInput decides whether batch input is an "<A> to <B>" range
// expression or an explicit list. For ranges it returns the two endpoints;
// otherwise the trimmed non-empty list items in input order. Empty input
// yields nothing of either kind.
func SplitBatchInput(input string) (start, end string, isRange bool, items []string) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", "", false, nil
	}
	if m := rangePattern.FindStringSubmatch(input); m != nil {
		return strings.TrimSpace(m[1]), strings.TrimSpace(m[2]), true, nil
	}
	for _, item := range listSplitter.Split(input, -1) {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return "", "", false, items
}

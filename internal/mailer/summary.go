package mailer

import (
	"fmt"
	"html"
	"strings"

	"github.com/dailymanna/manna/internal/dates"
	"github.com/dailymanna/manna/internal/schedule"
)

// RenderPlainSummary renders the weekly admin summary as plain text: one
// line per entry plus editing hints. The tokens map is keyed by ISO date.
func RenderPlainSummary(entries []*schedule.Entry, schedulePath string, tokens map[string]string) string {
	var lines []string
	lines = append(lines, fmt.Sprintf("Schedule file: %s", schedulePath))
	lines = append(lines, "Edit selectors or notes directly in the JSON as needed before send.")
	if len(tokens) > 0 {
		lines = append(lines, "Reply with commands like '[TOKEN] move 2025-06-03' to update entries (beta).")
	}
	lines = append(lines, "")

	for _, entry := range entries {
		if entry == nil {
			continue
		}
		line := fmt.Sprintf("%s (%s) selector=%s status=%s",
			dates.ISO(entry.Date), dates.WeekdayLabel(entry.Date), entry.Selector, entry.Status)
		if entry.SentAt != "" {
			line += " sent_at=" + entry.SentAt
		}
		if entry.Notes != "" {
			line += " notes=" + entry.Notes
		}
		if entry.Override != "" {
			line += " override=" + entry.Override
		}
		if token := tokens[dates.ISO(entry.Date)]; token != "" {
			line += " token=" + token
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// RenderHTMLSummary renders the weekly admin summary as a standalone HTML
// document with one table row per entry.
func RenderHTMLSummary(entries []*schedule.Entry, schedulePath string, tokens map[string]string) string {
	esc := html.EscapeString

	var rows []string
	for _, entry := range entries {
		if entry == nil {
			continue
		}
		rows = append(rows, "<tr>"+
			"<td>"+esc(dates.ISO(entry.Date))+"</td>"+
			"<td>"+esc(dates.WeekdayLabel(entry.Date))+"</td>"+
			"<td>"+esc(entry.Selector)+"</td>"+
			"<td>"+esc(entry.Status)+"</td>"+
			"<td>"+esc(entry.SentAt)+"</td>"+
			"<td>"+esc(entry.Notes)+"</td>"+
			"<td>"+esc(entry.Override)+"</td>"+
			"<td>"+esc(tokens[dates.ISO(entry.Date)])+"</td>"+
			"</tr>")
	}

	return "<!doctype html>\n" +
		"<html><head><meta charset='utf-8'>" +
		"<style>body{font-family:-apple-system,BlinkMacSystemFont,'Segoe UI',sans-serif;padding:16px;}" +
		"table{border-collapse:collapse;width:100%;}" +
		"th,td{border:1px solid #ddd;padding:8px;text-align:left;}" +
		"th{background:#f4f4f4;}" +
		"code{font-size:0.95em;}</style></head><body>" +
		"<h2>Upcoming Week Schedule</h2><p>Edit <code>" + esc(schedulePath) + "</code> if adjustments are needed before sends.</p>" +
		"<p><strong>Reply editing (beta):</strong> Reply with lines like <code>[TOKEN] move 2025-06-03</code> to adjust entries.</p>" +
		"<table><thead><tr><th>Date</th><th>Weekday</th><th>Selector</th><th>Status</th><th>Sent At</th><th>Notes</th><th>Override</th><th>Token</th>" +
		"</tr></thead><tbody>" +
		strings.Join(rows, "\n") +
		"</tbody></table></body></html>"
}

// Package reply implements email-reply driven schedule edits: short-lived
// tokens bound to schedule entries, a line-oriented instruction parser, and
// the applier that turns instructions into schedule mutations.
package reply

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dailymanna/manna/internal/dates"
	"github.com/dailymanna/manna/internal/schedule"
)

// DefaultTokenTTL is how long issued tokens stay usable.
const DefaultTokenTTL = 10 * 24 * time.Hour

// Token is the resolved, in-memory form of a reply token.
type Token struct {
	Code      string
	Date      time.Time
	Selector  string
	SummaryID string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// IssueTokens mints one token per entry, superseding any live token for the
// same date: at most one token per date is resolvable at a time, so a stale
// summary email cannot edit a date that has since been re-summarized.
func IssueTokens(s *schedule.Schedule, entries []*schedule.Entry, summaryID string, issuedAt time.Time, ttl time.Duration) ([]Token, error) {
	if issuedAt.IsZero() {
		issuedAt = time.Now().In(dates.Taipei)
	}
	if ttl < 24*time.Hour {
		ttl = 24 * time.Hour
	}
	expiresAt := issuedAt.Add(ttl)

	store := s.TokenStore()
	created := make([]Token, 0, len(entries))
	for _, entry := range entries {
		dateISO := dates.ISO(entry.Date)
		for code, record := range store.Tokens {
			if record.Date == dateISO {
				delete(store.Tokens, code)
			}
		}
		code, err := generateCode(store.Tokens)
		if err != nil {
			return nil, err
		}
		store.Tokens[code] = schedule.TokenRecord{
			Date:      dateISO,
			Selector:  entry.Selector,
			SummaryID: summaryID,
			IssuedAt:  issuedAt.Format(time.RFC3339),
			ExpiresAt: expiresAt.Format(time.RFC3339),
		}
		created = append(created, Token{
			Code:      code,
			Date:      entry.Date,
			Selector:  entry.Selector,
			SummaryID: summaryID,
			IssuedAt:  issuedAt,
			ExpiresAt: expiresAt,
		})
	}
	store.LastSummaryID = summaryID
	store.LastIssuedAt = issuedAt.Format(time.RFC3339)
	store.LastExpiresAt = expiresAt.Format(time.RFC3339)
	return created, nil
}

// GetToken resolves a code (case-insensitive). A token whose expiry equals
// the reference instant is already expired; equality does not count as
// valid.
func GetToken(s *schedule.Schedule, code string, now time.Time) (Token, error) {
	if s.Meta.ReplyTokens == nil || s.Meta.ReplyTokens.Tokens == nil {
		return Token{}, tokenErrorf("no reply tokens recorded")
	}
	normalized := strings.ToUpper(strings.TrimSpace(code))
	record, ok := s.Meta.ReplyTokens.Tokens[normalized]
	if !ok {
		return Token{}, tokenErrorf("unknown token %s", normalized)
	}
	token, err := decodeRecord(normalized, record)
	if err != nil {
		return Token{}, err
	}
	if now.IsZero() {
		now = time.Now().In(dates.Taipei)
	}
	if !token.ExpiresAt.After(now) {
		return Token{}, fmt.Errorf("token %s: %w", normalized, ErrTokenExpired)
	}
	return token, nil
}

// RemoveToken consumes a token. Removing an absent code is a no-op.
func RemoveToken(s *schedule.Schedule, code string) {
	if s.Meta.ReplyTokens == nil || s.Meta.ReplyTokens.Tokens == nil {
		return
	}
	delete(s.Meta.ReplyTokens.Tokens, strings.ToUpper(strings.TrimSpace(code)))
}

// PurgeExpired removes every token that has expired or whose stored record
// is malformed, returning how many were dropped.
func PurgeExpired(s *schedule.Schedule, now time.Time) int {
	if now.IsZero() {
		now = time.Now().In(dates.Taipei)
	}
	store := s.TokenStore()
	removed := 0
	for code, record := range store.Tokens {
		token, err := decodeRecord(code, record)
		if err != nil || !token.ExpiresAt.After(now) {
			delete(store.Tokens, code)
			removed++
		}
	}
	store.LastPurgeAt = now.Format(time.RFC3339)
	return removed
}

// ListActive returns unexpired tokens sorted by date then code.
func ListActive(s *schedule.Schedule, now time.Time) []Token {
	if s.Meta.ReplyTokens == nil || s.Meta.ReplyTokens.Tokens == nil {
		return nil
	}
	if now.IsZero() {
		now = time.Now().In(dates.Taipei)
	}
	var active []Token
	for code, record := range s.Meta.ReplyTokens.Tokens {
		token, err := decodeRecord(code, record)
		if err != nil {
			continue
		}
		if token.ExpiresAt.After(now) {
			active = append(active, token)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		if !active[i].Date.Equal(active[j].Date) {
			return active[i].Date.Before(active[j].Date)
		}
		return active[i].Code < active[j].Code
	})
	return active
}

func decodeRecord(code string, record schedule.TokenRecord) (Token, error) {
	if record.Date == "" || record.Selector == "" || record.SummaryID == "" ||
		record.IssuedAt == "" || record.ExpiresAt == "" {
		return Token{}, tokenErrorf("token %s record incomplete", code)
	}
	date, err := dates.ParseISO(record.Date)
	if err != nil {
		return Token{}, tokenErrorf("token %s record malformed", code)
	}
	issuedAt, err := time.Parse(time.RFC3339, record.IssuedAt)
	if err != nil {
		return Token{}, tokenErrorf("token %s record malformed", code)
	}
	expiresAt, err := time.Parse(time.RFC3339, record.ExpiresAt)
	if err != nil {
		return Token{}, tokenErrorf("token %s record malformed", code)
	}
	if expiresAt.Before(issuedAt) {
		return Token{}, tokenErrorf("token %s expiry precedes issuance", code)
	}
	return Token{
		Code:      code,
		Date:      date,
		Selector:  record.Selector,
		SummaryID: record.SummaryID,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}

// generateCode draws 4 random bytes as an 8-char upper-hex code, retrying
// on the (vanishing) chance of a collision with a live token.
func generateCode(existing map[string]schedule.TokenRecord) (string, error) {
	for {
		buf := make([]byte, 4)
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to generate token: %w", err)
		}
		code := strings.ToUpper(hex.EncodeToString(buf))
		if _, taken := existing[code]; !taken {
			return code, nil
		}
	}
}

// Package timeparse normalizes heterogeneous date input into UTC instants and
// renders stored UTC instants back in the site's display timezone.
package timeparse

import (
	"strings"
	"time"
)

// DisplayLayout is how instants are rendered for humans (in the display zone).
const DisplayLayout = "2006-01-02 15:04:05"

// Accepted input layouts, tried in priority order. The first carries a UTC
// offset and is parsed as-is; the rest are naive and interpreted in the
// display timezone.
const (
	layoutOffset   = "2006-01-02 15:04:05 -0700"
	layoutDateTime = "2006-01-02 15:04:05"
	layoutDateOnly = "2006-01-02"
	layoutShortUS  = "01/02/06"
)

// Parser converts date strings to UTC and back using a configured display
// timezone. The zero value is not usable; construct with New.
type Parser struct {
	loc *time.Location
}

// New returns a Parser bound to the given display timezone.
func New(loc *time.Location) *Parser {
	return &Parser{loc: loc}
}

// Location returns the configured display timezone.
func (p *Parser) Location() *time.Location {
	return p.loc
}

// ParseToUTC parses text into a UTC instant. It reports ok=false when the text
// is empty or matches none of the accepted layouts; it never errors. Naive
// layouts are interpreted in the display timezone before conversion to UTC.
func (p *Parser) ParseToUTC(text string) (time.Time, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, false
	}

	if t, err := time.Parse(layoutOffset, text); err == nil {
		return t.UTC(), true
	}
	for _, layout := range []string{layoutDateTime, layoutDateOnly, layoutShortUS} {
		if t, err := time.ParseInLocation(layout, text, p.loc); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// ParseToUTCOrNow parses text like ParseToUTC but falls back to now (in UTC)
// for empty or unparseable input. The returned bool still reports whether the
// text itself parsed, so callers can surface the fallback instead of silently
// swallowing bad input.
func (p *Parser) ParseToUTCOrNow(text string, now time.Time) (time.Time, bool) {
	if t, ok := p.ParseToUTC(text); ok {
		return t, true
	}
	return now.UTC(), false
}

// ParseCSVDate parses the MM/DD/YY dates used by the CSV import format,
// interpreted in the display timezone. Unlike ParseToUTC it accepts only that
// one layout, so malformed rows are reported rather than guessed at.
func (p *Parser) ParseCSVDate(text string) (time.Time, bool) {
	t, err := time.ParseInLocation(layoutShortUS, strings.TrimSpace(text), p.loc)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

// FormatDisplay renders a stored UTC instant in the display timezone.
// Instants without an explicit location are assumed to be UTC.
func (p *Parser) FormatDisplay(t time.Time) string {
	return t.In(p.loc).Format(DisplayLayout)
}

// Package expiry parses expiry dates and classifies them against today.
package expiry

import (
	"regexp"
	"strings"
	"time"
)

// Layout is the only accepted expiry date format.
const Layout = "2006-01-02"

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Parse reads s as a YYYY-MM-DD calendar date. Surrounding whitespace is
// ignored; anything else, including impossible dates, fails.
func Parse(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if !datePattern.MatchString(s) {
		return time.Time{}, false
	}
	d, err := time.Parse(Layout, s)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

type Policy struct {
	Now func() time.Time
}

func NewPolicy() *Policy {
	return &Policy{Now: time.Now}
}

// Today returns the current UTC calendar day at midnight.
func (p *Policy) Today() time.Time {
	now := p.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// IsFutureOrToday reports whether iso is today or later. Malformed input is
// classified as failing.
func (p *Policy) IsFutureOrToday(iso string) bool {
	d, ok := Parse(iso)
	if !ok {
		return false
	}
	return !d.Before(p.Today())
}

var defaultPolicy = NewPolicy()

// IsFutureOrToday checks iso against the process clock.
func IsFutureOrToday(iso string) bool {
	return defaultPolicy.IsFutureOrToday(iso)
}

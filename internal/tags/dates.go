package tags

import (
	"fmt"
	"strings"
	"time"

	"github.com/goodsign/monday"
)

// Day layouts accepted for protocol dates, most specific first.
var fullDateLayouts = []string{"2.1.2006", "2.1.06", "2006-1-2"}

var longDateLayouts = []string{"2. January 2006", "2 January 2006", "Monday, 2. January 2006"}

var partialDateLayouts = []string{"2.1.", "2.1"}

// ParseDate parses a "%d.%m.%Y" date. In lax mode "%d.%m." and "%d.%m" are
// accepted and take the year from now.
func ParseDate(s string, lax bool, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation("2.1.2006", s, time.UTC); err == nil {
		return t, nil
	}
	if lax {
		if t, ok := parsePartial(s, now); ok {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q, expected DD.MM.YYYY", s)
}

// ParseMeetingDate accepts every date spelling allowed in a sitzung tag:
// numeric with two or four digit year, ISO, long German month names, and
// day-month only (current year).
func ParseMeetingDate(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range fullDateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	for _, layout := range longDateLayouts {
		if t, err := monday.ParseInLocation(layout, s, time.UTC, monday.LocaleDeDE); err == nil {
			return t, nil
		}
	}
	if t, ok := parsePartial(s, now); ok {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

func parsePartial(s string, now time.Time) (time.Time, bool) {
	for _, layout := range partialDateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return time.Date(now.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// LooksLikeDate reports whether s starts with a digit, which no state name does.
func LooksLikeDate(s string) bool {
	s = strings.TrimSpace(s)
	return s != "" && s[0] >= '0' && s[0] <= '9'
}

package normalize

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"receipt-diagnoser/internal/domain"
)

// dateLayouts are tried in order. Slash and dash numeric forms are month-first.
var dateLayouts = []string{
	time.DateOnly,
	"2006/01/02",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"1/2/2006",
	"1/2/06",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006 3:04 PM",
	"1-2-2006",
	"1-2-06",
	"Jan 2, 2006",
	"Jan 2 2006",
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006 3:04 PM",
	"January 2, 2006 3:04 PM",
	"2 Jan 2006",
	"2 January 2006",
	"2-Jan-2006",
	"02-Jan-06",
}

var (
	digitsOnly = regexp.MustCompile(`^\d+$`)
	monthYear  = regexp.MustCompile(`^(\d{1,2}[/-]\d{2,4}|[A-Za-z]{3,9}\s+\d{4})$`)
	hasDigit   = regexp.MustCompile(`\d`)
)

var missingMarkers = map[string]bool{"n/a": true, "na": true, "none": true, "null": true, "unknown": true}

// Date parses a receipt or statement date into a calendar date at UTC midnight.
// Bare years, bare numbers and month/year forms are rejected as ambiguous.
func Date(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	switch {
	case s == "":
		return time.Time{}, fmt.Errorf("date is empty: %w", domain.ErrValidation)
	case missingMarkers[strings.ToLower(s)]:
		return time.Time{}, fmt.Errorf("date %q marks a missing value: %w", raw, domain.ErrValidation)
	case !hasDigit.MatchString(s):
		return time.Time{}, fmt.Errorf("date %q has no digits: %w", raw, domain.ErrValidation)
	case digitsOnly.MatchString(s), monthYear.MatchString(s):
		return time.Time{}, fmt.Errorf("date %q is missing a day: %w", raw, domain.ErrValidation)
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return domain.CalendarDate(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("could not parse date %q: %w", raw, domain.ErrValidation)
}

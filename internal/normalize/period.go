// Package normalize converts loosely-specified user input into values that
// are safe to bind into SQL: relative period tokens become half-open
// timestamp windows, and free-text search terms become parameterized LIKE
// predicates. Both halves are pure; callers supply the reference clock.
//
// Period resolution is the primary guard against unbounded scans: an empty,
// unknown, or "always" token is rejected outright, never defaulted.
package normalize

import (
	"errors"
	"strings"
	"time"
)

// ErrInvalidPeriod is returned when a period token is empty, unrecognized,
// or explicitly unbounded ("always"). Callers must not fall back to a
// default window.
var ErrInvalidPeriod = errors.New("invalid or missing period")

// TimeWindow is a half-open [Start, End) timestamp range. End is always
// strictly after Start.
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window.
func (w TimeWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Canonical period tokens.
const (
	PeriodToday     = "today"
	PeriodYesterday = "yesterday"
	PeriodThisWeek  = "this_week"
	PeriodLastWeek  = "last_week"
	PeriodThisMonth = "this_month"
	PeriodLastMonth = "last_month"
)

// synonyms folds locale and free-form variants onto canonical tokens. The
// Portuguese entries match the vocabulary the original deployment's users
// developed; the NLU collaborator occasionally passes them through verbatim.
var synonyms = map[string]string{
	"hoje":           PeriodToday,
	"ontem":          PeriodYesterday,
	"esta_semana":    PeriodThisWeek,
	"semana_passada": PeriodLastWeek,
	"este_mes":       PeriodThisMonth,
	"mes_passado":    PeriodLastMonth,
	"ultimo_mes":     PeriodLastMonth,
	"current_week":   PeriodThisWeek,
	"current_month":  PeriodThisMonth,
	"previous_week":  PeriodLastWeek,
	"previous_month": PeriodLastMonth,
}

// unbounded tokens are rejected even though the NLU layer is instructed to
// never emit them.
var unbounded = map[string]struct{}{
	"always": {},
	"sempre": {},
	"all":    {},
	"ever":   {},
}

// Canonicalize lower-cases, trims, strips accents, collapses separators to
// underscores, and folds synonyms. It does not validate; ResolvePeriod does.
func Canonicalize(token string) string {
	t := foldAccents(strings.ToLower(strings.TrimSpace(token)))
	t = strings.NewReplacer(" ", "_", "-", "_").Replace(t)
	if c, ok := synonyms[t]; ok {
		return c
	}
	return t
}

// ResolvePeriod converts a period token into a half-open TimeWindow relative
// to now. Days truncate to midnight, weeks anchor on Monday, months on the
// first. Unknown or unbounded tokens yield ErrInvalidPeriod.
func ResolvePeriod(token string, now time.Time) (TimeWindow, error) {
	c := Canonicalize(token)
	if c == "" {
		return TimeWindow{}, ErrInvalidPeriod
	}
	if _, ok := unbounded[c]; ok {
		return TimeWindow{}, ErrInvalidPeriod
	}

	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch c {
	case PeriodToday:
		return TimeWindow{Start: midnight, End: midnight.AddDate(0, 0, 1)}, nil
	case PeriodYesterday:
		return TimeWindow{Start: midnight.AddDate(0, 0, -1), End: midnight}, nil
	case PeriodThisWeek:
		start := midnight.AddDate(0, 0, -mondayOffset(midnight))
		return TimeWindow{Start: start, End: start.AddDate(0, 0, 7)}, nil
	case PeriodLastWeek:
		end := midnight.AddDate(0, 0, -mondayOffset(midnight))
		return TimeWindow{Start: end.AddDate(0, 0, -7), End: end}, nil
	case PeriodThisMonth:
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return TimeWindow{Start: start, End: start.AddDate(0, 1, 0)}, nil
	case PeriodLastMonth:
		end := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return TimeWindow{Start: end.AddDate(0, -1, 0), End: end}, nil
	}
	return TimeWindow{}, ErrInvalidPeriod
}

// mondayOffset returns how many days t lies past the most recent Monday.
func mondayOffset(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

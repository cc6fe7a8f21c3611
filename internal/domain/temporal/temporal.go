// Package temporal converts the date and period text partners ship
// (six-digit month codes, spreadsheet date strings, bare month names) into
// canonical timestamps and monthly buckets. Parsing never fails a row; a
// value no strategy can read becomes the zero time and the caller decides
// whether the column as a whole is usable.
package temporal

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// minSaneYear is the cutoff below which a parsed year is treated as a
// data-entry defect (spreadsheets emit 0001 or 1900 for blank years) and
// re-stamped from a fallback source. Heuristic carried over from observed
// partner files, not a guaranteed repair.
const minSaneYear = 2000

// yyyymmRe matches six-digit month codes like 202507, tolerating the
// trailing ".0" that survives a float round-trip.
var yyyymmRe = regexp.MustCompile(`^\d{6}$`)

// commonLayouts are tried for free-form date text before the explicit
// partner-format list.
var commonLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"02/01/2006 15:04:05",
}

// explicitLayouts mirror the fixed format list partner files have been seen
// to use for month columns.
var explicitLayouts = []string{
	"Jan-06",
	"Jan-2006",
	"02-Jan-2006",
	"02-Jan-06",
	"2-Jan-2006",
	"2-Jan",
	"02-Jan",
	"01-2006",
	"2006-01",
	"January 2006",
	"Jan 2006",
}

var monthNums = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

var nonAlphaRe = regexp.MustCompile(`[^a-z]+`)

// ParsePeriod parses a column of period text into timestamps. Strategies
// are attempted per element, in order: six-digit YYYYMM, free-form date
// layouts, the explicit partner format list, a month-name prefix combined
// with defaultYear, and a bare month number 1-12 combined with defaultYear.
// Elements no strategy can read come back as the zero time.
//
// After parsing, any element with a year below 2000 is re-stamped using the
// year of fallback at the same index (or defaultYear when fallback is nil or
// unparsed there), keeping the parsed month and forcing the day to 1.
func ParsePeriod(values []string, fallback []time.Time, defaultYear int) []time.Time {
	out := make([]time.Time, len(values))
	for i, v := range values {
		out[i] = parseOne(v, defaultYear)
	}
	for i, ts := range out {
		if ts.IsZero() || ts.Year() >= minSaneYear {
			continue
		}
		year := defaultYear
		if fallback != nil && i < len(fallback) && !fallback[i].IsZero() {
			year = fallback[i].Year()
		}
		out[i] = time.Date(year, ts.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	return out
}

func parseOne(v string, defaultYear int) time.Time {
	s := strings.TrimSpace(v)
	s = strings.TrimSuffix(s, ".0")
	if s == "" {
		return time.Time{}
	}

	// 1. Six-digit YYYYMM.
	if yyyymmRe.MatchString(s) {
		year, _ := strconv.Atoi(s[:4])
		month, _ := strconv.Atoi(s[4:])
		if month >= 1 && month <= 12 {
			return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
		}
		return time.Time{}
	}

	// 2. Free-form common layouts.
	for _, layout := range commonLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC()
		}
	}

	// 3. Explicit partner formats.
	for _, layout := range explicitLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC()
		}
	}

	// 4. Month-name prefix ("Jul", "Jan (till 10)").
	tokens := strings.Fields(nonAlphaRe.ReplaceAllString(strings.ToLower(s), " "))
	if len(tokens) > 0 {
		tok := tokens[0]
		if len(tok) >= 3 {
			if m, ok := monthNums[tok[:3]]; ok {
				return time.Date(defaultYear, m, 1, 0, 0, 0, 0, time.UTC)
			}
		}
	}

	// 5. Bare month number.
	if n, err := strconv.Atoi(s); err == nil && n >= 1 && n <= 12 {
		return time.Date(defaultYear, time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	}

	return time.Time{}
}

// ParseDate parses a single date string against the common and explicit
// layout lists. Used for request date filters and freshness bounds; period
// heuristics that need a default year do not apply here.
func ParseDate(s string) (time.Time, bool) {
	v := strings.TrimSpace(s)
	if v == "" {
		return time.Time{}, false
	}
	v = strings.TrimSuffix(v, ".0")
	if yyyymmRe.MatchString(v) {
		year, _ := strconv.Atoi(v[:4])
		month, _ := strconv.Atoi(v[4:])
		if month >= 1 && month <= 12 {
			return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC), true
		}
		return time.Time{}, false
	}
	for _, layout := range append(append([]string{}, commonLayouts...), explicitLayouts...) {
		if ts, err := time.Parse(layout, v); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}

// MonthKey truncates a timestamp to the first day of its month, the
// canonical bucket for the "month" dimension.
func MonthKey(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// MonthKeys applies MonthKey element-wise.
func MonthKeys(ts []time.Time) []time.Time {
	out := make([]time.Time, len(ts))
	for i, t := range ts {
		out[i] = MonthKey(t)
	}
	return out
}

// FormatMonth renders a month bucket as its display label, e.g. "Jul-25".
func FormatMonth(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("Jan-06")
}

// AllZero reports whether no element parsed, the signal that a whole
// column is unusable.
func AllZero(ts []time.Time) bool {
	for _, t := range ts {
		if !t.IsZero() {
			return false
		}
	}
	return true
}

package timeline

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the canonical date form, zero-padded MM/DD/YYYY.
const DateLayout = "01/02/2006"

var (
	slashDateRe = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`)
	textDateRe  = regexp.MustCompile(`(?i)\b(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+(\d{1,2}),?\s+(\d{4})\b`)
)

var monthPrefixes = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// ParseDate finds the earliest date in text, numeric or textual, and returns
// it as a UTC midnight. Impossible calendar dates are rejected.
func ParseDate(text string) (time.Time, bool) {
	type hit struct {
		at   int
		date time.Time
	}
	var best *hit

	for _, m := range slashDateRe.FindAllStringSubmatchIndex(text, -1) {
		month, _ := strconv.Atoi(text[m[2]:m[3]])
		day, _ := strconv.Atoi(text[m[4]:m[5]])
		year, _ := strconv.Atoi(text[m[6]:m[7]])
		if d, ok := civil(year, time.Month(month), day); ok {
			if best == nil || m[0] < best.at {
				best = &hit{at: m[0], date: d}
			}
			break
		}
	}
	for _, m := range textDateRe.FindAllStringSubmatchIndex(text, -1) {
		month := monthPrefixes[strings.ToLower(text[m[2]:m[3]])]
		day, _ := strconv.Atoi(text[m[4]:m[5]])
		year, _ := strconv.Atoi(text[m[6]:m[7]])
		if d, ok := civil(year, month, day); ok {
			if best == nil || m[0] < best.at {
				best = &hit{at: m[0], date: d}
			}
			break
		}
	}

	if best == nil {
		return time.Time{}, false
	}
	return best.date, true
}

// NormalizeDate returns the canonical form of the earliest date in text, or
// "" when there is none.
func NormalizeDate(text string) string {
	d, ok := ParseDate(text)
	if !ok {
		return ""
	}
	return d.Format(DateLayout)
}

func civil(year int, month time.Month, day int) (time.Time, bool) {
	if month < time.January || month > time.December || day < 1 {
		return time.Time{}, false
	}
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if d.Month() != month || d.Day() != day {
		return time.Time{}, false
	}
	return d, true
}

// dateSpan reports where the first date-looking substring of s begins, or -1.
func dateSpan(s string) int {
	at := -1
	if loc := slashDateRe.FindStringIndex(s); loc != nil {
		at = loc[0]
	}
	if loc := textDateRe.FindStringIndex(s); loc != nil && (at < 0 || loc[0] < at) {
		at = loc[0]
	}
	return at
}

// Cutoff returns the first instant outside season's valid window (Sep 1).
func Cutoff(season int) time.Time {
	return time.Date(season, time.September, 1, 0, 0, 0, 0, time.UTC)
}

// InWindow reports whether d is strictly before Sep 1 of season.
func InWindow(d time.Time, season int) bool {
	return d.Before(Cutoff(season))
}

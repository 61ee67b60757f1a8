package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

var (
	datePrefixRe = regexp.MustCompile(`(?i)^\s*(date[:\s]+|starts?[:\s]+|starting[:\s]+|when[:\s]+)`)
	// A trailing number is stripped as a clock time only when marked as
	// one ("at"/"@" prefix, colon minutes, or am/pm); a bare number is
	// kept so "June 14" does not lose its day.
	clockTimeRe = regexp.MustCompile(`(?i)(?:[\s,]*(?:@|\bat)\s*\d{1,2}(?::\d{2})?\s*(?:a\.?m\.?|p\.?m\.?)?|[\s,]+\d{1,2}:\d{2}\s*(?:a\.?m\.?|p\.?m\.?)?|[\s,]+\d{1,2}\s*(?:a\.?m\.?|p\.?m\.?))\s*$`)
	slashDateRe = regexp.MustCompile(`(\d{1,2})\s*[/-]\s*(\d{1,2})\s*[/-]\s*(\d{2,4})`)
	longDateRe  = regexp.MustCompile(`(?i)(january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sept?|oct|nov|dec)\.?\s+(\d{1,2})(?:st|nd|rd|th)?(?:\s*,?\s*(\d{4}))?`)
)

var monthsByName = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may":  time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sept": time.September, "sep": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

// Date converts freeform date text into a UTC calendar date relative to now.
// It never fails; unparseable input yields nil.
func Date(raw string, now time.Time) *time.Time {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	switch strings.ToLower(trimmed) {
	case "today", "now", "tonight":
		return &today
	case "tomorrow":
		next := today.AddDate(0, 0, 1)
		return &next
	}

	cleaned := datePrefixRe.ReplaceAllString(trimmed, "")
	cleaned = clockTimeRe.ReplaceAllString(cleaned, "")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return nil
	}

	switch strings.ToLower(cleaned) {
	case "today", "now", "tonight":
		return &today
	case "tomorrow":
		next := today.AddDate(0, 0, 1)
		return &next
	}

	if parsed, err := dateparse.ParseAny(cleaned); err == nil {
		day := time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC)
		return &day
	}

	if match := slashDateRe.FindStringSubmatch(cleaned); match != nil {
		if day := dateFromNumericParts(match[1], match[2], match[3]); day != nil {
			return day
		}
	}

	if match := longDateRe.FindStringSubmatch(cleaned); match != nil {
		month := monthsByName[strings.ToLower(match[1])]
		dayOfMonth, err := strconv.Atoi(match[2])
		if err == nil && dayOfMonth >= 1 && dayOfMonth <= 31 {
			year := now.Year()
			if match[3] != "" {
				if parsedYear, yearErr := strconv.Atoi(match[3]); yearErr == nil {
					year = parsedYear
				}
			}
			day := time.Date(year, month, dayOfMonth, 0, 0, 0, 0, time.UTC)
			return &day
		}
	}

	return nil
}

// dateFromNumericParts interprets month/day/year text, widening 2-digit years
// into the 1950-2049 window.
func dateFromNumericParts(monthText, dayText, yearText string) *time.Time {
	month, err := strconv.Atoi(monthText)
	if err != nil || month < 1 || month > 12 {
		return nil
	}
	dayOfMonth, err := strconv.Atoi(dayText)
	if err != nil || dayOfMonth < 1 || dayOfMonth > 31 {
		return nil
	}
	year, err := strconv.Atoi(yearText)
	if err != nil {
		return nil
	}
	if len(yearText) <= 2 {
		if year >= 50 {
			year += 1900
		} else {
			year += 2000
		}
	}

	day := time.Date(year, time.Month(month), dayOfMonth, 0, 0, 0, 0, time.UTC)
	return &day
}

// Package normalize turns the free-form date, time and attendance strings
// scraped from the source page into canonical values. Parsing is
// conservative: anything that cannot be resolved with confidence is dropped
// and reported as a warning rather than guessed, because downstream
// automations act on these values.
package normalize

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// DateLayout is the canonical calendar date format used everywhere
// downstream of the normalizer.
const DateLayout = "2006-01-02"

var (
	dayNameRe   = regexp.MustCompile(`(?i)\b(mon|tue|wed|thu|fri|sat|sun|monday|tuesday|wednesday|thursday|friday|saturday|sunday|weekend|wknd)\b`)
	ordinalRe   = regexp.MustCompile(`(\d+)(?:st|nd|rd|th)\b`)
	dayRangeRe  = regexp.MustCompile(`(\d{1,2})\s*/\s*\d{1,2}(\s+[a-zA-Z]+\s+\d{2,4})`)
	multiWSRe   = regexp.MustCompile(`\s+`)
	alphaWordRe = regexp.MustCompile(`[a-zA-Z]+`)
)

// Layouts tried against the cleaned string, explicit year first.
var dateLayouts = []string{
	"2 January 2006",
	"2 Jan 2006",
	"2 January 06",
	"2 Jan 06",
	"2 1 2006",
	"2 1 06",
	"2006 1 2",
}

// Layouts without a year; the year is inferred afterwards.
var yearlessLayouts = []string{
	"2 January",
	"2 Jan",
	"2 1",
}

// NormalizeDate resolves a scraped date string to canonical YYYY-MM-DD.
// Day names, ordinal suffixes and "weekend" markers are stripped, day
// ranges like "16/17 May 2025" collapse to the first day, and a date with
// no year resolves to the nearest future-or-today occurrence relative to
// now, rolling forward one year when the candidate has already passed.
// An unresolvable input returns "" and a warning.
func NormalizeDate(raw string, now time.Time) (string, []string) {
	if strings.TrimSpace(raw) == "" {
		return "", []string{"empty date string"}
	}

	cleaned := dayNameRe.ReplaceAllString(raw, "")
	cleaned = ordinalRe.ReplaceAllString(cleaned, "$1")
	cleaned = dayRangeRe.ReplaceAllString(cleaned, "$1$2")
	cleaned = strings.NewReplacer("-", " ", "/", " ", ".", " ", " ", " ").Replace(cleaned)
	cleaned = multiWSRe.ReplaceAllString(cleaned, " ")
	cleaned = strings.TrimSpace(cleaned)
	// Month-name layouts require Go's canonical capitalization.
	cleaned = alphaWordRe.ReplaceAllStringFunc(cleaned, func(w string) string {
		return strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	})

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, cleaned); err == nil {
			return t.Format(DateLayout), nil
		}
	}

	for _, layout := range yearlessLayouts {
		t, err := time.Parse(layout, cleaned)
		if err != nil {
			continue
		}
		return inferYear(t, now).Format(DateLayout), nil
	}

	return "", []string{fmt.Sprintf("could not parse date: %q", raw)}
}

// inferYear places a month/day with no year on the nearest occurrence that
// is today or later within a rolling twelve-month window.
func inferYear(t time.Time, now time.Time) time.Time {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	candidate := time.Date(now.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	if candidate.Before(today) {
		candidate = candidate.AddDate(1, 0, 0)
	}
	return candidate
}

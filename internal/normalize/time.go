package normalize

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	noonBeforeRe    = regexp.MustCompile(`\b12\s*noon\b`)
	noonAfterRe     = regexp.MustCompile(`\bnoon\s*12\b`)
	midnightFirstRe = regexp.MustCompile(`\b12\s*midnight\b`)
	midnightLastRe  = regexp.MustCompile(`\bmidnight\s*12\b`)
	tbcSuffixRe     = regexp.MustCompile(`\s*\(tbc\)`)
	timeTokenRe     = regexp.MustCompile(`\b\d{1,2}(?::\d{2})?\s*(?:am|pm)?\b`)
)

// NormalizeTime resolves a scraped time string to 24-hour HH:MM values.
// A compound expressing two times ("3 & 5pm", "3-5pm", "15:00 – 17:00")
// yields the earlier as start and the later as end, with an implied
// meridiem shared backwards from the last explicit one. An empty or "TBC"
// input means the time is simply unknown; anything else that fails to
// parse is dropped with a warning rather than guessed.
func NormalizeTime(raw string) (start, end string, warnings []string) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" || s == "tbc" {
		return "", "", nil
	}

	s = noonBeforeRe.ReplaceAllString(s, "12:00pm")
	s = noonAfterRe.ReplaceAllString(s, "12:00pm")
	s = strings.ReplaceAll(s, "noon", "12:00pm")
	s = midnightFirstRe.ReplaceAllString(s, "12:00am")
	s = midnightLastRe.ReplaceAllString(s, "12:00am")
	s = tbcSuffixRe.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, ".", ":")
	s = strings.ReplaceAll(s, " and ", " & ")
	s = strings.ReplaceAll(s, "–", "-") // en-dash joins two times

	tokens := timeTokenRe.FindAllString(s, -1)
	if len(tokens) == 0 {
		return "", "", []string{fmt.Sprintf("no valid time patterns found in: %q", raw)}
	}

	// The last explicit meridiem is shared backwards: "3 & 5pm" means both
	// are pm.
	var shared string
	for i := len(tokens) - 1; i >= 0; i-- {
		if m := meridiemOf(tokens[i]); m != "" {
			shared = m
			break
		}
	}

	var parsed []string
	for _, tok := range tokens {
		hm, ok := parseSingleTime(tok, shared)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("failed to parse time component: %q", strings.TrimSpace(tok)))
			continue
		}
		parsed = append(parsed, hm)
	}
	if len(parsed) == 0 {
		return "", "", warnings
	}

	sort.Strings(parsed)
	start = parsed[0]
	if last := parsed[len(parsed)-1]; last != start {
		end = last
	}
	return start, end, warnings
}

func meridiemOf(tok string) string {
	switch {
	case strings.Contains(tok, "pm"):
		return "pm"
	case strings.Contains(tok, "am"):
		return "am"
	}
	return ""
}

// parseSingleTime converts one token like "3", "3:30pm" or "15:00" to
// HH:MM. The shared meridiem applies only when the token carries none of
// its own.
func parseSingleTime(tok, shared string) (string, bool) {
	meridiem := shared
	tok = strings.TrimSpace(strings.ToLower(tok))
	if m := meridiemOf(tok); m != "" {
		meridiem = m
		tok = strings.TrimSpace(strings.TrimSuffix(strings.TrimSuffix(tok, m), " "))
		tok = strings.TrimSpace(strings.ReplaceAll(tok, m, ""))
	}

	hour, minute := 0, 0
	var err error
	if h, m, found := strings.Cut(tok, ":"); found {
		if hour, err = strconv.Atoi(strings.TrimSpace(h)); err != nil {
			return "", false
		}
		if minute, err = strconv.Atoi(strings.TrimSpace(m)); err != nil {
			return "", false
		}
	} else {
		if hour, err = strconv.Atoi(tok); err != nil {
			return "", false
		}
	}

	if hour > 12 && meridiem != "" {
		return "", false
	}
	if hour > 23 {
		return "", false
	}
	if meridiem == "pm" && hour < 12 {
		hour += 12
	} else if meridiem == "am" && hour == 12 {
		hour = 0
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return "", false
	}
	return fmt.Sprintf("%02d:%02d", hour, minute), true
}

package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const maxPlausibleCrowd = 100000

var (
	crowdNoiseRe = regexp.MustCompile(`(?i)(TBC|Estimate|Est|Approx|~)`)
	crowdRangeRe = regexp.MustCompile(`(\d+)\s*-\s*(\d+,\d+)`)
	digitsRe     = regexp.MustCompile(`\d+`)
)

// FormatCrowd validates a scraped attendance string and formats it with
// thousands separators. A range keeps its upper bound; figures above the
// stadium's plausible capacity are rejected with a warning.
func FormatCrowd(raw string) (string, []string) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}

	cleaned := strings.TrimSpace(crowdNoiseRe.ReplaceAllString(raw, ""))
	if m := crowdRangeRe.FindStringSubmatch(cleaned); m != nil {
		cleaned = m[2]
	}
	cleaned = strings.ReplaceAll(cleaned, ",", "")

	numbers := digitsRe.FindAllString(cleaned, -1)
	if len(numbers) == 0 {
		return "", nil
	}

	best := 0
	for _, n := range numbers {
		v, err := strconv.Atoi(n)
		if err != nil || v > maxPlausibleCrowd {
			continue
		}
		if v > best {
			best = v
		}
	}
	if best == 0 {
		return "", []string{fmt.Sprintf("implausible crowd size detected: %q", raw)}
	}
	return groupThousands(best), nil
}

func groupThousands(n int) string {
	s := strconv.Itoa(n)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

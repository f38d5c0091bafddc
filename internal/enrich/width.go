package enrich

import "regexp"

// Flag emoji are either a pair of regional indicator symbols (🇦🇺) or the
// black-flag base followed by tag characters (🏴󠁧󠁢󠁥󠁮󠁧󠁿).
var flagRe = regexp.MustCompile(`[\x{1F1E6}-\x{1F1FF}][\x{1F1E6}-\x{1F1FF}]|\x{1F3F4}[\x{E0060}-\x{E007F}]+`)

// VisualWidth returns the display width of a short name where each flag
// emoji counts as two units and every other rune counts as one. The width
// budget exists because downstream displays truncate hard at a fixed
// number of cells.
func VisualWidth(text string) int {
	flags := len(flagRe.FindAllString(text, -1))
	rest := flagRe.ReplaceAllString(text, "")
	return len([]rune(rest)) + flags*2
}

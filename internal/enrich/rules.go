package enrich

import (
	"regexp"
	"strings"

	"github.com/twickenham/eventsd/internal/models"
)

// rule pairs a classification with the patterns that select it. Rules are
// evaluated strictly in order and the first match wins, so the table
// encodes every tie-break: finals outrank any sport, and rugby is checked
// before football because their tournament vocabularies overlap ("world
// cup", national team names).
type rule struct {
	tag      models.TypeTag
	patterns []*regexp.Regexp
}

var classifierRules = []rule{
	{models.TypeFinal, compileAll(
		`\b(grand final|cup final|title match|championship decider|title decider)\b`,
		`\b(world cup final|six nations final|premiership final|championship final)\b`,
		`\b(champions cup final|european cup final|heineken cup final)\b`,
		`\b(champions league final|europa league final)\b`,
		`\b(grand slam final|triple crown final|playoff final)\b`,
		`\b(winner takes all)\b`,
	)},
	{models.TypeRugby, compileAll(
		`\b(rugby|rfu|six nations|world cup|nations cup|autumn international|spring international)\b`,
		`\b(england|wales|scotland|ireland|france|italy|australia|new zealand|south africa|argentina|fiji)\s+(v|vs|versus)\s+`,
		`\b(lions|all blacks|wallabies|springboks|pumas)\b`,
		`\b(internationals?|test match)\b`,
		`\b(quins|harlequins|leicester|saracens|northampton|bath|gloucester|exeter|bristol|sale|wasps)\b.*\b(v|vs|versus)\b`,
	)},
	{models.TypeFootball, compileAll(
		`\b(football|soccer|fa cup|premier league|efl|champions league|europa league)\b`,
		`\b(friendly|derby)\b.*\bfc\b`,
	)},
	{models.TypeCricket, compileAll(
		`\b(cricket|t20|twenty20|the ashes|odi|test series)\b`,
	)},
	{models.TypeConcert, compileAll(
		`\b(concert|tour|live|music|band|artist|singer|orchestra|symphony)\b`,
		`\b(gig|show|performance|acoustic|jazz|rock|pop|classical)\b`,
		`\b(festival)\b`,
	)},
}

func compileAll(exprs ...string) []*regexp.Regexp {
	res := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		res[i] = regexp.MustCompile(e)
	}
	return res
}

// Classify assigns a type tag from the ordered keyword rules. Anything
// unmatched is a generic stadium event.
func Classify(name string) models.TypeTag {
	lower := strings.ToLower(name)
	for _, r := range classifierRules {
		for _, p := range r.patterns {
			if p.MatchString(lower) {
				return r.tag
			}
		}
	}
	return models.TypeGeneric
}

// IconsFor maps a type tag to its display emoji and Material Design icon.
func IconsFor(tag models.TypeTag) (emoji, iconID string) {
	switch tag {
	case models.TypeFinal:
		return "\U0001F3C6", "mdi:trophy"
	case models.TypeRugby:
		return "\U0001F3C9", "mdi:rugby"
	case models.TypeFootball:
		return "⚽", "mdi:soccer"
	case models.TypeCricket:
		return "\U0001F3CF", "mdi:cricket"
	case models.TypeConcert:
		return "\U0001F3B5", "mdi:music"
	default:
		return "\U0001F3DF️", "mdi:stadium"
	}
}

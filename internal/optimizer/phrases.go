package optimizer

import "regexp"

// phrasePair couples a compiled, case-insensitive whole-phrase pattern
// with its replacement. Vocabularies are closed and defined at build
// time, same as internal/complexity's keyword classes — no runtime
// configuration changes these lists.
type phrasePair struct {
	pattern     *regexp.Regexp
	replacement string
}

func phrase(p, replacement string) phrasePair {
	return phrasePair{pattern: regexp.MustCompile(`(?i)\b` + p + `\b`), replacement: replacement}
}

// redundancyPhrases replace wordy constructions with a direct
// equivalent, applied first in the pass pipeline.
var redundancyPhrases = []phrasePair{
	phrase(`in order to`, "to"),
	phrase(`due to the fact that`, "because"),
	phrase(`in the event that`, "if"),
	phrase(`at this point in time`, "now"),
	phrase(`for the purpose of`, "for"),
	phrase(`in spite of the fact that`, "although"),
	phrase(`with regard to`, "about"),
	phrase(`on the grounds that`, "because"),
}

// fillerWords are removed outright (replaced with empty string); any
// resulting double space is cleaned up by the whitespace-compression
// pass that runs last.
var fillerWords = []phrasePair{
	phrase(`basically`, ""),
	phrase(`actually`, ""),
	phrase(`really`, ""),
	phrase(`very`, ""),
	phrase(`just`, ""),
	phrase(`simply`, ""),
	phrase(`honestly`, ""),
	phrase(`literally`, ""),
}

// verbosePhrases simplify common verbose constructions.
var verbosePhrases = []phrasePair{
	phrase(`a large number of`, "many"),
	phrase(`a majority of`, "most"),
	phrase(`in the near future`, "soon"),
	phrase(`at the present time`, "now"),
	phrase(`a significant amount of`, "much"),
	phrase(`take into consideration`, "consider"),
	phrase(`make a decision`, "decide"),
}

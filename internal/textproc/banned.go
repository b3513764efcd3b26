package textproc

import (
	"regexp"
	"unicode"
)

// bannedPhrase maps one flagged word or phrase to its plain replacement.
// The replacements are themselves never in the banned set, which keeps
// the substitution pass idempotent.
type bannedPhrase struct {
	re          *regexp.Regexp
	replacement string
}

func banned(pattern, replacement string) bannedPhrase {
	return bannedPhrase{
		re:          regexp.MustCompile(`(?i)\b` + pattern + `\b`),
		replacement: replacement,
	}
}

// bannedPhrases is the fixed substitution table for words the model
// overuses. Longer phrases come first so they win over their parts.
var bannedPhrases = []bannedPhrase{
	banned(`it is important to note that`, "notably,"),
	banned(`delves into`, "examines"),
	banned(`delve into`, "examine"),
	banned(`delving into`, "examining"),
	banned(`delves`, "examines"),
	banned(`delve`, "examine"),
	banned(`underscores`, "highlights"),
	banned(`underscore`, "highlight"),
	banned(`underscoring`, "highlighting"),
	banned(`pivotal`, "central"),
	banned(`realm`, "area"),
	banned(`tapestry`, "body"),
	banned(`landscape`, "field"),
	banned(`leverages`, "uses"),
	banned(`leveraging`, "using"),
	banned(`leverage`, "use"),
	banned(`intricate`, "complex"),
	banned(`multifaceted`, "varied"),
	banned(`paramount`, "essential"),
	banned(`plethora`, "range"),
	banned(`myriad`, "range"),
	banned(`holistic`, "broad"),
	banned(`seamlessly`, "smoothly"),
	banned(`groundbreaking`, "novel"),
	banned(`cutting-edge`, "state-of-the-art"),
}

// ReplaceBannedPhrases substitutes flagged "AI-sounding" words with
// plainer synonyms, case-insensitively, preserving an initial capital.
// Whitespace is normalized afterwards.
func ReplaceBannedPhrases(text string) string {
	if text == "" {
		return text
	}

	for _, bp := range bannedPhrases {
		text = bp.re.ReplaceAllStringFunc(text, func(match string) string {
			return matchCase(match, bp.replacement)
		})
	}

	text = multiSpaceRe.ReplaceAllString(text, " ")
	text = blankLinesRe.ReplaceAllString(text, "\n\n")
	return text
}

// matchCase capitalizes the replacement when the matched text started
// with an upper-case letter.
func matchCase(match, replacement string) string {
	if match == "" || replacement == "" {
		return replacement
	}
	r := []rune(match)
	if unicode.IsUpper(r[0]) {
		out := []rune(replacement)
		out[0] = unicode.ToUpper(out[0])
		return string(out)
	}
	return replacement
}

package textproc

import (
	"regexp"
	"strings"
)

// mojibakeReplacer repairs the common artifacts of UTF-8 punctuation
// decoded as Latin-1, which the backend occasionally produces when
// echoing punctuation from retrieved abstracts. The sequences are
// spelled as escapes so the source stays ASCII-safe; the bare two-rune
// prefix goes last so the longer sequences win.
var mojibakeReplacer = strings.NewReplacer(
	"\u00e2\u20ac\u2122", "'", // right single quote
	"\u00e2\u20ac\u02dc", "'", // left single quote
	"\u00e2\u20ac\u0153", "\"", // left double quote
	"\u00e2\u20ac\u009d", "\"", // right double quote
	"\u00e2\u20ac\u0093", "-", // en dash
	"\u00e2\u20ac\u0094", "-", // em dash
	"\u00e2\u20ac\u00a6", "...", // ellipsis
	"\u00c3\u00a9", "\u00e9", // e acute
	"\u00c2\u00a0", " ", // non-breaking space
	"\u00e2\u20ac", "\"",
)

var (
	codeFenceRe = regexp.MustCompile("(?m)^```[a-zA-Z]*\\s*$")

	// Subsection labels ("A.", "B.", ...) followed by a capitalized
	// word get their own line. Only spaces before the label match, so
	// a label already on its own line is left alone.
	subsectionLabelRe = regexp.MustCompile(`[ \t]+([A-H]\.)[ \t]+([A-Z])`)

	// Inline numbered items after a sentence boundary.
	inlineNumberedRe = regexp.MustCompile(`([.:;])[ \t]+(\d{1,2}\.)[ \t]+([A-Z])`)

	// Inline bullet glyphs.
	inlineBulletRe = regexp.MustCompile(`[ \t]+\x{2022}[ \t]*`)

	// Label phrases the structured prompts ask for.
	labelPhraseRe = regexp.MustCompile(`[ \t]+((?:Key Insight|Key Finding|Step \d+|Note|Example|Algorithm(?: \d+)?):)`)
)

// Restructure re-formats sections whose prompt asked for subsections or
// enumerated content and whose structure the model flattened into one
// paragraph. It repairs mis-decoded punctuation, drops code-fence
// markers, and inserts line breaks before subsection labels, bullet
// glyphs, inline numbered items, and recognized label phrases. Intended
// for kinds where NeedsRestructuring() is true; harmless elsewhere.
func Restructure(text string) string {
	if text == "" {
		return text
	}

	text = mojibakeReplacer.Replace(text)
	text = codeFenceRe.ReplaceAllString(text, "")
	text = subsectionLabelRe.ReplaceAllString(text, "\n\n$1 $2")
	text = inlineNumberedRe.ReplaceAllString(text, "$1\n$2 $3")
	text = inlineBulletRe.ReplaceAllString(text, "\n")
	text = labelPhraseRe.ReplaceAllString(text, "\n$1")
	text = blankLinesRe.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}

// Package textproc cleans and normalizes generated text.
//
// Every function here is a pure, deterministic string transformation;
// nothing touches the network. The passes run in a fixed order (markdown
// stripping, heading removal, dangling-topic repair, first-person
// rewriting, banned-phrase substitution) and the whole chain is
// idempotent: cleaning already-clean text makes no further changes.
package textproc

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/helixir/paper-generator-service/internal/domain"
)

var (
	markdownHeaderRe = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	boldRe           = regexp.MustCompile(`\*\*(.+?)\*\*`)
	boldUnderscoreRe = regexp.MustCompile(`__(.+?)__`)
	italicRe         = regexp.MustCompile(`\*([^*]+?)\*`)
	italicUnderRe    = regexp.MustCompile(`_([^_]+?)_`)
	bulletRe         = regexp.MustCompile(`(?m)^\s*[-*•]\s+`)
	numberedListRe   = regexp.MustCompile(`(?m)^\s*\d+[.)]\s+`)
	horizontalRuleRe = regexp.MustCompile(`(?m)^[-*_]{3,}\s*$`)
	blankLinesRe     = regexp.MustCompile(`\n{3,}`)
	multiSpaceRe     = regexp.MustCompile(` {2,}`)
)

// sectionKeywords are headings the model tends to echo back even when
// told not to. Lines consisting solely of one of these are dropped.
var sectionKeywords = []string{
	"Abstract", "Introduction", "Literature Review", "Background",
	"Methodology", "Methods", "Results", "Discussion", "Conclusion",
	"References", "Objectives", "Problem Statement", "Related Work",
	"Future Work", "Acknowledgments", "Keywords",
}

// StripMarkdown removes markdown artifacts: headers, bold and italic
// markers, bullet and numbered-list markers, horizontal rules, then
// collapses excess blank lines and runs of spaces.
func StripMarkdown(text string) string {
	if text == "" {
		return text
	}

	text = markdownHeaderRe.ReplaceAllString(text, "")
	text = boldRe.ReplaceAllString(text, "$1")
	text = boldUnderscoreRe.ReplaceAllString(text, "$1")
	text = italicRe.ReplaceAllString(text, "$1")
	text = italicUnderRe.ReplaceAllString(text, "$1")
	text = bulletRe.ReplaceAllString(text, "")
	text = numberedListRe.ReplaceAllString(text, "")
	text = horizontalRuleRe.ReplaceAllString(text, "")
	text = blankLinesRe.ReplaceAllString(text, "\n\n")
	text = multiSpaceRe.ReplaceAllString(text, " ")

	return text
}

// StripHeadings drops lines that are exactly a known section keyword or
// the paper title, with or without a trailing colon. Titles inside
// normal prose are left alone.
func StripHeadings(text, title string) string {
	if text == "" {
		return text
	}

	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if isHeadingLine(line, title) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

func isHeadingLine(line, title string) bool {
	trimmed := strings.TrimSpace(line)
	trimmed = strings.TrimSuffix(trimmed, ":")
	trimmed = strings.TrimSpace(trimmed)
	if trimmed == "" {
		return false
	}

	if title != "" && strings.EqualFold(trimmed, title) {
		return true
	}
	for _, keyword := range sectionKeywords {
		if strings.EqualFold(trimmed, keyword) {
			return true
		}
	}
	return false
}

var (
	// Dangling-topic patterns: a preposition followed immediately by
	// punctuation marks a template variable that failed to substitute.
	danglingInPeriodRe  = regexp.MustCompile(`\bin\s*\.`)
	danglingForPeriodRe = regexp.MustCompile(`\bfor\s*\.`)
	danglingCommaRe     = regexp.MustCompile(`\b(on|in|of|for|with|to|about|as|at|by)\s*,`)
	danglingPeriodRe    = regexp.MustCompile(`\b(on|of|with|to|about|as|at|by)\s*\.`)

	// Sentences opening with a bare verb are missing their subject.
	bareVerbLineRe = regexp.MustCompile(`(?mi)^\s*(is|are|was|were|has|have|can|will|may|provides|offers|represents)\b`)

	leadingPunctRe = regexp.MustCompile(`(?m)^[.,;:]\s*`)
)

// RepairDanglingTopic rewrites the artifacts left behind when a topic
// variable failed to substitute into a prompt template: dangling
// prepositions get a generic object rather than the literal topic (which
// reads as run-on repetition), bare-verb sentence openings get a neutral
// subject, and stray leading punctuation is removed.
func RepairDanglingTopic(text string) string {
	if text == "" {
		return text
	}

	text = danglingInPeriodRe.ReplaceAllString(text, "in this field.")
	text = danglingForPeriodRe.ReplaceAllString(text, "for future research.")
	text = danglingCommaRe.ReplaceAllString(text, "$1 this domain,")
	text = danglingPeriodRe.ReplaceAllString(text, "$1 this domain.")
	text = bareVerbLineRe.ReplaceAllString(text, "This study $1")
	text = leadingPunctRe.ReplaceAllString(text, "")

	return text
}

// firstPersonReplacements rewrites first-person phrasing into an
// impersonal register. Order matters: case-sensitive pairs keep
// sentence capitalization intact.
var firstPersonReplacements = []struct {
	re          *regexp.Regexp
	replacement string
}{
	{regexp.MustCompile(`\bWe\b`), "This research"},
	{regexp.MustCompile(`\bwe\b`), "this research"},
	{regexp.MustCompile(`\bOur\b`), "The"},
	{regexp.MustCompile(`\bour\b`), "the"},
	{regexp.MustCompile(`\bI\b`), "This study"},
	{regexp.MustCompile(`\bMy\b`), "The"},
	{regexp.MustCompile(`\bmy\b`), "the"},
}

// RewriteFirstPerson replaces first-person references with third-person
// equivalents.
func RewriteFirstPerson(text string) string {
	for _, r := range firstPersonReplacements {
		text = r.re.ReplaceAllString(text, r.replacement)
	}
	return text
}

// Clean runs the full cleaning chain for one generated section: strip
// markdown, drop echoed headings, repair dangling topic references,
// rewrite first person (unless the section is exempt), substitute
// banned phrases, and normalize whitespace.
func Clean(text string, kind domain.SectionKind, title string) string {
	if text == "" {
		return text
	}

	text = StripMarkdown(text)
	text = StripHeadings(text, title)
	text = RepairDanglingTopic(text)
	if !kind.FirstPersonExempt() {
		text = RewriteFirstPerson(text)
	}
	text = ReplaceBannedPhrases(text)

	return strings.TrimSpace(text)
}

// CleanAbstract cleans a generated abstract. The abstract follows the
// same chain as a regular prose section, first-person rewriting
// included.
func CleanAbstract(text, title string) string {
	if text == "" {
		return text
	}

	text = StripMarkdown(text)
	text = StripHeadings(text, title)
	text = RepairDanglingTopic(text)
	text = RewriteFirstPerson(text)
	text = ReplaceBannedPhrases(text)

	return strings.TrimSpace(text)
}

// CleanSurvey cleans a generated literature survey. Surveys keep their
// section-name lines, so only markdown stripping and banned-phrase
// substitution apply.
func CleanSurvey(text string) string {
	if text == "" {
		return text
	}
	text = StripMarkdown(text)
	text = ReplaceBannedPhrases(text)
	return strings.TrimSpace(text)
}

// CountWords counts whitespace-separated words.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// Truncate shortens s to at most n bytes, backing up so a multi-byte
// rune is never split.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// emptyQuoteRe matches a quoted topic that came out empty.
var emptyQuoteRe = regexp.MustCompile(`"\s*"|''`)

// TitleLost reports whether cleaning removed every mention of the paper
// title: the raw text contained it but the cleaned text does not. Used
// as a diagnostic after the cleaning chain, not as a correctness gate.
func TitleLost(raw, cleaned, title string) bool {
	if strings.TrimSpace(title) == "" {
		return false
	}
	needle := strings.ToLower(title)
	return strings.Contains(strings.ToLower(raw), needle) &&
		!strings.Contains(strings.ToLower(cleaned), needle)
}

// FindDanglingTopicRefs scans cleaned text for topic-blank artifacts
// that survived the repair pass: dangling prepositions, bare-verb
// sentence openings, and empty quoted topics. Returns the offending
// snippets, empty when the text is sound.
func FindDanglingTopicRefs(text string) []string {
	var found []string
	for _, re := range []*regexp.Regexp{
		danglingInPeriodRe,
		danglingForPeriodRe,
		danglingCommaRe,
		danglingPeriodRe,
		bareVerbLineRe,
		emptyQuoteRe,
	} {
		found = append(found, re.FindAllString(text, -1)...)
	}
	return found
}

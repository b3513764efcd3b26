package llm

import (
	"regexp"
	"strings"

	"github.com/helixir/paper-generator-service/internal/textproc"
)

// maxPromptChars bounds any single piece of user-controlled text
// embedded into a prompt.
const maxPromptChars = 10000

// injectionPatterns match prompt-injection markers removed from all
// user-controlled input before it is interpolated into a prompt:
// quote fences, hijacked instruction keywords, and model control tokens.
var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)"""`),
	regexp.MustCompile(`(?i)'''`),
	regexp.MustCompile(`(?i)CRITICAL:`),
	regexp.MustCompile(`(?i)REQUIREMENTS:`),
	regexp.MustCompile(`(?i)FORBIDDEN:`),
	regexp.MustCompile(`(?i)IGNORE PREVIOUS`),
	regexp.MustCompile(`(?i)IGNORE ALL`),
	regexp.MustCompile(`(?i)SYSTEM:`),
	regexp.MustCompile(`(?i)<\|im_start\|>`),
	regexp.MustCompile(`(?i)<\|im_end\|>`),
}

// SanitizePrompt strips prompt-injection markers from user-controlled
// text and truncates it to a safe length. It is idempotent: sanitizing
// already-sanitized text makes no further changes.
func SanitizePrompt(text string) string {
	if text == "" {
		return text
	}

	for _, pattern := range injectionPatterns {
		text = pattern.ReplaceAllString(text, "")
	}

	if len(text) > maxPromptChars {
		// The ellipsis counts against the budget so a second pass never
		// truncates again.
		text = textproc.Truncate(text, maxPromptChars-len("...")) + "..."
	}

	return strings.TrimSpace(text)
}

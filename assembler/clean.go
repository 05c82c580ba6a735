package assembler

import (
	"regexp"
	"strings"
)

// Model output sometimes leaks stage directions and thinking-aloud
// filler; chat replies must not carry them.
var thinkingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?is)\*thinks?\*.*?\*`),
	regexp.MustCompile(`(?is)\*.*?\*`),
	regexp.MustCompile(`(?is)\(thinking:.*?\)`),
	regexp.MustCompile(`(?is)\[thinking:.*?\]`),
	regexp.MustCompile(`(?i)let me think about this\.\.\.`),
	regexp.MustCompile(`(?i)hmm,?\s*let me see\.\.\.`),
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// CleanReply strips thinking artifacts, collapses whitespace, and
// bounds the reply to maxLen, preferring a sentence boundary over a
// hard cut.
func CleanReply(text string, maxLen int) string {
	for _, p := range thinkingPatterns {
		text = p.ReplaceAllString(text, "")
	}
	text = strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
	if maxLen <= 0 || len(text) <= maxLen {
		return text
	}

	room := maxLen - 10
	var truncated strings.Builder
	for _, sentence := range strings.Split(text, ". ") {
		if truncated.Len()+len(sentence)+2 > room {
			break
		}
		truncated.WriteString(sentence)
		truncated.WriteString(". ")
	}
	if truncated.Len() > 0 {
		return strings.TrimSpace(truncated.String()) + "..."
	}
	return text[:room] + "..."
}

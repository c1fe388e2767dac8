package widget

import (
	"regexp"
	"strings"
)

// Ordered introduction patterns, each capturing a name of one or two words.
var namePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bmy name is\s+([a-zA-Z][\w'-]+(?:\s+[a-zA-Z][\w'-]+)?)\b`),
	regexp.MustCompile(`(?i)\bi am\s+([a-zA-Z][\w'-]+(?:\s+[a-zA-Z][\w'-]+)?)\b`),
	regexp.MustCompile(`(?i)\bi'm\s+([a-zA-Z][\w'-]+(?:\s+[a-zA-Z][\w'-]+)?)\b`),
}

// ExtractName guesses the visitor's name from raw input text. It returns the
// first pattern match, title-cased, or the empty string when nothing matches.
// The guess is advisory only and never validated.
func ExtractName(text string) string {
	for _, pattern := range namePatterns {
		match := pattern.FindStringSubmatch(text)
		if len(match) > 1 && match[1] != "" {
			return titleCase(strings.TrimSpace(match[1]))
		}
	}
	return ""
}

func titleCase(raw string) string {
	words := strings.Fields(raw)
	for i, word := range words {
		words[i] = strings.ToUpper(word[:1]) + strings.ToLower(word[1:])
	}
	return strings.Join(words, " ")
}

package triage

import (
	"strings"
	"unicode"
)

const minTokenLen = 3

// Extract derives a deduplicated set of lowercase keywords from free
// text. Punctuation is treated as whitespace, tokens shorter than
// three characters are dropped, and multi-word inputs additionally
// yield the whitespace-free concatenation of all kept tokens so that
// "react native" also matches "reactnative".
//
// Total over all inputs: empty text yields an empty set.
func Extract(text string) []string {
	if text == "" {
		return nil
	}

	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || unicode.IsSpace(r) {
			return r
		}
		return ' '
	}, strings.ToLower(text))

	var tokens []string
	for _, word := range strings.Fields(cleaned) {
		word = strings.TrimSpace(word)
		if len([]rune(word)) < minTokenLen {
			continue
		}
		tokens = append(tokens, word)
	}

	if len(tokens) > 1 {
		tokens = append(tokens, strings.Join(tokens, ""))
	}

	return dedupe(tokens)
}

// Normalize merges keywords from the ticket title and description with
// the classifier's suggested skills into one comparable keyword set.
// Each suggested skill contributes both the lower-cased phrase itself
// and its component keywords, so matching works at the phrase level and
// at the token level.
func Normalize(title, description string, relatedSkills []string) []string {
	keywords := append(Extract(title), Extract(description)...)

	for _, skill := range relatedSkills {
		phrase := strings.ToLower(strings.TrimSpace(skill))
		if phrase != "" {
			keywords = append(keywords, phrase)
		}
		keywords = append(keywords, Extract(skill)...)
	}

	return dedupe(keywords)
}

// dedupe removes duplicates preserving first-seen order.
func dedupe(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}
	return result
}

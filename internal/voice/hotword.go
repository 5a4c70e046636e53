package voice

import (
	"regexp"
	"strings"
)

var transcriptPunctuation = strings.NewReplacer(".", "", ",", "", "!", "", "?", "")

// normalizeTranscript lower-cases, drops . , ! ? and collapses whitespace.
func normalizeTranscript(raw string) string {
	lowered := strings.ToLower(transcriptPunctuation.Replace(raw))
	return strings.Join(strings.Fields(lowered), " ")
}

// hotwordGate detects the wake phrase spoken on its own.
type hotwordGate struct {
	phrase string
	prefix *regexp.Regexp
}

func newHotwordGate(phrase string) hotwordGate {
	normalized := normalizeTranscript(phrase)

	words := strings.Fields(normalized)
	quoted := make([]string, 0, len(words))
	for _, word := range words {
		quoted = append(quoted, regexp.QuoteMeta(word))
	}
	pattern := `(?i)^\s*` + strings.Join(quoted, `[\s.,!?]+`) + `(?:[\s.,!?]+|$)`

	return hotwordGate{
		phrase: normalized,
		prefix: regexp.MustCompile(pattern),
	}
}

// Matches reports whether fragment is exactly the wake phrase.
// Containment does not count.
func (g hotwordGate) Matches(fragment string) bool {
	return g.phrase != "" && normalizeTranscript(fragment) == g.phrase
}

// Strip removes one leading wake phrase plus trailing punctuation/whitespace.
func (g hotwordGate) Strip(fragment string) string {
	if g.phrase == "" {
		return strings.TrimSpace(fragment)
	}
	return strings.TrimSpace(g.prefix.ReplaceAllString(fragment, ""))
}

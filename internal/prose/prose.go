// Package prose holds the sentence-level text helpers shared by the agents
// and the quality gate.
package prose

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Len returns the length of text in characters.
func Len(text string) int {
	return utf8.RuneCountInString(text)
}

// Words returns the number of whitespace-separated words.
func Words(text string) int {
	return len(strings.Fields(text))
}

// Questions counts question marks.
func Questions(text string) int {
	return strings.Count(text, "?")
}

// boundaries returns the rune offsets just past each sentence terminator
// that is followed by whitespace or the end of text.
func boundaries(runes []rune) []int {
	var out []int
	for i, r := range runes {
		if r != '.' && r != '!' && r != '?' && r != '\n' {
			continue
		}
		if i == len(runes)-1 || unicode.IsSpace(runes[i+1]) {
			out = append(out, i+1)
		}
	}
	return out
}

// Sentences splits text into trimmed sentences. Line breaks end a sentence.
func Sentences(text string) []string {
	runes := []rune(text)
	var out []string
	start := 0
	for _, end := range boundaries(runes) {
		if s := strings.TrimSpace(string(runes[start:end])); s != "" {
			out = append(out, s)
		}
		start = end
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		out = append(out, s)
	}
	return out
}

// First returns the first sentence of text.
func First(text string) string {
	if s := Sentences(text); len(s) > 0 {
		return s[0]
	}
	return ""
}

// TrimToSentences keeps at most n sentences, preserving the original
// spacing between them.
func TrimToSentences(text string, n int) string {
	runes := []rune(strings.TrimSpace(text))
	b := boundaries(runes)
	if n <= 0 || len(b) <= n {
		return string(runes)
	}
	return strings.TrimSpace(string(runes[:b[n-1]]))
}

// Cut shortens text to at most limit characters, ending on a sentence
// boundary when one fits and on a word boundary otherwise.
func Cut(text string, limit int) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if limit <= 0 {
		return ""
	}
	if len(runes) <= limit {
		return text
	}
	best := 0
	for _, end := range boundaries(runes) {
		if end > limit {
			break
		}
		best = end
	}
	if best > 0 {
		return strings.TrimSpace(string(runes[:best]))
	}
	cut := limit - 1
	for cut > 0 && !unicode.IsSpace(runes[cut]) {
		cut--
	}
	if cut == 0 {
		cut = limit - 1
	}
	return strings.TrimRightFunc(string(runes[:cut]), func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	}) + "…"
}

// segments splits text at sentence boundaries, keeping the whitespace
// that follows each sentence so the pieces concatenate back to text.
func segments(text string) []string {
	runes := []rune(text)
	var out []string
	start := 0
	for _, end := range boundaries(runes) {
		for end < len(runes) && unicode.IsSpace(runes[end]) {
			end++
		}
		if end <= start {
			continue
		}
		out = append(out, string(runes[start:end]))
		start = end
	}
	if start < len(runes) {
		out = append(out, string(runes[start:]))
	}
	return out
}

// DropQuestions removes every sentence that asks a question, keeping the
// layout of the rest.
func DropQuestions(text string) string {
	var b strings.Builder
	for _, seg := range segments(text) {
		if !strings.HasSuffix(strings.TrimSpace(seg), "?") {
			b.WriteString(seg)
		}
	}
	return strings.TrimSpace(b.String())
}

// SingleQuestion reduces text to exactly one trailing question: the first
// question sentence is kept, everything after it dropped. Returns "" when
// text holds no question.
func SingleQuestion(text string) string {
	var kept []string
	for _, s := range Sentences(text) {
		if strings.Contains(s, "?") {
			i := strings.Index(s, "?")
			kept = append(kept, s[:i+1])
			return strings.Join(kept, " ")
		}
		kept = append(kept, s)
	}
	return ""
}

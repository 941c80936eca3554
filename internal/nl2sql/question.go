package nl2sql

import (
	"slices"
	"strings"
	"unicode"
)

// Question is a user question together with its normalized form.
type Question struct {
	Raw        string
	Normalized string
	tokens     []string
}

func NewQuestion(raw string) Question {
	normalized := Normalize(raw)
	var tokens []string
	if normalized != "" {
		tokens = strings.Split(normalized, " ")
	}
	return Question{Raw: raw, Normalized: normalized, tokens: tokens}
}

// Normalize lowercases text, replaces punctuation with spaces and collapses
// whitespace. A hyphen survives only between two digits so ISO dates stay
// intact.
func Normalize(text string) string {
	runes := []rune(strings.ToLower(text))
	var b strings.Builder
	b.Grow(len(runes))
	for i, r := range runes {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '-' && i > 0 && i+1 < len(runes) && unicode.IsDigit(runes[i-1]) && unicode.IsDigit(runes[i+1]):
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func (q Question) Tokens() []string {
	return append([]string(nil), q.tokens...)
}

// Has reports whether phrase occurs in the question on word boundaries.
func (q Question) Has(phrase string) bool {
	return len(q.positions(phrase)) > 0
}

func (q Question) HasAny(phrases ...string) bool {
	for _, phrase := range phrases {
		if q.Has(phrase) {
			return true
		}
	}
	return false
}

// positions returns the token indexes at which phrase starts.
func (q Question) positions(phrase string) []int {
	want := strings.Fields(Normalize(phrase))
	if len(want) == 0 || len(want) > len(q.tokens) {
		return nil
	}
	var out []int
	for i := 0; i+len(want) <= len(q.tokens); i++ {
		if slices.Equal(q.tokens[i:i+len(want)], want) {
			out = append(out, i)
		}
	}
	return out
}

// firstPosition returns the earliest token index of any phrase, or -1.
func (q Question) firstPosition(phrases ...string) int {
	first := -1
	for _, phrase := range phrases {
		for _, pos := range q.positions(phrase) {
			if first == -1 || pos < first {
				first = pos
			}
		}
	}
	return first
}

func (q Question) token(i int) string {
	if i < 0 || i >= len(q.tokens) {
		return ""
	}
	return q.tokens[i]
}

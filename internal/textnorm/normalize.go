// Package textnorm converts raw query and clause text into the canonical
// token form the matcher compares. Normalization is pure and
// deterministic: no I/O, no randomness, same input always yields the same
// tokens.
package textnorm

import (
	"strings"
	"unicode"

	"github.com/surgebase/porter2"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Tokens normalizes text into a canonical token sequence: lowercase,
// accents stripped, punctuation removed, stopwords dropped, stems applied.
// Empty or whitespace-only input yields an empty slice.
func Tokens(text string) []string {
	folded, _, _ := transform.String(stripAccents, strings.ToLower(text))

	fields := strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) < 2 || stopwords[f] {
			continue
		}
		tokens = append(tokens, Stem(f))
	}
	return tokens
}

// Stem reduces a word to its porter2 stem so morphological variants
// ("emission", "emissions") collapse to one token. Words shorter than
// three runes pass through unchanged.
func Stem(word string) string {
	if len(word) < 3 {
		return word
	}
	return porter2.Stem(word)
}

// Normalize returns the canonical single-string form of text, tokens
// joined by single spaces.
func Normalize(text string) string {
	return strings.Join(Tokens(text), " ")
}

// TokenSet returns the deduplicated token set of text.
func TokenSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range Tokens(text) {
		set[tok] = true
	}
	return set
}

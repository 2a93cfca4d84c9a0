package analyzer

import (
	"strings"
	"unicode"
)

// Tokenizer splits text into whitespace-delimited word tokens. The same
// tokenizer is used for chunk windows and context budgets so that a chunk
// of N tokens always costs N tokens of budget.
type Tokenizer struct{}

// NewTokenizer creates a new Tokenizer.
func NewTokenizer() *Tokenizer {
	return &Tokenizer{}
}

// Encode splits text into tokens.
func (t *Tokenizer) Encode(text string) []string {
	return strings.Fields(text)
}

// Decode joins tokens back into text separated by single spaces.
func (t *Tokenizer) Decode(tokens []string) string {
	return strings.Join(tokens, " ")
}

// CountTokens returns the number of tokens in text.
func (t *Tokenizer) CountTokens(text string) int {
	n := 0
	inWord := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			inWord = false
			continue
		}
		if !inWord {
			n++
			inWord = true
		}
	}
	return n
}


package port

// Tokenizer converts text to the token units used for both chunking and
// context budget accounting.
type Tokenizer interface {
	Encode(text string) []string

	Decode(tokens []string) string

	CountTokens(text string) int
}

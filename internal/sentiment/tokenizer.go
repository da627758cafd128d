package sentiment

import "strings"

// Tokenizer converts text to a token sequence and back.
type Tokenizer interface {
	Encode(text string) []string
	Decode(tokens []string) string
}

// WordTokenizer splits on Unicode whitespace and joins with single spaces.
type WordTokenizer struct{}

func (WordTokenizer) Encode(text string) []string {
	return strings.Fields(text)
}

func (WordTokenizer) Decode(tokens []string) string {
	return strings.Join(tokens, " ")
}

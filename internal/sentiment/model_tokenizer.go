package sentiment

import (
	"fmt"
	"os"
	"strings"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
)

// ModelTokenizer counts tokens the way the classifier model does, from a
// Hugging Face tokenizer.json.
type ModelTokenizer struct {
	tk *tokenizer.Tokenizer
}

// LoadModelTokenizer reads tokenizer.json from a local file, or fetches and
// caches it for a Hugging Face hub model id.
func LoadModelTokenizer(nameOrPath string) (*ModelTokenizer, error) {
	file := nameOrPath
	if _, err := os.Stat(nameOrPath); err != nil {
		file, err = tokenizer.CachedPath(nameOrPath, "tokenizer.json")
		if err != nil {
			return nil, fmt.Errorf("resolve tokenizer %q: %w", nameOrPath, err)
		}
	}

	tk, err := pretrained.FromFile(file)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer %s: %w", file, err)
	}
	return &ModelTokenizer{tk: tk}, nil
}

// Encode returns the model tokens of text without special tokens.
func (m *ModelTokenizer) Encode(text string) []string {
	enc, err := m.tk.EncodeSingle(text, false)
	if err != nil {
		// The classifier still truncates, so word counts are a usable fallback.
		return strings.Fields(text)
	}
	return enc.Tokens
}

func (m *ModelTokenizer) Decode(tokens []string) string {
	ids := make([]int, 0, len(tokens))
	for _, tok := range tokens {
		if id, ok := m.tk.TokenToId(tok); ok {
			ids = append(ids, id)
		}
	}
	return strings.TrimSpace(m.tk.Decode(ids, true))
}

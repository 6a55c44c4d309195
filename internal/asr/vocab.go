package asr

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// ctcBlankID is the reserved blank token index in CTC vocabularies.
const ctcBlankID = 0

// wordBoundary is the SentencePiece marker that maps to a literal space.
const wordBoundary = "▁"

// loadVocabulary reads a vocabulary file: a JSON array of token strings
// where the index is the token ID and ID 0 is the CTC blank.
func loadVocabulary(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading vocabulary: %w", err)
	}

	var vocab []string
	if err := json.Unmarshal(data, &vocab); err != nil {
		return nil, fmt.Errorf("parsing vocabulary JSON: %w", err)
	}
	if len(vocab) == 0 {
		return nil, fmt.Errorf("vocabulary %q is empty", path)
	}
	return vocab, nil
}

// defaultVocabulary is the fallback 28-symbol character vocabulary:
// blank, a-z, space, apostrophe.
func defaultVocabulary() []string {
	vocab := make([]string, 0, 29)
	vocab = append(vocab, "<blank>")
	for c := 'a'; c <= 'z'; c++ {
		vocab = append(vocab, string(c))
	}
	vocab = append(vocab, " ", "'")
	return vocab
}

// decodeTokens concatenates token strings, mapping the word-boundary
// marker to a space, and trims the result.
func decodeTokens(tokens []int, vocab []string) string {
	var b strings.Builder
	for _, id := range tokens {
		if id >= 0 && id < len(vocab) {
			b.WriteString(vocab[id])
		}
	}
	text := strings.ReplaceAll(b.String(), wordBoundary, " ")
	return strings.TrimSpace(text)
}

package tokenizer

import (
	"fmt"

	tiktoken "github.com/pkoukk/tiktoken-go"

	"agentgate/internal/domain"
)

// DefaultEncoding is used when no encoding is configured. The count only
// steers window trimming, so an exact match with the serving model's own
// tokenizer is not required.
const DefaultEncoding = "cl100k_base"

// TikToken implements domain.Tokenizer on top of tiktoken-go.
type TikToken struct {
	encoding *tiktoken.Tiktoken
}

// NewTikToken creates a tokenizer for the named encoding, e.g. "cl100k_base"
// or "o200k_base". Unknown encodings return an error.
func NewTikToken(encodingName string) (*TikToken, error) {
	enc, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("tokenizer: unknown encoding %q: %w", encodingName, err)
	}
	return &TikToken{encoding: enc}, nil
}

// CountTokens returns the number of tokens in text. Empty text counts as zero.
func (t *TikToken) CountTokens(text string) (int, error) {
	if text == "" {
		return 0, nil
	}
	return len(t.encoding.Encode(text, nil, nil)), nil
}

var _ domain.Tokenizer = (*TikToken)(nil)

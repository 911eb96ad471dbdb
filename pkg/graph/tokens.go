package graph

import (
	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter counts model tokens in a piece of text. The token-aware
// chunker uses it to bound chunk sizes; when no counter is configured the
// chunker falls back to paragraph splitting.
type TokenCounter interface {
	CountTokens(text string) int
}

// TiktokenCounter counts tokens with a tiktoken encoding.
type TiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenCounter creates a counter for the given encoding name,
// e.g. "o200k_base".
func NewTiktokenCounter(encoding string) (*TiktokenCounter, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, err
	}
	return &TiktokenCounter{enc: enc}, nil
}

// CountTokens returns the number of tokens in text.
func (c *TiktokenCounter) CountTokens(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}

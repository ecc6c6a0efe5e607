// Package prompt packs ranked passages into a context under a token budget and builds
// the prompt text sent to a completion back-end.
package prompt

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/hyperjump/tanya/internal/models"
)

// Counter counts tokens in text.
type Counter interface {
	Count(text string) int
}

// WordCounter counts whitespace-separated words.
type WordCounter struct{}

// Count returns the number of whitespace-separated words in text.
func (WordCounter) Count(text string) int {
	return len(strings.Fields(text))
}

// TiktokenCounter counts BPE tokens with a tiktoken encoding.
type TiktokenCounter struct {
	enc *tiktoken.Tiktoken
	mu  sync.Mutex
}

// Supported BPE encodings.
const (
	EncodingCL100K = "cl100k_base"
	EncodingR50K   = "r50k_base"
)

// NewTiktokenCounter loads the named encoding.
func NewTiktokenCounter(encoding string) (*TiktokenCounter, error) {
	switch encoding {
	case EncodingCL100K, EncodingR50K:
	default:
		return nil, fmt.Errorf("%w: unknown tokenizer encoding %q", models.ErrConfiguration, encoding)
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load encoding %s: %w", encoding, err)
	}
	return &TiktokenCounter{enc: enc}, nil
}

// Count returns the number of BPE tokens in text.
func (c *TiktokenCounter) Count(text string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.enc.Encode(text, nil, nil))
}

// NewCounter returns the counter named by tokenizer: "words" (or empty) or a tiktoken encoding.
func NewCounter(tokenizer string) (Counter, error) {
	switch tokenizer {
	case "", "words":
		return WordCounter{}, nil
	default:
		return NewTiktokenCounter(tokenizer)
	}
}

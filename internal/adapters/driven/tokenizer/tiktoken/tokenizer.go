// Package tiktoken provides a Tokenizer backed by OpenAI's BPE encodings.
package tiktoken

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/custodia-labs/sercha-code/internal/core/domain"
	"github.com/custodia-labs/sercha-code/internal/core/ports/driven"
)

// DefaultEncoding is the BPE encoding used when none is given.
const DefaultEncoding = "cl100k_base"

// Ensure Tokenizer implements the interface.
var _ driven.Tokenizer = (*Tokenizer)(nil)

// Tokenizer counts tokens with a tiktoken encoding.
// The encoding is loaded on first use; tiktoken-go may download the BPE
// ranks, so load failures surface as domain.ErrTokenizerUnavailable.
type Tokenizer struct {
	encoding string

	once sync.Once
	enc  *tiktoken.Tiktoken
	err  error
}

// New creates a tokenizer for the named encoding ("" = cl100k_base).
func New(encoding string) *Tokenizer {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	return &Tokenizer{encoding: encoding}
}

// Encoding returns the encoding name.
func (t *Tokenizer) Encoding() string {
	return t.encoding
}

// CountTokens returns the number of tokens in text.
func (t *Tokenizer) CountTokens(text string) (int, error) {
	enc, err := t.load()
	if err != nil {
		return 0, err
	}
	if text == "" {
		return 0, nil
	}
	return len(enc.Encode(text, nil, nil)), nil
}

func (t *Tokenizer) load() (*tiktoken.Tiktoken, error) {
	t.once.Do(func() {
		enc, err := tiktoken.GetEncoding(t.encoding)
		if err != nil {
			t.err = fmt.Errorf("%w: load encoding %s: %w", domain.ErrTokenizerUnavailable, t.encoding, err)
			return
		}
		t.enc = enc
	})
	return t.enc, t.err
}

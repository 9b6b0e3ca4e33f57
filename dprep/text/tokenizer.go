package text

import (
	"strings"
)

// Tokenizer splits cleaned text into an ordered token sequence
type Tokenizer interface {
	Tokenize(text string) []string
}

// Whitespace splits on runs of IsSpace runes and never yields empty tokens.
type Whitespace struct{}

var _ Tokenizer = Whitespace{}

// Tokenize returns the IsSpace separated fields of text. Empty input yields an
// empty, non-nil slice.
func (Whitespace) Tokenize(text string) []string {
	fields := strings.FieldsFunc(text, IsSpace)
	if fields == nil {
		return []string{}
	}
	return fields
}

// TokenizerFunc adapts a plain function to the Tokenizer interface
type TokenizerFunc func(text string) []string

func (f TokenizerFunc) Tokenize(text string) []string { return f(text) }

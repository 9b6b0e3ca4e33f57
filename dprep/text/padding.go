package text

import (
	"strings"

	internal "github.com/ZanzyTHEbar/dialogue-prep/dprep"
	"github.com/ZanzyTHEbar/dialogue-prep/dprep/common"
)

// PadToken is the reserved filler token. Normalize strips '<' and '>', so no cleaned
// token can ever equal it.
var PadToken = internal.DefaultPadToken

// Padder truncates or pads token sequences to a fixed length
type Padder struct {
	MaxLength int
	Token     string
}

// NewPadder validates the length and sentinel token. An empty token selects PadToken.
func NewPadder(maxLength int, token string) (Padder, error) {
	if maxLength < 1 {
		return Padder{}, common.InvalidConfigf("max length must be >= 1, got %d", maxLength)
	}
	if token == "" {
		token = PadToken
	}
	if err := ValidatePadToken(token); err != nil {
		return Padder{}, err
	}
	return Padder{MaxLength: maxLength, Token: token}, nil
}

// Pad returns a new slice of exactly MaxLength tokens: the first MaxLength input tokens
// followed by as many sentinel tokens as needed. The input is never modified.
func (p Padder) Pad(tokens []string) []string {
	out := make([]string, p.MaxLength)
	n := copy(out, tokens)
	for i := n; i < p.MaxLength; i++ {
		out[i] = p.Token
	}
	return out
}

// ValidatePadToken rejects tokens that a cleaned utterance could produce, and tokens the
// whitespace tokenizer would split apart.
func ValidatePadToken(token string) error {
	if token == "" {
		return common.InvalidConfigf("pad token cannot be empty")
	}
	if strings.IndexFunc(token, IsSpace) >= 0 {
		return common.InvalidConfigf("pad token %q contains whitespace", token)
	}
	if Normalize(token) == token {
		return common.InvalidConfigf("pad token %q can collide with cleaned text", token)
	}
	return nil
}

package corpus

import (
	"context"
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/dialogue-prep/dprep/common"
)

// Utterance is one turn of a conversation as supplied by the corpus.
type Utterance struct {
	ID        string
	Speaker   string
	ReplyTo   string
	Timestamp *float64
	Text      string
}

// Conversation is an ordered sequence of utterances. Order defines adjacency.
type Conversation struct {
	ID         string
	Utterances []Utterance
}

// Corpus supplies conversations in a stable order, each with its utterances in a stable
// order. Implementations return ErrCorpusUnavailable when the source cannot be read and
// ErrInvalidInput when an utterance has no usable text.
type Corpus interface {
	Conversations(ctx context.Context) ([]Conversation, error)
}

// Supported on-disk formats
const (
	FormatConvoKit = "convokit"
	FormatJSON     = "json"
)

// Formats lists the accepted values for Open.
func Formats() []string {
	return []string{FormatConvoKit, FormatJSON}
}

// Open returns the loader for format rooted at path.
func Open(format, path string) (Corpus, error) {
	if strings.TrimSpace(path) == "" {
		return nil, common.InvalidConfigf("corpus path cannot be empty")
	}
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatConvoKit:
		return NewConvoKit(path), nil
	case FormatJSON:
		return NewJSONFile(path), nil
	default:
		return nil, common.InvalidConfigf("unknown corpus format %q (want one of %s)", format, strings.Join(Formats(), ", "))
	}
}

// Memory is a corpus backed by an in-memory slice.
type Memory []Conversation

var _ Corpus = Memory(nil)

// Conversations returns a copy of the slice
func (m Memory) Conversations(ctx context.Context) ([]Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]Conversation, len(m))
	for i, c := range m {
		out[i] = Conversation{ID: c.ID, Utterances: append([]Utterance(nil), c.Utterances...)}
	}
	return out, nil
}

// FromTexts builds a single conversation from plain texts, numbering utterances in order.
func FromTexts(id string, texts ...string) Conversation {
	conv := Conversation{ID: id, Utterances: make([]Utterance, len(texts))}
	for i, t := range texts {
		conv.Utterances[i] = Utterance{ID: fmt.Sprintf("%s-%d", id, i), Text: t}
	}
	return conv
}

func unavailable(path string, err error) error {
	return fmt.Errorf("%w: %s: %w", common.ErrCorpusUnavailable, path, err)
}

func missingText(conversationID, utteranceID string) error {
	return common.InvalidInputf("utterance %q in conversation %q has no text", utteranceID, conversationID)
}

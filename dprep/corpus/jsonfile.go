package corpus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/ZanzyTHEbar/dialogue-prep/dprep/common"
)

// JSONFile loads a corpus from a single JSON document of the form
//
//	[{"id": "c1", "utterances": [{"id": "u1", "speaker": "a", "text": "Hi"}]}]
//
// Conversations and utterances keep document order.
type JSONFile struct {
	path string
}

var _ Corpus = (*JSONFile)(nil)

func NewJSONFile(path string) *JSONFile {
	return &JSONFile{path: path}
}

type jsonConversation struct {
	ID         string          `json:"id"`
	Utterances []jsonUtterance `json:"utterances"`
}

type jsonUtterance struct {
	ID        string   `json:"id"`
	Speaker   string   `json:"speaker,omitempty"`
	ReplyTo   string   `json:"reply_to,omitempty"`
	Timestamp *float64 `json:"timestamp,omitempty"`
	Text      *string  `json:"text"`
}

func (j *JSONFile) Conversations(ctx context.Context) ([]Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(j.path)
	if err != nil {
		return nil, unavailable(j.path, err)
	}

	var raw []jsonConversation
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", common.ErrInvalidInput, j.path, err)
	}

	convs := make([]Conversation, 0, len(raw))
	for ci, rc := range raw {
		id := rc.ID
		if id == "" {
			id = fmt.Sprintf("%d", ci)
		}
		conv := Conversation{ID: id, Utterances: make([]Utterance, 0, len(rc.Utterances))}
		for ui, ru := range rc.Utterances {
			uid := ru.ID
			if uid == "" {
				uid = fmt.Sprintf("%s-%d", id, ui)
			}
			if ru.Text == nil {
				return nil, missingText(id, uid)
			}
			conv.Utterances = append(conv.Utterances, Utterance{
				ID:        uid,
				Speaker:   ru.Speaker,
				ReplyTo:   ru.ReplyTo,
				Timestamp: ru.Timestamp,
				Text:      *ru.Text,
			})
		}
		convs = append(convs, conv)
	}

	slog.Debug("Loaded JSON corpus", "path", j.path, "conversations", len(convs))
	return convs, nil
}

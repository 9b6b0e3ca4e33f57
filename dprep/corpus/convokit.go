package corpus

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/ZanzyTHEbar/dialogue-prep/dprep/common"

	"github.com/armon/go-radix"
)

// UtterancesFile is the file name ConvoKit uses for utterance records.
const UtterancesFile = "utterances.jsonl"

const maxLineBytes = 16 << 20

// ConvoKit loads a ConvoKit-style corpus directory (or its utterances.jsonl directly).
// Conversations are returned in lexicographic ID order.
type ConvoKit struct {
	path string
}

var _ Corpus = (*ConvoKit)(nil)

func NewConvoKit(path string) *ConvoKit {
	return &ConvoKit{path: path}
}

type convoKitRecord struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Speaker        string    `json:"speaker"`
	ReplyTo        *string   `json:"reply_to"`
	Timestamp      timestamp `json:"timestamp"`
	Text           *string   `json:"text"`
}

// timestamp accepts numbers, numeric strings and null.
type timestamp struct {
	value *float64
}

func (ts *timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		ts.value = nil
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			ts.value = nil
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("timestamp %q: %w", s, err)
		}
		ts.value = &f
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	ts.value = &f
	return nil
}

func (c *ConvoKit) file() string {
	if fi, err := os.Stat(c.path); err == nil && fi.IsDir() {
		return filepath.Join(c.path, UtterancesFile)
	}
	return c.path
}

func (c *ConvoKit) Conversations(ctx context.Context) ([]Conversation, error) {
	path := c.file()
	f, err := os.Open(path)
	if err != nil {
		return nil, unavailable(path, err)
	}
	defer f.Close()

	index := NewConversationIndex()
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	line := 0
	for scanner.Scan() {
		line++
		if line%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var rec convoKitRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("%w: %s line %d: %w", common.ErrInvalidInput, path, line, err)
		}
		if rec.ConversationID == "" {
			return nil, common.InvalidInputf("%s line %d: utterance %q has no conversation_id", path, line, rec.ID)
		}
		if rec.Text == nil {
			return nil, missingText(rec.ConversationID, rec.ID)
		}
		u := Utterance{
			ID:        rec.ID,
			Speaker:   rec.Speaker,
			Timestamp: rec.Timestamp.value,
			Text:      *rec.Text,
		}
		if rec.ReplyTo != nil {
			u.ReplyTo = *rec.ReplyTo
		}
		index.Add(rec.ConversationID, u)
	}
	if err := scanner.Err(); err != nil {
		return nil, unavailable(path, err)
	}

	convs := index.Conversations()
	slog.Debug("Loaded ConvoKit corpus", "path", path, "lines", line, "conversations", len(convs))
	return convs, nil
}

// ConversationIndex groups utterances by conversation ID in a radix tree so that
// conversations come back in sorted ID order regardless of input order.
type ConversationIndex struct {
	tree *radix.Tree
}

func NewConversationIndex() *ConversationIndex {
	return &ConversationIndex{tree: radix.New()}
}

// Add appends u to the conversation's utterances in arrival order.
func (idx *ConversationIndex) Add(conversationID string, u Utterance) {
	if v, ok := idx.tree.Get(conversationID); ok {
		conv := v.(*Conversation)
		conv.Utterances = append(conv.Utterances, u)
		return
	}
	idx.tree.Insert(conversationID, &Conversation{ID: conversationID, Utterances: []Utterance{u}})
}

// Len reports the number of conversations
func (idx *ConversationIndex) Len() int {
	return idx.tree.Len()
}

// Conversations returns every conversation in sorted ID order with its utterances put
// in conversational order.
func (idx *ConversationIndex) Conversations() []Conversation {
	out := make([]Conversation, 0, idx.tree.Len())
	idx.tree.Walk(func(_ string, v interface{}) bool {
		conv := v.(*Conversation)
		out = append(out, Conversation{ID: conv.ID, Utterances: orderUtterances(conv.Utterances)})
		return false
	})
	return out
}

// orderUtterances follows the reply_to chain when it is a single linear thread covering
// every utterance. Otherwise it sorts by timestamp when all utterances carry one, and
// keeps arrival order when they do not.
func orderUtterances(utts []Utterance) []Utterance {
	if len(utts) < 2 {
		return utts
	}
	if chain, ok := replyChain(utts); ok {
		return chain
	}
	for _, u := range utts {
		if u.Timestamp == nil {
			return utts
		}
	}
	sorted := append([]Utterance(nil), utts...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return *sorted[i].Timestamp < *sorted[j].Timestamp
	})
	return sorted
}

func replyChain(utts []Utterance) ([]Utterance, bool) {
	byID := make(map[string]int, len(utts))
	for i, u := range utts {
		if u.ID == "" {
			return nil, false
		}
		if _, dup := byID[u.ID]; dup {
			return nil, false
		}
		byID[u.ID] = i
	}

	root := -1
	child := make(map[int]int, len(utts))
	for i, u := range utts {
		parent, ok := byID[u.ReplyTo]
		if u.ReplyTo == "" || !ok {
			if root >= 0 {
				return nil, false
			}
			root = i
			continue
		}
		if _, taken := child[parent]; taken {
			return nil, false
		}
		child[parent] = i
	}
	if root < 0 {
		return nil, false
	}

	out := make([]Utterance, 0, len(utts))
	for cur, ok := root, true; ok; cur, ok = child[cur] {
		out = append(out, utts[cur])
		if len(out) > len(utts) {
			return nil, false
		}
	}
	if len(out) != len(utts) {
		return nil, false
	}
	return out, true
}

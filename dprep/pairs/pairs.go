package pairs

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/ZanzyTHEbar/dialogue-prep/dprep/text"
)

// Turn is a prepared utterance: cleaned text and the tokens derived from it.
// Turns are built once per utterance and never mutated afterwards.
type Turn struct {
	UtteranceID string
	Text        string
	Tokens      []string
}

// Thread is a conversation whose utterances have been prepared, in conversational order.
type Thread struct {
	ConversationID string
	Turns          []Turn
}

// Pair is an (input, response) token sequence tuple. It encodes as the JSON array
// [source, target].
type Pair struct {
	Source []string
	Target []string
}

func (p Pair) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	// keep the sentinel readable as "<PAD>" rather than "\u003cPAD\u003e"
	enc.SetEscapeHTML(false)
	if err := enc.Encode([2][]string{nonNil(p.Source), nonNil(p.Target)}); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func (p *Pair) UnmarshalJSON(data []byte) error {
	var sides [][]string
	if err := json.Unmarshal(data, &sides); err != nil {
		return err
	}
	if len(sides) != 2 {
		return fmt.Errorf("pair must have exactly 2 sides, got %d", len(sides))
	}
	p.Source = nonNil(sides[0])
	p.Target = nonNil(sides[1])
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// ExtractThread returns the n-1 adjacent pairs of a thread with n turns.
// Threads with fewer than two turns yield no pairs.
func ExtractThread(th Thread) []Pair {
	if len(th.Turns) < 2 {
		return nil
	}
	out := make([]Pair, 0, len(th.Turns)-1)
	for i := 0; i+1 < len(th.Turns); i++ {
		out = append(out, Pair{Source: th.Turns[i].Tokens, Target: th.Turns[i+1].Tokens})
	}
	return out
}

// Extract concatenates the pairs of every thread in thread order, then turn order.
// No pair links turns of different threads.
func Extract(threads []Thread) []Pair {
	total := 0
	for _, th := range threads {
		if n := len(th.Turns); n > 1 {
			total += n - 1
		}
	}
	out := make([]Pair, 0, total)
	for _, th := range threads {
		out = append(out, ExtractThread(th)...)
	}
	return out
}

// PadAll returns new pairs with both sides padded or truncated by padder.
func PadAll(ps []Pair, padder text.Padder) []Pair {
	out := make([]Pair, len(ps))
	for i, p := range ps {
		out[i] = Pair{Source: padder.Pad(p.Source), Target: padder.Pad(p.Target)}
	}
	return out
}

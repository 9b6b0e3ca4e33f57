package stats

import (
	"testing"

	"github.com/ZanzyTHEbar/dialogue-prep/dprep/pairs"

	"github.com/stretchr/testify/assert"
)

func turn(tokens ...string) pairs.Turn {
	return pairs.Turn{Tokens: tokens}
}

func TestSummarize(t *testing.T) {
	threads := []pairs.Thread{
		{ConversationID: "a", Turns: []pairs.Turn{turn("a", "b"), turn("c", "d", "e", "f")}},
		{ConversationID: "b", Turns: []pairs.Turn{turn()}},
	}
	ps := pairs.Extract(threads)

	s := Summarize(threads, ps, 3)
	assert.Equal(t, 2, s.Conversations)
	assert.Equal(t, 3, s.Utterances)
	assert.Equal(t, 1, s.Pairs)
	assert.Equal(t, 1, s.EmptyUtterances)
	assert.Equal(t, 1, s.TruncatedSides)
	assert.Equal(t, 1, s.PaddedSides)

	assert.InDelta(t, 2.0, s.Tokens.Mean, 1e-9)
	assert.InDelta(t, 2.0, s.Tokens.StdDev, 1e-9)
	assert.Equal(t, 4, s.Tokens.Max)
	assert.InDelta(t, 2.0, s.Tokens.P50, 1e-9)
	assert.InDelta(t, 4.0, s.Tokens.P95, 1e-9)
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil, nil, 10)
	assert.Equal(t, Summary{}, s)
}

func TestSummarizeSkipsTruncationWithoutLength(t *testing.T) {
	threads := []pairs.Thread{{Turns: []pairs.Turn{turn("a"), turn("b")}}}
	s := Summarize(threads, pairs.Extract(threads), 0)
	assert.Zero(t, s.TruncatedSides)
	assert.Zero(t, s.PaddedSides)
	assert.Zero(t, s.Tokens.StdDev)
}

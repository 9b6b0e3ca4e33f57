package pipeline

import (
	"context"
	"runtime"
	"unicode/utf8"

	"github.com/ZanzyTHEbar/dialogue-prep/dprep/common"
	"github.com/ZanzyTHEbar/dialogue-prep/dprep/corpus"
	"github.com/ZanzyTHEbar/dialogue-prep/dprep/pairs"
	"github.com/ZanzyTHEbar/dialogue-prep/dprep/text"

	"github.com/sourcegraph/conc/pool"
)

// DefaultWorkers is the worker count used when Options.Workers is 0.
func DefaultWorkers() int {
	return min(max(runtime.NumCPU(), 1), 16)
}

// Prepare validates, normalizes and tokenizes every utterance, returning one thread per
// conversation in corpus order. Each utterance is tokenized exactly once.
// Conversations are processed on up to workers goroutines; results are placed by index
// so the output order never depends on scheduling.
func Prepare(ctx context.Context, convs []corpus.Conversation, tok text.Tokenizer, workers int) ([]pairs.Thread, error) {
	if tok == nil {
		tok = text.Whitespace{}
	}
	threads := make([]pairs.Thread, len(convs))

	if workers <= 1 || len(convs) < 2 {
		for i, conv := range convs {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			th, err := prepareConversation(conv, tok)
			if err != nil {
				return nil, err
			}
			threads[i] = th
		}
		return threads, nil
	}

	p := pool.New().
		WithMaxGoroutines(min(workers, len(convs))).
		WithContext(ctx).
		WithCancelOnError().
		WithFirstError()
	for i, conv := range convs {
		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			th, err := prepareConversation(conv, tok)
			if err != nil {
				return err
			}
			threads[i] = th
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}
	return threads, nil
}

func prepareConversation(conv corpus.Conversation, tok text.Tokenizer) (pairs.Thread, error) {
	th := pairs.Thread{ConversationID: conv.ID, Turns: make([]pairs.Turn, len(conv.Utterances))}
	for i, u := range conv.Utterances {
		if !utf8.ValidString(u.Text) {
			return pairs.Thread{}, common.InvalidInputf("utterance %q in conversation %q is not valid UTF-8", u.ID, conv.ID)
		}
		cleaned := text.Normalize(u.Text)
		th.Turns[i] = pairs.Turn{
			UtteranceID: u.ID,
			Text:        cleaned,
			Tokens:      tok.Tokenize(cleaned),
		}
	}
	return th, nil
}

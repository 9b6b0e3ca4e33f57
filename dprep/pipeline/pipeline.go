package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/dialogue-prep/dprep/common"
	"github.com/ZanzyTHEbar/dialogue-prep/dprep/corpus"
	"github.com/ZanzyTHEbar/dialogue-prep/dprep/dataset"
	"github.com/ZanzyTHEbar/dialogue-prep/dprep/pairs"
	"github.com/ZanzyTHEbar/dialogue-prep/dprep/split"
	"github.com/ZanzyTHEbar/dialogue-prep/dprep/stats"
	"github.com/ZanzyTHEbar/dialogue-prep/dprep/store"
	"github.com/ZanzyTHEbar/dialogue-prep/dprep/text"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Recorder persists the manifest of a finished run.
type Recorder interface {
	Record(ctx context.Context, run store.Run) error
}

// Options configures a Runner.
type Options struct {
	MaxLength       int
	PadToken        string
	HeldOutFraction float64
	// Seed fixes the train/validation shuffle; nil keeps it random.
	Seed *uint64
	// Workers bounds preparation concurrency. 0 selects DefaultWorkers, 1 runs inline.
	Workers int

	OutputPath string
	// SplitFiles also writes the train and validation lists next to OutputPath.
	SplitFiles bool
	Indent     bool

	// Tokenizer defaults to text.Whitespace.
	Tokenizer text.Tokenizer
	// Recorder, when set, receives the run manifest after the output is written.
	Recorder Recorder
	// Logger defaults to a disabled logger.
	Logger *zerolog.Logger

	// CorpusFormat and CorpusPath are only copied into the manifest.
	CorpusFormat string
	CorpusPath   string
}

// Result is everything a run produced.
type Result struct {
	RunID   uuid.UUID
	Pairs   []pairs.Pair
	Dataset *split.Dataset
	Summary stats.Summary

	OutputPath     string
	TrainPath      string
	ValidationPath string
}

// Runner executes the preprocessing pipeline:
// load -> prepare -> extract -> pad -> split -> write -> record.
type Runner struct {
	opts   Options
	padder text.Padder
	log    zerolog.Logger
}

// New validates opts and returns a Runner.
func New(opts Options) (*Runner, error) {
	padder, err := text.NewPadder(opts.MaxLength, opts.PadToken)
	if err != nil {
		return nil, err
	}
	if _, _, err := split.Sizes(0, opts.HeldOutFraction); err != nil {
		return nil, err
	}
	if strings.TrimSpace(opts.OutputPath) == "" {
		return nil, common.InvalidConfigf("output path cannot be empty")
	}
	if opts.Workers < 0 {
		return nil, common.InvalidConfigf("workers cannot be negative, got %d", opts.Workers)
	}
	if opts.Workers == 0 {
		opts.Workers = DefaultWorkers()
	}
	if opts.Tokenizer == nil {
		opts.Tokenizer = text.Whitespace{}
	}
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}
	return &Runner{opts: opts, padder: padder, log: log}, nil
}

// Run drives src through every stage. Any stage error aborts the run; nothing is
// retried.
func (r *Runner) Run(ctx context.Context, src corpus.Corpus) (*Result, error) {
	started := time.Now()
	res := &Result{RunID: uuid.New(), OutputPath: r.opts.OutputPath}
	log := r.log.With().Str("run_id", res.RunID.String()).Logger()

	convs, err := src.Conversations(ctx)
	if err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}
	log.Debug().Int("conversations", len(convs)).Msg("corpus loaded")

	threads, err := Prepare(ctx, convs, r.opts.Tokenizer, r.opts.Workers)
	if err != nil {
		return nil, fmt.Errorf("prepare utterances: %w", err)
	}

	raw := pairs.Extract(threads)
	res.Summary = stats.Summarize(threads, raw, r.padder.MaxLength)
	log.Info().
		Int("conversations", res.Summary.Conversations).
		Int("utterances", res.Summary.Utterances).
		Int("pairs", res.Summary.Pairs).
		Float64("mean_tokens", res.Summary.Tokens.Mean).
		Int("truncated_sides", res.Summary.TruncatedSides).
		Msg("pairs extracted")

	res.Pairs = pairs.PadAll(raw, r.padder)

	res.Dataset, err = split.Split(res.Pairs, split.Options{
		HeldOutFraction: r.opts.HeldOutFraction,
		Seed:            r.opts.Seed,
	})
	if err != nil {
		return nil, fmt.Errorf("split dataset: %w", err)
	}
	log.Debug().
		Int("train", len(res.Dataset.Train)).
		Int("validation", len(res.Dataset.Validation)).
		Bool("seeded", r.opts.Seed != nil).
		Msg("dataset split")

	if err := r.write(ctx, res); err != nil {
		return nil, err
	}

	if r.opts.Recorder != nil {
		if err := r.opts.Recorder.Record(ctx, r.manifest(res, started)); err != nil {
			return nil, fmt.Errorf("record run: %w", err)
		}
		log.Debug().Msg("run recorded")
	}

	log.Info().
		Str("output", res.OutputPath).
		Dur("elapsed", time.Since(started)).
		Msg("preprocessing complete")
	return res, nil
}

func (r *Runner) write(ctx context.Context, res *Result) error {
	wopts := dataset.WriteOptions{Indent: r.opts.Indent}
	if err := dataset.Write(ctx, res.OutputPath, res.Pairs, wopts); err != nil {
		return err
	}
	if !r.opts.SplitFiles {
		return nil
	}
	train, val := dataset.SplitPaths(res.OutputPath)
	if err := dataset.Write(ctx, train, res.Dataset.Train, wopts); err != nil {
		return err
	}
	if err := dataset.Write(ctx, val, res.Dataset.Validation, wopts); err != nil {
		return err
	}
	res.TrainPath, res.ValidationPath = train, val
	return nil
}

func (r *Runner) manifest(res *Result, started time.Time) store.Run {
	return store.Run{
		ID:              res.RunID,
		StartedAt:       started,
		FinishedAt:      time.Now(),
		CorpusFormat:    r.opts.CorpusFormat,
		CorpusPath:      r.opts.CorpusPath,
		OutputPath:      res.OutputPath,
		MaxLength:       r.padder.MaxLength,
		HeldOutFraction: r.opts.HeldOutFraction,
		Seed:            r.opts.Seed,
		Pairs:           len(res.Pairs),
		Train:           len(res.Dataset.Train),
		Validation:      len(res.Dataset.Validation),
		ValidationIndex: res.Dataset.ValidationIndex,
		Summary:         res.Summary,
	}
}

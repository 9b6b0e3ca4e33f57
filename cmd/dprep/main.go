package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	internal "github.com/ZanzyTHEbar/dialogue-prep/dprep"
	"github.com/ZanzyTHEbar/dialogue-prep/dprep/common"
	"github.com/ZanzyTHEbar/dialogue-prep/dprep/config"
	"github.com/ZanzyTHEbar/dialogue-prep/dprep/corpus"
	"github.com/ZanzyTHEbar/dialogue-prep/dprep/dataset"
	"github.com/ZanzyTHEbar/dialogue-prep/dprep/pairs"
	"github.com/ZanzyTHEbar/dialogue-prep/dprep/pipeline"
	"github.com/ZanzyTHEbar/dialogue-prep/dprep/split"
	"github.com/ZanzyTHEbar/dialogue-prep/dprep/store"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

// flag name -> config key
var overrideKeys = map[string]string{
	"corpus":      "corpus.path",
	"format":      "corpus.format",
	"output":      "output.path",
	"max-length":  "pipeline.maxLength",
	"pad-token":   "pipeline.padToken",
	"workers":     "pipeline.workers",
	"held-out":    "split.heldOutFraction",
	"seed":        "split.seed",
	"split-files": "output.splitFiles",
	"indent":      "output.indent",
	"store-dsn":   "store.dsn",
	"log-level":   "log.level",
	"pretty":      "log.pretty",
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := pflag.NewFlagSet(internal.DefaultAppName, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.StringP("config", "c", "", "config file (default searches ./config.yaml, /etc/dprep, ~/.config/dprep)")
	fs.String("corpus", "", "corpus directory or file")
	fs.String("format", internal.DefaultCorpusFormat, "corpus format: convokit or json")
	fs.StringP("output", "o", internal.DefaultOutputPath, "output dataset path")
	fs.Int("max-length", internal.DefaultMaxLength, "tokens per pair side after padding")
	fs.String("pad-token", internal.DefaultPadToken, "padding sentinel token")
	fs.Int("workers", 0, "preparation workers (0 selects a default)")
	fs.Float64("held-out", internal.DefaultHeldOutFraction, "validation fraction in [0, 1]")
	fs.Int64("seed", 0, "split seed; unset draws a fresh split")
	fs.Bool("split-files", true, "also write <output>.train and <output>.validation files")
	fs.Bool("indent", false, "indent the output JSON")
	fs.String("store-dsn", "", "libsql DSN for the run store; empty disables it")
	fs.String("log-level", internal.DefaultLogLevel, "log level")
	fs.Bool("pretty", false, "human readable console logs")
	listRuns := fs.Bool("list-runs", false, "list runs recorded in the store and exit")
	showRun := fs.String("show-run", "", "print the run with this ID from the store and exit")
	restoreSplit := fs.Bool("restore-split", false, "with --show-run, rewrite the run's train and validation files from its stored held-out index")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if fs.NArg() > 1 {
		fmt.Fprintf(stderr, "at most one corpus path argument, got %d\n", fs.NArg())
		return exitUsage
	}

	overrides := make(map[string]any)
	fs.Visit(func(f *pflag.Flag) {
		if key, ok := overrideKeys[f.Name]; ok {
			overrides[key] = f.Value.String()
		}
	})
	if fs.NArg() == 1 {
		overrides["corpus.path"] = fs.Arg(0)
	}

	cfg, err := config.LoadConfig(*configPath, overrides)
	if err != nil {
		fmt.Fprintf(stderr, "load config: %v\n", err)
		return exitUsage
	}
	logger := internal.NewLogger(stderr, cfg.Log.Level, cfg.Log.Pretty)

	if *listRuns {
		return listStoredRuns(ctx, cfg, stdout, logger)
	}
	if *showRun != "" {
		return showStoredRun(ctx, cfg, *showRun, *restoreSplit, stdout, logger)
	}
	if *restoreSplit {
		logger.Error().Msg("--restore-split requires --show-run")
		return exitUsage
	}

	if err := cfg.Validate(); err != nil {
		logger.Error().Err(err).Msg("invalid configuration")
		return exitUsage
	}

	src, err := corpus.Open(cfg.Corpus.Format, cfg.Corpus.Path)
	if err != nil {
		logger.Error().Err(err).Msg("open corpus")
		return exitUsage
	}

	opts := pipeline.Options{
		MaxLength:       cfg.Pipeline.MaxLength,
		PadToken:        cfg.Pipeline.PadToken,
		HeldOutFraction: cfg.Split.HeldOutFraction,
		Seed:            cfg.SplitSeed(),
		Workers:         cfg.Pipeline.Workers,
		OutputPath:      cfg.Output.Path,
		SplitFiles:      cfg.Output.SplitFiles,
		Indent:          cfg.Output.Indent,
		Logger:          &logger,
		CorpusFormat:    cfg.Corpus.Format,
		CorpusPath:      cfg.Corpus.Path,
	}
	if cfg.Store.DSN != "" {
		runs, err := store.Open(ctx, cfg.Store.DSN)
		if err != nil {
			logger.Error().Err(err).Str("dsn", cfg.Store.DSN).Msg("open run store")
			return exitFailure
		}
		defer runs.Close()
		opts.Recorder = runs
	}

	runner, err := pipeline.New(opts)
	if err != nil {
		logger.Error().Err(err).Msg("invalid pipeline options")
		return exitUsage
	}

	res, err := runner.Run(ctx, src)
	if err != nil {
		logger.Error().Err(err).Msg("preprocessing failed")
		if errors.Is(err, common.ErrInvalidConfig) {
			return exitUsage
		}
		return exitFailure
	}

	fmt.Fprintf(stdout, "run %s: %d pairs (%d train, %d validation) written to %s\n",
		res.RunID, len(res.Pairs), len(res.Dataset.Train), len(res.Dataset.Validation), res.OutputPath)
	return exitOK
}

func openStore(ctx context.Context, cfg *config.Config, flag string, logger zerolog.Logger) (*store.RunStore, int) {
	if cfg.Store.DSN == "" {
		logger.Error().Msgf("--%s requires store.dsn", flag)
		return nil, exitUsage
	}
	runs, err := store.Open(ctx, cfg.Store.DSN)
	if err != nil {
		logger.Error().Err(err).Str("dsn", cfg.Store.DSN).Msg("open run store")
		return nil, exitFailure
	}
	return runs, exitOK
}

func listStoredRuns(ctx context.Context, cfg *config.Config, stdout io.Writer, logger zerolog.Logger) int {
	runs, code := openStore(ctx, cfg, "list-runs", logger)
	if runs == nil {
		return code
	}
	defer runs.Close()

	list, err := runs.List(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("list runs")
		return exitFailure
	}
	for _, r := range list {
		printRun(stdout, r)
	}
	return exitOK
}

func printRun(w io.Writer, r store.Run) {
	fmt.Fprintf(w, "%s\t%s\t%d pairs\t%d train\t%d validation\t%s\n",
		r.ID, r.StartedAt.Format("2006-01-02T15:04:05Z07:00"), r.Pairs, r.Train, r.Validation, r.OutputPath)
}

func showStoredRun(ctx context.Context, cfg *config.Config, rawID string, restore bool, stdout io.Writer, logger zerolog.Logger) int {
	id, err := uuid.Parse(rawID)
	if err != nil {
		logger.Error().Err(err).Str("id", rawID).Msg("invalid run id")
		return exitUsage
	}
	runs, code := openStore(ctx, cfg, "show-run", logger)
	if runs == nil {
		return code
	}
	defer runs.Close()

	rec, err := runs.Get(ctx, id)
	if err != nil {
		logger.Error().Err(err).Msg("get run")
		return exitFailure
	}
	printRun(stdout, *rec)
	seed := "none"
	if rec.Seed != nil {
		seed = strconv.FormatUint(*rec.Seed, 10)
	}
	fmt.Fprintf(stdout, "corpus %s (%s), max length %d, held out %v, seed %s, mean tokens %.2f\n",
		rec.CorpusPath, rec.CorpusFormat, rec.MaxLength, rec.HeldOutFraction, seed, rec.Summary.Tokens.Mean)
	if !restore {
		return exitOK
	}

	ps, err := dataset.Read(rec.OutputPath)
	if err != nil {
		logger.Error().Err(err).Msg("read run output")
		return exitFailure
	}
	if len(ps) != rec.Pairs {
		logger.Error().Int("recorded", rec.Pairs).Int("found", len(ps)).Msg("run output changed since it was recorded")
		return exitFailure
	}
	ds, err := split.Reconstruct(ps, rec.ValidationIndex)
	if err != nil {
		logger.Error().Err(err).Msg("rebuild split")
		return exitFailure
	}
	train, val := dataset.SplitPaths(rec.OutputPath)
	wopts := dataset.WriteOptions{Indent: cfg.Output.Indent}
	for path, part := range map[string][]pairs.Pair{train: ds.Train, val: ds.Validation} {
		if err := dataset.Write(ctx, path, part, wopts); err != nil {
			logger.Error().Err(err).Msg("restore split")
			return exitFailure
		}
	}
	fmt.Fprintf(stdout, "restored %d train, %d validation to %s, %s\n", len(ds.Train), len(ds.Validation), train, val)
	return exitOK
}

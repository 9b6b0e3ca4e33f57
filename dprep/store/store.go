package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/dialogue-prep/dprep/split"
	"github.com/ZanzyTHEbar/dialogue-prep/dprep/stats"

	roaring "github.com/RoaringBitmap/roaring"
	"github.com/google/uuid"
	_ "github.com/tursodatabase/go-libsql"
)

// ErrRunNotFound is returned by Get for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// Run is the manifest of one pipeline execution.
type Run struct {
	ID              uuid.UUID
	StartedAt       time.Time
	FinishedAt      time.Time
	CorpusFormat    string
	CorpusPath      string
	OutputPath      string
	MaxLength       int
	HeldOutFraction float64
	Seed            *uint64
	Pairs           int
	Train           int
	Validation      int
	ValidationIndex *roaring.Bitmap
	Summary         stats.Summary
}

// timeLayout is fixed width so that text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// RunStore persists run manifests in a libsql database.
type RunStore struct {
	db *sql.DB
}

const schema = `CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY UNIQUE,
	started_at TEXT NOT NULL,
	finished_at TEXT NOT NULL,
	corpus_format TEXT,
	corpus_path TEXT,
	output_path TEXT NOT NULL,
	max_length INTEGER NOT NULL,
	held_out_fraction REAL NOT NULL,
	seed TEXT,
	pairs INTEGER NOT NULL,
	train INTEGER NOT NULL,
	validation INTEGER NOT NULL,
	validation_index BLOB,
	summary TEXT
)`

// Open connects to dsn and creates the schema if needed. A bare path is treated as a
// local database file.
func Open(ctx context.Context, dsn string) (*RunStore, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("store dsn cannot be empty")
	}
	if !strings.Contains(dsn, ":") {
		dsn = "file:" + dsn
	}

	db, err := sql.Open("libsql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open run store: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create runs table: %w", err)
	}
	slog.Debug("Run store ready", "dsn", dsn)
	return &RunStore{db: db}, nil
}

func (s *RunStore) Close() error {
	return s.db.Close()
}

// Record inserts a run manifest.
func (s *RunStore) Record(ctx context.Context, run Run) error {
	if run.ID == uuid.Nil {
		return fmt.Errorf("run id cannot be empty")
	}
	index, err := split.EncodeIndex(run.ValidationIndex)
	if err != nil {
		return err
	}
	summary, err := json.Marshal(run.Summary)
	if err != nil {
		return fmt.Errorf("error marshalling run summary: %w", err)
	}
	var seed sql.NullString
	if run.Seed != nil {
		seed = sql.NullString{String: strconv.FormatUint(*run.Seed, 10), Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO runs (
		id, started_at, finished_at, corpus_format, corpus_path, output_path,
		max_length, held_out_fraction, seed, pairs, train, validation,
		validation_index, summary
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID.String(),
		run.StartedAt.UTC().Format(timeLayout),
		run.FinishedAt.UTC().Format(timeLayout),
		run.CorpusFormat,
		run.CorpusPath,
		run.OutputPath,
		run.MaxLength,
		run.HeldOutFraction,
		seed,
		run.Pairs,
		run.Train,
		run.Validation,
		index,
		string(summary),
	)
	if err != nil {
		return fmt.Errorf("error inserting run %s: %w", run.ID, err)
	}
	return nil
}

const selectRuns = `SELECT id, started_at, finished_at, corpus_format, corpus_path, output_path,
	max_length, held_out_fraction, seed, pairs, train, validation, validation_index, summary
	FROM runs`

// Get returns the run with the given ID.
func (s *RunStore) Get(ctx context.Context, id uuid.UUID) (*Run, error) {
	row := s.db.QueryRowContext(ctx, selectRuns+" WHERE id = ?", id.String())
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// List returns every run, most recent first.
func (s *RunStore) List(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, selectRuns+" ORDER BY started_at DESC")
	if err != nil {
		return nil, fmt.Errorf("error querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*Run, error) {
	var (
		run                Run
		id, started, ended string
		format, corpus     sql.NullString
		seed, summary      sql.NullString
		index              []byte
	)
	err := sc.Scan(&id, &started, &ended, &format, &corpus, &run.OutputPath,
		&run.MaxLength, &run.HeldOutFraction, &seed, &run.Pairs, &run.Train, &run.Validation,
		&index, &summary)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("error scanning run: %w", err)
	}

	if run.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("error parsing run id %q: %w", id, err)
	}
	if run.StartedAt, err = time.Parse(timeLayout, started); err != nil {
		return nil, fmt.Errorf("error parsing time: %w", err)
	}
	if run.FinishedAt, err = time.Parse(timeLayout, ended); err != nil {
		return nil, fmt.Errorf("error parsing time: %w", err)
	}
	run.CorpusFormat = format.String
	run.CorpusPath = corpus.String
	if seed.Valid {
		v, err := strconv.ParseUint(seed.String, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("error parsing seed %q: %w", seed.String, err)
		}
		run.Seed = &v
	}
	if run.ValidationIndex, err = split.DecodeIndex(index); err != nil {
		return nil, err
	}
	if summary.Valid && summary.String != "" {
		if err := json.Unmarshal([]byte(summary.String), &run.Summary); err != nil {
			return nil, fmt.Errorf("error unmarshalling run summary: %w", err)
		}
	}
	return &run, nil
}

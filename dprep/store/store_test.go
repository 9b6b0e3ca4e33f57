package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ZanzyTHEbar/dialogue-prep/dprep/stats"

	roaring "github.com/RoaringBitmap/roaring"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *RunStore {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Skipf("libsql driver unavailable: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRun(started time.Time, seed *uint64) Run {
	held := roaring.New()
	held.AddMany([]uint32{1, 4, 7})
	return Run{
		ID:              uuid.New(),
		StartedAt:       started,
		FinishedAt:      started.Add(1500 * time.Millisecond),
		CorpusFormat:    "convokit",
		CorpusPath:      "/data/movie-corpus",
		OutputPath:      "preprocessed_data.json",
		MaxLength:       10,
		HeldOutFraction: 0.2,
		Seed:            seed,
		Pairs:           15,
		Train:           12,
		Validation:      3,
		ValidationIndex: held,
		Summary: stats.Summary{
			Conversations: 4,
			Utterances:    19,
			Pairs:         15,
			Tokens:        stats.Lengths{Mean: 6.5, StdDev: 2.25, P50: 6, P95: 12, Max: 14},
		},
	}
}

func TestRecordAndGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	seed := uint64(1<<63 + 5)
	run := sampleRun(time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC), &seed)
	require.NoError(t, s.Record(ctx, run))

	got, err := s.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.True(t, run.StartedAt.Equal(got.StartedAt))
	assert.True(t, run.FinishedAt.Equal(got.FinishedAt))
	assert.Equal(t, run.CorpusPath, got.CorpusPath)
	assert.Equal(t, run.OutputPath, got.OutputPath)
	assert.Equal(t, run.MaxLength, got.MaxLength)
	assert.InDelta(t, run.HeldOutFraction, got.HeldOutFraction, 1e-12)
	require.NotNil(t, got.Seed)
	assert.Equal(t, seed, *got.Seed)
	assert.Equal(t, []int{15, 12, 3}, []int{got.Pairs, got.Train, got.Validation})
	assert.True(t, run.ValidationIndex.Equals(got.ValidationIndex))
	assert.Equal(t, run.Summary, got.Summary)
}

func TestGetUnknown(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestListNewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	older := sampleRun(base, nil)
	newer := sampleRun(base.Add(time.Hour), nil)
	require.NoError(t, s.Record(ctx, older))
	require.NoError(t, s.Record(ctx, newer))

	runs, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, newer.ID, runs[0].ID)
	assert.Equal(t, older.ID, runs[1].ID)
	assert.Nil(t, runs[1].Seed)
}

func TestRecordRejectsDuplicateAndNilID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	run := sampleRun(time.Now(), nil)
	require.NoError(t, s.Record(ctx, run))
	assert.Error(t, s.Record(ctx, run))

	run.ID = uuid.Nil
	assert.Error(t, s.Record(ctx, run))
}

func TestOpenRejectsEmptyDSN(t *testing.T) {
	_, err := Open(context.Background(), "  ")
	assert.Error(t, err)
}

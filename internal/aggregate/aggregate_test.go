package aggregate

import (
	"context"
	"encoding/csv"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func writeShard(t *testing.T, dir, name string, rows [][]string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	w := csv.NewWriter(f)
	require.NoError(t, w.WriteAll(rows))
	w.Flush()
	require.NoError(t, w.Error())
	return path
}

var enrolmentHeader = []string{"date", "state", "district", "age_0_5", "age_5_17", "age_18_greater"}

// dirtyDataset writes two shards mixing date formats, state spellings,
// corrupt numerics, and rows that must be dropped.
func dirtyDataset(t *testing.T, dir string) {
	t.Helper()
	writeShard(t, dir, "shard_aa.csv", [][]string{
		enrolmentHeader,
		{"03-04-2011", "Uttar Pradesh", "lucknow", "10", "20", "30"},
		{"2011-04-03", "UTTAR PRADESH!", "Lucknow", "1", "2", "3"},
		{"03/04/2011", "uttar  pradesh", "LUCKNOW ", "4", "n/a", "6"},
		{"03-04-2011", "Xanadu", "nowhere", "100", "100", "100"},
		{"garbage", "bihar", "patna", "7", "7", "7"},
	})
	writeShard(t, dir, "shard_ab.csv", [][]string{
		enrolmentHeader,
		{"03-04-2011", "Bihar", "patna", "5", "6", "7"},
		{"3-4-2011", "uttar pradesh", "lucknow", "2", "0", "1"},
		{"04-04-2011", "bihar", "Patna", "1", "1", ""},
	})
}

func newTestAggregator(t *testing.T, chunkSize int) *Aggregator {
	t.Helper()
	agg, err := New(Config{
		Logger:       newTestLogger(),
		Dataset:      "enrolment",
		GroupColumns: []string{"date", "state", "district"},
		SumColumns:   []string{"age_0_5", "age_5_17", "age_18_greater"},
		ChunkSize:    chunkSize,
	})
	require.NoError(t, err)
	return agg
}

func TestLake_Aggregate_CleansAndGroups(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	dirtyDataset(t, dir)

	table, stats, err := newTestAggregator(t, 0).AggregateFolder(context.Background(), dir)
	require.NoError(t, err)

	require.Equal(t, int64(8), stats.RowsRead)
	require.Equal(t, int64(1), stats.DroppedBadDate)
	require.Equal(t, int64(1), stats.DroppedUnresolvedState)
	require.Equal(t, int64(2), stats.ValuesCoerced)
	require.Equal(t, int64(6), stats.RowsKept())

	// Four spelling and date-format variants of (2011-04-03, Uttar
	// Pradesh, Lucknow), unpadded date included, collapse into one key;
	// the Xanadu and garbage-date rows are gone.
	require.Len(t, table.Rows, 3)

	byKey := map[string]Row{}
	for _, r := range table.Rows {
		byKey[r.Key()] = r
	}
	up := byKey["2011-04-03\x1fUttar Pradesh\x1fLucknow"]
	require.Equal(t, []float64{17, 22, 40}, up.Sums)
	patna := byKey["2011-04-03\x1fBihar\x1fPatna"]
	require.Equal(t, []float64{5, 6, 7}, patna.Sums)
	patna2 := byKey["2011-04-04\x1fBihar\x1fPatna"]
	require.Equal(t, []float64{1, 1, 0}, patna2.Sums)
}

func TestLake_Aggregate_ChunkSizeInvariance(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	dirtyDataset(t, dir)

	var baseline *Table
	for _, chunkSize := range []int{1, 100, 1_000_000} {
		table, _, err := newTestAggregator(t, chunkSize).AggregateFolder(context.Background(), dir)
		require.NoError(t, err)
		if baseline == nil {
			baseline = table
			continue
		}
		require.Empty(t, cmp.Diff(baseline, table), "chunk size %d changed the aggregate", chunkSize)
	}
}

func TestLake_Aggregate_ShardOrderInvariance(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	dirtyDataset(t, dir)
	files := []string{
		filepath.Join(dir, "shard_aa.csv"),
		filepath.Join(dir, "shard_ab.csv"),
	}

	forward, _, err := newTestAggregator(t, 2).AggregateFiles(context.Background(), files)
	require.NoError(t, err)
	reversed, _, err := newTestAggregator(t, 2).AggregateFiles(context.Background(), []string{files[1], files[0]})
	require.NoError(t, err)

	require.Empty(t, cmp.Diff(forward, reversed))
}

func TestLake_Aggregate_SumConservation(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	dirtyDataset(t, dir)

	table, _, err := newTestAggregator(t, 3).AggregateFolder(context.Background(), dir)
	require.NoError(t, err)

	// Manual sums over the cleaned rows: dropped rows contribute
	// nothing, corrupt cells count as zero.
	total, err := table.Total("age_0_5")
	require.NoError(t, err)
	require.Equal(t, 23.0, total)
	total, err = table.Total("age_5_17")
	require.NoError(t, err)
	require.Equal(t, 29.0, total)
	total, err = table.Total("age_18_greater")
	require.NoError(t, err)
	require.Equal(t, 47.0, total)
}

func TestLake_Aggregate_StructuralFailures(t *testing.T) {
	t.Parallel()

	t.Run("zero shards", func(t *testing.T) {
		t.Parallel()
		_, _, err := newTestAggregator(t, 0).AggregateFolder(context.Background(), t.TempDir())
		require.ErrorIs(t, err, ErrNoShards)
	})

	t.Run("missing folder", func(t *testing.T) {
		t.Parallel()
		_, _, err := newTestAggregator(t, 0).AggregateFolder(context.Background(), filepath.Join(t.TempDir(), "missing"))
		require.Error(t, err)
	})

	t.Run("missing required column", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		writeShard(t, dir, "bad.csv", [][]string{
			{"date", "state", "age_0_5"},
			{"03-04-2011", "bihar", "1"},
		})
		_, _, err := newTestAggregator(t, 0).AggregateFolder(context.Background(), dir)
		require.Error(t, err)
		require.Contains(t, err.Error(), "required columns missing")
		require.Contains(t, err.Error(), "district")
	})

	t.Run("ragged rows are fatal", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		path := filepath.Join(dir, "ragged.csv")
		require.NoError(t, os.WriteFile(path, []byte("date,state,district,age_0_5,age_5_17,age_18_greater\n03-04-2011,bihar\n"), 0o644))
		_, _, err := newTestAggregator(t, 0).AggregateFolder(context.Background(), dir)
		require.Error(t, err)
	})
}

func TestLake_Aggregate_StrictCoercionFails(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	dirtyDataset(t, dir)

	agg, err := New(Config{
		Logger:       newTestLogger(),
		Dataset:      "enrolment",
		GroupColumns: []string{"date", "state", "district"},
		SumColumns:   []string{"age_0_5", "age_5_17", "age_18_greater"},
		Coercion:     CoerceStrict,
	})
	require.NoError(t, err)

	_, _, err = agg.AggregateFolder(context.Background(), dir)
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid numeric value")
}

func TestLake_Aggregate_ConfigValidate(t *testing.T) {
	t.Parallel()

	t.Run("missing columns", func(t *testing.T) {
		t.Parallel()
		cfg := Config{Dataset: "enrolment"}
		require.ErrorContains(t, cfg.Validate(), "group columns")
	})

	t.Run("defaults applied", func(t *testing.T) {
		t.Parallel()
		cfg := Config{
			Dataset:      "enrolment",
			GroupColumns: []string{"date"},
			SumColumns:   []string{"age_0_5"},
		}
		require.NoError(t, cfg.Validate())
		require.NotNil(t, cfg.Logger)
		require.NotNil(t, cfg.Resolver)
		require.Equal(t, DefaultChunkSize, cfg.ChunkSize)
		require.Equal(t, CoerceLenient, cfg.Coercion)
	})
}

func TestLake_Aggregate_CombinerColumnMismatch(t *testing.T) {
	t.Parallel()

	comb := NewCombiner([]string{"date"}, []string{"a"})
	err := comb.Add(&Table{GroupColumns: []string{"state"}, SumColumns: []string{"a"}})
	require.ErrorContains(t, err, "group columns mismatch")
	err = comb.Add(&Table{GroupColumns: []string{"date"}, SumColumns: []string{"b"}})
	require.ErrorContains(t, err, "sum columns mismatch")
}

package store

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brensch/hungrysnek/game"
	"github.com/brensch/hungrysnek/logging"
	"github.com/brensch/hungrysnek/selector"
)

func sampleState() *game.GameState {
	return &game.GameState{
		Width:  10,
		Height: 10,
		YouId:  "me",
		Turn:   12,
		Snakes: []game.Snake{
			{Id: "me", Health: 90, Body: []game.Point{{X: 5, Y: 5}, {X: 5, Y: 6}, {X: 5, Y: 7}}},
			{Id: "them", Health: 90, Body: []game.Point{{X: 1, Y: 1}}},
		},
		Food: []game.Point{{X: 5, Y: 2}},
	}
}

func sampleRows(gameID string, n int) []DecisionRow {
	rows := make([]DecisionRow, n)
	for i := range rows {
		rows[i] = DecisionRow{GameID: gameID, Turn: int32(i), SnakeID: "me", Move: "up", Source: SourceArena}
	}
	return rows
}

func parquetFiles(t *testing.T, dir string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "batch_*.parquet"))
	require.NoError(t, err)
	return matches
}

func TestNewDecisionRow(t *testing.T) {
	state := sampleState()
	at := time.UnixMilli(1700000000000)

	row := NewDecisionRow("g1", SourceServer, state, selector.Decide(state), at)

	assert.Equal(t, "g1", row.GameID)
	assert.Equal(t, int32(12), row.Turn)
	assert.Equal(t, "me", row.SnakeID)
	assert.Equal(t, int32(2), row.Snakes)
	assert.Equal(t, int32(1), row.Food)
	assert.Equal(t, int32(5), row.HeadX)
	assert.Equal(t, int32(5), row.HeadY)
	assert.Equal(t, int32(3), row.Length)
	assert.Equal(t, "up", row.Move)
	assert.Equal(t, selector.ShoutHungry, row.Shout)
	assert.Equal(t, ReasonNone, row.Reason)
	assert.Equal(t, SourceServer, row.Source)
	assert.Equal(t, int64(1700000000000), row.DecidedAtMs)
}

func TestNewDecisionRow_MissingSelf(t *testing.T) {
	state := sampleState()
	state.YouId = "ghost"

	row := NewDecisionRow("g1", SourceServer, state, selector.Decide(state), time.Now())

	assert.Equal(t, ReasonSelfNotFound, row.Reason)
	assert.Equal(t, int32(-1), row.HeadX)
	assert.Equal(t, "down", row.Move)
}

func TestReasonLabel(t *testing.T) {
	assert.Equal(t, ReasonNone, ReasonLabel(nil))
	assert.Equal(t, ReasonNoFood, ReasonLabel(selector.ErrNoFoodTarget))
	assert.Equal(t, ReasonNoSafeMove, ReasonLabel(fmt.Errorf("head at (1,1): %w", selector.ErrNoSafeMove)))
	assert.Equal(t, ReasonOther, ReasonLabel(os.ErrClosed))
}

func TestWriteBatchParquetAtomic_ReadBack(t *testing.T) {
	dir := t.TempDir()
	rows := sampleRows("g1", 5)
	rows[2].Actual = "left"

	path, err := WriteBatchParquetAtomic(dir, rows)
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))

	tmp, err := os.ReadDir(filepath.Join(dir, "tmp"))
	require.NoError(t, err)
	assert.Empty(t, tmp, "tmp dir should be empty after rename")

	got, err := ReadDecisions(path)
	require.NoError(t, err)
	require.Len(t, got, 5)
	assert.Equal(t, rows, got)
}

func TestWriteBatchParquetAtomic_NoRows(t *testing.T) {
	_, err := WriteBatchParquetAtomic(t.TempDir(), nil)
	assert.Error(t, err)
}

func TestBatchWriter_Finalize(t *testing.T) {
	dir := t.TempDir()
	w, err := NewBatchWriter(dir)
	require.NoError(t, err)

	require.NoError(t, w.WriteRows(sampleRows("g1", 3)))
	require.NoError(t, w.WriteRows(sampleRows("g2", 2)))
	assert.Equal(t, 5, w.Rows())
	assert.Equal(t, 2, w.Games())

	path, n, err := w.Finalize()
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, w.OutPath(), path)

	got, err := ReadDecisions(path)
	require.NoError(t, err)
	assert.Len(t, got, 5)

	assert.Error(t, w.WriteRows(sampleRows("g3", 1)))
}

func TestBatchWriter_FinalizeEmpty(t *testing.T) {
	dir := t.TempDir()
	w, err := NewBatchWriter(dir)
	require.NoError(t, err)

	path, n, err := w.Finalize()
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.Zero(t, n)
	assert.Empty(t, parquetFiles(t, dir))
}

func TestRecorder_FlushesOnClose(t *testing.T) {
	dir := t.TempDir()
	rec, err := NewRecorder(dir, 100, 0, logging.Discard())
	require.NoError(t, err)

	for _, row := range sampleRows("g1", 3) {
		rec.Record(row)
	}
	require.NoError(t, rec.Close())

	files := parquetFiles(t, dir)
	require.Len(t, files, 1)
	got, err := ReadDecisions(files[0])
	require.NoError(t, err)
	assert.Len(t, got, 3)

	batches, written, buffered := rec.Stats()
	assert.Equal(t, 1, batches)
	assert.Equal(t, 3, written)
	assert.Zero(t, buffered)

	rec.Record(sampleRows("late", 1)[0])
	_, _, buffered = rec.Stats()
	assert.Zero(t, buffered, "rows after close are dropped")
	assert.NoError(t, rec.Close())
}

func TestRecorder_FlushesAtThreshold(t *testing.T) {
	dir := t.TempDir()
	rec, err := NewRecorder(dir, 2, 0, logging.Discard())
	require.NoError(t, err)
	defer rec.Close()

	for _, row := range sampleRows("g1", 2) {
		rec.Record(row)
	}

	require.Eventually(t, func() bool {
		return len(parquetFiles(t, dir)) == 1
	}, 5*time.Second, 10*time.Millisecond)
}

func TestRecorder_FlushesOnTicker(t *testing.T) {
	dir := t.TempDir()
	rec, err := NewRecorder(dir, 1000, 20*time.Millisecond, logging.Discard())
	require.NoError(t, err)
	defer rec.Close()

	rec.Record(sampleRows("g1", 1)[0])

	require.Eventually(t, func() bool {
		return len(parquetFiles(t, dir)) == 1
	}, 5*time.Second, 10*time.Millisecond)
}

func TestGameLog_PersistsAndDedupes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "games.log")

	l, err := OpenGameLog(path)
	require.NoError(t, err)
	require.NoError(t, l.Add("g1"))
	require.NoError(t, l.Add("g2"))
	require.NoError(t, l.Add("g1"))
	assert.Error(t, l.Add(""))
	assert.Equal(t, 2, l.Count())
	require.NoError(t, l.Close())
	assert.Error(t, l.Add("g3"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "g1\ng2\n", string(data))

	reopened, err := OpenGameLog(path)
	require.NoError(t, err)
	defer reopened.Close()
	assert.True(t, reopened.Has("g2"))
	assert.False(t, reopened.Has("g3"))
	assert.Equal(t, map[string]bool{"g1": true, "g2": true}, reopened.Known())
}

func TestOpenGameLog_RequiresPath(t *testing.T) {
	_, err := OpenGameLog("")
	assert.Error(t, err)
}

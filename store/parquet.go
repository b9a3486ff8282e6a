// Package store archives move decisions as Parquet batches.
//
// Every surface that calls the selector (the HTTP server, the arena and the
// replay tool) produces DecisionRows. Batches are written to dir/tmp and
// renamed into dir so readers like cmd/decisionstats never observe a partial
// file.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"

	"github.com/brensch/hungrysnek/game"
	"github.com/brensch/hungrysnek/selector"
)

const schemaName = "decision_row_v1"

// Source labels which surface produced a row.
const (
	SourceServer = "server"
	SourceArena  = "arena"
	SourceReplay = "replay"
)

// Reason labels for rows whose decision fell back to the default move.
const (
	ReasonNone         = ""
	ReasonSelfNotFound = "self_not_found"
	ReasonNoFood       = "no_food"
	ReasonNoSafeMove   = "no_safe_move"
	ReasonOther        = "other"
)

// DecisionRow is one selector decision for one snake on one turn.
//
// Move and Actual use the wire names ("up", "down", "left", "right").
// Actual is the move the snake really made and is only known for replays;
// it is empty otherwise.
type DecisionRow struct {
	GameID        string `parquet:"game_id,dict"`
	Turn          int32  `parquet:"turn"`
	SnakeID       string `parquet:"snake_id,dict"`
	Width         int32  `parquet:"width"`
	Height        int32  `parquet:"height"`
	Snakes        int32  `parquet:"snakes"`
	Food          int32  `parquet:"food"`
	HeadX         int32  `parquet:"head_x"`
	HeadY         int32  `parquet:"head_y"`
	Length        int32  `parquet:"length"`
	Move          string `parquet:"move,dict"`
	Shout         string `parquet:"shout,dict"`
	Reason        string `parquet:"reason,dict"`
	Actual        string `parquet:"actual,dict,optional"`
	Source        string `parquet:"source,dict"`
	LatencyMicros int64  `parquet:"latency_us"`
	DecidedAtMs   int64  `parquet:"decided_at_unix_ms"`
}

// NewDecisionRow describes decision d taken on state. The controlled snake's
// head and length are filled in when it is on the board.
func NewDecisionRow(gameID, source string, state *game.GameState, d selector.Decision, at time.Time) DecisionRow {
	row := DecisionRow{
		GameID:      gameID,
		Turn:        state.Turn,
		SnakeID:     state.YouId,
		Width:       state.Width,
		Height:      state.Height,
		Snakes:      int32(len(state.Snakes)),
		Food:        int32(len(state.Food)),
		HeadX:       -1,
		HeadY:       -1,
		Move:        d.Move.String(),
		Shout:       d.Shout,
		Reason:      ReasonLabel(d.Reason),
		Source:      source,
		DecidedAtMs: at.UnixMilli(),
	}
	if you := state.Snake(state.YouId); you != nil && len(you.Body) > 0 {
		row.HeadX, row.HeadY = you.Head().X, you.Head().Y
		row.Length = int32(len(you.Body))
	}
	return row
}

// ReasonLabel maps a decision reason onto a stable label.
func ReasonLabel(err error) string {
	switch {
	case err == nil:
		return ReasonNone
	case errors.Is(err, selector.ErrSelfNotFound):
		return ReasonSelfNotFound
	case errors.Is(err, selector.ErrNoFoodTarget):
		return ReasonNoFood
	case errors.Is(err, selector.ErrNoSafeMove):
		return ReasonNoSafeMove
	default:
		return ReasonOther
	}
}

func writeOptions() []parquet.WriterOption {
	return []parquet.WriterOption{
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
		parquet.KeyValueMetadata("schema", schemaName),
	}
}

// WriteBatchParquetAtomic writes rows into outDir/tmp and then renames the
// file into outDir. The returned path is the final file.
func WriteBatchParquetAtomic(outDir string, rows []DecisionRow) (string, error) {
	if len(rows) == 0 {
		return "", fmt.Errorf("no rows to write")
	}
	tmpDir := filepath.Join(outDir, "tmp")
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return "", fmt.Errorf("create tmp dir: %w", err)
	}

	name := fmt.Sprintf("batch_%d.parquet", time.Now().UnixNano())
	finalPath := filepath.Join(outDir, name)
	tmpPath := filepath.Join(tmpDir, name+".tmp")
	_ = os.Remove(tmpPath)

	if err := parquet.WriteFile(tmpPath, rows, writeOptions()...); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("write parquet: %w", err)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("rename parquet: %w", err)
	}
	return finalPath, nil
}

// ReadDecisions loads every row of a decision batch file.
func ReadDecisions(path string) ([]DecisionRow, error) {
	rows, err := parquet.ReadFile[DecisionRow](path)
	if err != nil {
		return nil, fmt.Errorf("read parquet %s: %w", path, err)
	}
	return rows, nil
}

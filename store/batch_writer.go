package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"
)

// BatchWriter streams rows into a single Parquet file. The file lives in
// outDir/tmp until Finalize moves it into outDir.
//
// A BatchWriter is not safe for concurrent use.
type BatchWriter struct {
	tmpPath string
	outPath string

	file   *os.File
	writer *parquet.GenericWriter[DecisionRow]

	rows  int
	games map[string]struct{}
}

func NewBatchWriter(outDir string) (*BatchWriter, error) {
	if outDir == "" {
		return nil, fmt.Errorf("outDir is required")
	}

	absOut, err := filepath.Abs(outDir)
	if err != nil {
		absOut = outDir
	}
	tmpDir := filepath.Join(absOut, "tmp")
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return nil, fmt.Errorf("create tmp dir: %w", err)
	}

	name := fmt.Sprintf("batch_%d.parquet", time.Now().UnixNano())
	tmpPath := filepath.Join(tmpDir, name)

	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open tmp parquet: %w", err)
	}

	return &BatchWriter{
		tmpPath: tmpPath,
		outPath: filepath.Join(absOut, name),
		file:    f,
		writer:  parquet.NewGenericWriter[DecisionRow](f, writeOptions()...),
		games:   make(map[string]struct{}),
	}, nil
}

func (b *BatchWriter) OutPath() string { return b.outPath }
func (b *BatchWriter) Rows() int       { return b.rows }
func (b *BatchWriter) Games() int      { return len(b.games) }

func (b *BatchWriter) WriteRows(rows []DecisionRow) error {
	if b.writer == nil {
		return fmt.Errorf("batch writer is closed")
	}
	if len(rows) == 0 {
		return nil
	}
	if _, err := b.writer.Write(rows); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	b.rows += len(rows)
	for _, r := range rows {
		b.games[r.GameID] = struct{}{}
	}
	return nil
}

// Finalize closes the writer and moves the file into place. With no rows
// written the tmp file is removed and the returned path is empty.
func (b *BatchWriter) Finalize() (outPath string, rows int, err error) {
	if b.writer == nil && b.file == nil {
		return "", 0, nil
	}

	var closeErr, fileErr error
	if b.writer != nil {
		closeErr = b.writer.Close()
		b.writer = nil
	}
	if b.file != nil {
		_ = b.file.Sync()
		fileErr = b.file.Close()
		b.file = nil
	}
	if closeErr != nil {
		return "", 0, fmt.Errorf("close parquet writer: %w", closeErr)
	}
	if fileErr != nil {
		return "", 0, fmt.Errorf("close parquet file: %w", fileErr)
	}

	if b.rows == 0 {
		_ = os.Remove(b.tmpPath)
		return "", 0, nil
	}
	if err := os.Rename(b.tmpPath, b.outPath); err != nil {
		return "", 0, fmt.Errorf("rename parquet: %w", err)
	}
	return b.outPath, b.rows, nil
}

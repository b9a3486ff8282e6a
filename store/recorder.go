package store

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Recorder buffers decision rows and flushes them to Parquet batches when the
// buffer reaches flushRows, every flushEvery, and on Close.
//
// Record never blocks on disk; flushing happens on a background goroutine.
type Recorder struct {
	outDir     string
	flushRows  int
	flushEvery time.Duration
	log        *slog.Logger

	mu      sync.Mutex
	rows    []DecisionRow
	batches int
	written int
	closed  bool

	kick chan struct{}
	stop chan struct{}
	done chan struct{}
}

func NewRecorder(outDir string, flushRows int, flushEvery time.Duration, log *slog.Logger) (*Recorder, error) {
	if outDir == "" {
		return nil, fmt.Errorf("outDir is required")
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	if flushRows <= 0 {
		flushRows = 1000
	}
	if log == nil {
		log = slog.Default()
	}

	r := &Recorder{
		outDir:     outDir,
		flushRows:  flushRows,
		flushEvery: flushEvery,
		log:        log,
		rows:       make([]DecisionRow, 0, flushRows),
		kick:       make(chan struct{}, 1),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	go r.loop()
	return r, nil
}

// Record buffers one row. Rows recorded after Close are dropped.
func (r *Recorder) Record(row DecisionRow) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.rows = append(r.rows, row)
	full := len(r.rows) >= r.flushRows
	r.mu.Unlock()

	if full {
		select {
		case r.kick <- struct{}{}:
		default:
		}
	}
}

func (r *Recorder) loop() {
	defer close(r.done)

	var tick <-chan time.Time
	if r.flushEvery > 0 {
		ticker := time.NewTicker(r.flushEvery)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-r.stop:
			return
		case <-r.kick:
			r.flushLogged("count")
		case <-tick:
			r.flushLogged("ticker")
		}
	}
}

func (r *Recorder) flushLogged(reason string) {
	path, n, err := r.Flush()
	if err != nil {
		r.log.Error("flush decisions failed", "reason", reason, "err", err)
		return
	}
	if n > 0 {
		r.log.Info("flushed decisions", "reason", reason, "rows", n, "path", path)
	}
}

// Flush writes every buffered row now. It returns the batch path and row
// count, or an empty path when nothing was buffered. On a write error the
// rows are put back so a later flush can retry.
func (r *Recorder) Flush() (string, int, error) {
	r.mu.Lock()
	rows := r.rows
	if len(rows) == 0 {
		r.mu.Unlock()
		return "", 0, nil
	}
	r.rows = make([]DecisionRow, 0, r.flushRows)
	r.mu.Unlock()

	path, err := WriteBatchParquetAtomic(r.outDir, rows)
	if err != nil {
		r.mu.Lock()
		r.rows = append(rows, r.rows...)
		r.mu.Unlock()
		return "", 0, err
	}

	r.mu.Lock()
	r.batches++
	r.written += len(rows)
	r.mu.Unlock()
	return path, len(rows), nil
}

// Stats returns the number of batches and rows written so far, plus the
// rows still buffered.
func (r *Recorder) Stats() (batches, written, buffered int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.batches, r.written, len(r.rows)
}

// Close stops the background flusher and writes whatever is left.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	close(r.stop)
	<-r.done

	_, _, err := r.Flush()
	return err
}

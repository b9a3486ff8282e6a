package store

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// GameLog is an append-only list of game IDs, one per line, mirrored in
// memory. The server uses it to note finished games; the replay tool uses it
// to skip games it has already analysed.
//
// A partial final line left by a crash is read back as an ID; callers only
// use the log for dedupe so that is harmless.
type GameLog struct {
	mu   sync.RWMutex
	file *os.File
	ids  map[string]struct{}
}

func OpenGameLog(path string) (*GameLog, error) {
	if path == "" {
		return nil, fmt.Errorf("log path is required")
	}

	ids := make(map[string]struct{})
	if f, err := os.Open(path); err == nil {
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			if id := strings.TrimSpace(scanner.Text()); id != "" {
				ids[id] = struct{}{}
			}
		}
		_ = f.Close()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return &GameLog{file: file, ids: ids}, nil
}

func (l *GameLog) Has(id string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.ids[id]
	return ok
}

func (l *GameLog) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.ids)
}

// Known returns a copy of every logged ID.
func (l *GameLog) Known() map[string]bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	m := make(map[string]bool, len(l.ids))
	for id := range l.ids {
		m[id] = true
	}
	return m
}

// Add appends id and syncs. Known IDs are ignored.
func (l *GameLog) Add(id string) error {
	if id == "" {
		return fmt.Errorf("game id is empty")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.ids[id]; ok {
		return nil
	}
	if l.file == nil {
		return fmt.Errorf("log file is closed")
	}
	if _, err := l.file.WriteString(id + "\n"); err != nil {
		return fmt.Errorf("append log: %w", err)
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("sync log: %w", err)
	}
	l.ids[id] = struct{}{}
	return nil
}

func (l *GameLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

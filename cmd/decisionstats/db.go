package main

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2"
)

// findBatches lists finished decision batches directly under each root.
// Files still in root/tmp are never matched.
func findBatches(roots []string) ([]string, error) {
	var files []string
	for _, root := range roots {
		root = strings.TrimSpace(root)
		if root == "" {
			continue
		}
		matches, err := filepath.Glob(filepath.Join(root, "batch_*.parquet"))
		if err != nil {
			return nil, fmt.Errorf("glob %s: %w", root, err)
		}
		files = append(files, matches...)
	}
	sort.Strings(files)
	return files, nil
}

// openDecisions opens an in-memory DuckDB with a "decisions" view over files.
func openDecisions(files []string) (*sql.DB, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("no decision batches found")
	}

	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, err
	}
	_, _ = db.Exec("PRAGMA threads=4")

	quoted := make([]string, len(files))
	for i, f := range files {
		quoted[i] = "'" + escapeSQLString(f) + "'"
	}
	q := `CREATE OR REPLACE VIEW decisions AS
		SELECT * FROM read_parquet([` + strings.Join(quoted, ",") + `], union_by_name=true)`
	if _, err := db.Exec(q); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create decisions view: %w", err)
	}
	return db, nil
}

func escapeSQLString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

type SourceCount struct {
	Source    string
	Decisions int64
	Games     int64
	Defaults  int64
}

type Count struct {
	Key string
	N   int64
}

type Report struct {
	Files            int
	Total            int64
	Defaults         int64
	Sources          []SourceCount
	Moves            []Count
	Reasons          []Count
	ReplayTurns      int64
	ReplayAgreed     int64
	AvgLatencyMicros float64
	MaxLatencyMicros int64
}

func (r Report) DefaultRate() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Defaults) / float64(r.Total)
}

func (r Report) Agreement() float64 {
	if r.ReplayTurns == 0 {
		return 0
	}
	return float64(r.ReplayAgreed) / float64(r.ReplayTurns)
}

func queryReport(ctx context.Context, db *sql.DB) (Report, error) {
	var r Report

	err := db.QueryRowContext(ctx, `
		SELECT
			count(*),
			count(*) FILTER (WHERE reason <> ''),
			coalesce(avg(latency_us), 0),
			coalesce(max(latency_us), 0)
		FROM decisions`).Scan(&r.Total, &r.Defaults, &r.AvgLatencyMicros, &r.MaxLatencyMicros)
	if err != nil {
		return r, fmt.Errorf("query totals: %w", err)
	}

	rows, err := db.QueryContext(ctx, `
		SELECT source, count(*), count(DISTINCT game_id), count(*) FILTER (WHERE reason <> '')
		FROM decisions
		GROUP BY source
		ORDER BY source`)
	if err != nil {
		return r, fmt.Errorf("query sources: %w", err)
	}
	for rows.Next() {
		var s SourceCount
		if err := rows.Scan(&s.Source, &s.Decisions, &s.Games, &s.Defaults); err != nil {
			rows.Close()
			return r, fmt.Errorf("scan source: %w", err)
		}
		r.Sources = append(r.Sources, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return r, err
	}

	if r.Moves, err = queryCounts(ctx, db, `SELECT move, count(*) FROM decisions GROUP BY move ORDER BY move`); err != nil {
		return r, fmt.Errorf("query moves: %w", err)
	}
	if r.Reasons, err = queryCounts(ctx, db, `
		SELECT reason, count(*) FROM decisions
		WHERE reason <> ''
		GROUP BY reason
		ORDER BY count(*) DESC, reason`); err != nil {
		return r, fmt.Errorf("query reasons: %w", err)
	}

	err = db.QueryRowContext(ctx, `
		SELECT count(*), count(*) FILTER (WHERE actual = move)
		FROM decisions
		WHERE actual IS NOT NULL AND actual <> ''`).Scan(&r.ReplayTurns, &r.ReplayAgreed)
	if err != nil {
		return r, fmt.Errorf("query agreement: %w", err)
	}
	return r, nil
}

func queryCounts(ctx context.Context, db *sql.DB, q string) ([]Count, error) {
	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Count
	for rows.Next() {
		var c Count
		if err := rows.Scan(&c.Key, &c.N); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

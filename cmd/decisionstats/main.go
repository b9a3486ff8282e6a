// Command decisionstats summarises archived move decisions with DuckDB.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/brensch/hungrysnek/logging"
)

type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func main() {
	var roots stringList
	flag.Var(&roots, "root", "Directory of decision batch files (repeatable, default $DECISION_ROOTS or data/decisions)")
	timeout := flag.Duration("timeout", 2*time.Minute, "Query timeout")
	logFormat := flag.String("log-format", getEnvOrDefault("LOG_FORMAT", logging.FormatText), "Log format: pretty, json or text")
	flag.Parse()

	log, err := logging.New(os.Stderr, *logFormat, "info")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if len(roots) == 0 {
		for _, r := range strings.Split(getEnvOrDefault("DECISION_ROOTS", "data/decisions"), ",") {
			if r = strings.TrimSpace(r); r != "" {
				roots = append(roots, r)
			}
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := run(ctx, os.Stdout, roots, log); err != nil {
		log.Error("decisionstats failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, w io.Writer, roots []string, log *slog.Logger) error {
	files, err := findBatches(roots)
	if err != nil {
		return err
	}
	log.Info("reading decisions", "roots", roots, "files", len(files))

	db, err := openDecisions(files)
	if err != nil {
		return err
	}
	defer db.Close()

	start := time.Now()
	r, err := queryReport(ctx, db)
	if err != nil {
		return err
	}
	r.Files = len(files)
	log.Info("report built", "elapsed", time.Since(start))

	return writeReport(w, r)
}

func writeReport(w io.Writer, r Report) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "files\t%d\n", r.Files)
	fmt.Fprintf(tw, "decisions\t%d\n", r.Total)
	fmt.Fprintf(tw, "default rate\t%.2f%%\n", 100*r.DefaultRate())
	fmt.Fprintf(tw, "latency avg/max\t%.1fus / %dus\n", r.AvgLatencyMicros, r.MaxLatencyMicros)

	fmt.Fprintln(tw, "\nsource\tdecisions\tgames\tdefaults")
	for _, s := range r.Sources {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n", s.Source, s.Decisions, s.Games, s.Defaults)
	}

	fmt.Fprintln(tw, "\nmove\tcount")
	for _, m := range r.Moves {
		fmt.Fprintf(tw, "%s\t%d\n", m.Key, m.N)
	}

	if len(r.Reasons) > 0 {
		fmt.Fprintln(tw, "\ndefault reason\tcount")
		for _, c := range r.Reasons {
			fmt.Fprintf(tw, "%s\t%d\n", c.Key, c.N)
		}
	}

	if r.ReplayTurns > 0 {
		fmt.Fprintf(tw, "\nreplay agreement\t%d/%d (%.2f%%)\n", r.ReplayAgreed, r.ReplayTurns, 100*r.Agreement())
	}
	return tw.Flush()
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

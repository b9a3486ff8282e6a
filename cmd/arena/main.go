// Command arena plays local games between selector-driven snakes and shows
// a live dashboard.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/brensch/hungrysnek/arena"
	"github.com/brensch/hungrysnek/logging"
	"github.com/brensch/hungrysnek/rules"
	"github.com/brensch/hungrysnek/selector"
	"github.com/brensch/hungrysnek/store"
)

func main() {
	os.Exit(run())
}

func run() int {
	def := arena.DefaultConfig()

	games := flag.Int("games", getEnvIntOrDefault("GAMES", 100), "Number of games to play")
	workers := flag.Int("workers", getEnvIntOrDefault("WORKERS", 4), "Games played in parallel")
	snakes := flag.Int("snakes", getEnvIntOrDefault("SNAKES", def.Snakes), "Snakes per game")
	width := flag.Int("width", getEnvIntOrDefault("WIDTH", def.Width), "Board width")
	height := flag.Int("height", getEnvIntOrDefault("HEIGHT", def.Height), "Board height")
	maxTurns := flag.Int("max-turns", getEnvIntOrDefault("MAX_TURNS", def.MaxTurns), "Stop a game after this many turns (0 = no limit)")
	minFood := flag.Int("min-food", getEnvIntOrDefault("MIN_FOOD", def.Food.MinimumFood), "Minimum food on the board")
	foodChance := flag.Int("food-chance", getEnvIntOrDefault("FOOD_CHANCE", def.Food.FoodSpawnChance), "Percent chance of extra food each turn")
	target := flag.String("target", getEnvOrDefault("TARGET", "first"), "Food target policy: first or closest")
	outDir := flag.String("out-dir", getEnvOrDefault("OUT_DIR", ""), "If set, archive every decision as Parquet batches here")
	flushRows := flag.Int("flush-rows", getEnvIntOrDefault("FLUSH_ROWS", 50000), "Archive flush threshold in rows")
	seed := flag.Int64("seed", time.Now().UnixNano(), "Base RNG seed")
	noTUI := flag.Bool("no-tui", getEnvBoolOrDefault("NO_TUI", false), "Log results instead of showing the dashboard")
	logFormat := flag.String("log-format", getEnvOrDefault("LOG_FORMAT", logging.FormatText), "Log format: pretty, json or text")
	flag.Parse()

	// The dashboard owns the terminal, so logs are dropped unless -no-tui.
	var logOut io.Writer = os.Stderr
	if !*noTUI {
		logOut = io.Discard
	}
	log, err := logging.New(logOut, *logFormat, "info")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	policy, err := selector.ParseTargetPolicy(*target)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	cfg := arena.Config{
		Snakes:   *snakes,
		Width:    *width,
		Height:   *height,
		MaxTurns: *maxTurns,
		Food:     rules.FoodSettings{MinimumFood: *minFood, FoodSpawnChance: *foodChance},
		Selector: selector.New(selector.Options{Target: policy}),
	}

	var recorder *store.Recorder
	if *outDir != "" {
		recorder, err = store.NewRecorder(*outDir, *flushRows, 0, log.With("component", "recorder"))
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	var summary arena.Summary
	updates := make(chan tea.Msg, *workers*2)

	onGame := func(res arena.Result, rows []store.DecisionRow) {
		summary.Add(res)
		if recorder != nil {
			for _, r := range rows {
				recorder.Record(r)
			}
		}
		if *noTUI {
			log.Info("game finished", "game_id", res.GameID, "winner", res.WinnerID, "turns", res.Turns,
				"decisions", res.Decisions, "defaults", res.Defaults, "blunders", res.Blunders, "cancelled", res.Cancelled)
			return
		}
		select {
		case updates <- gameMsg{res: res}:
		case <-ctx.Done():
		}
	}

	runErr := make(chan error, 1)
	go func() {
		err := arena.RunMany(ctx, cfg, *games, *workers, *seed, onGame)
		runErr <- err
		if !*noTUI {
			finish(ctx, updates, err)
		}
		close(updates)
	}()

	exit := 0
	if *noTUI {
		if err := <-runErr; err != nil && !errors.Is(err, context.Canceled) {
			log.Error("arena failed", "err", err)
			exit = 1
		}
	} else {
		p := tea.NewProgram(initialModel(*games, updates, cancel), tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			exit = 1
		}
		cancel()
		if err := <-runErr; err != nil && !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
			exit = 1
		}
	}

	if recorder != nil {
		if err := recorder.Close(); err != nil {
			log.Error("final archive flush", "err", err)
			exit = 1
		}
	}

	printSummary(os.Stdout, summary)
	return exit
}

// finish hands the dashboard the run's outcome. Cancellation is not an error
// worth showing, and nothing is sent once ctx is done since the dashboard may
// already have quit.
func finish(ctx context.Context, updates chan<- tea.Msg, err error) {
	if err == nil || ctx.Err() != nil {
		return
	}
	select {
	case updates <- doneMsg{err: err}:
	case <-ctx.Done():
	}
}

func printSummary(w io.Writer, s arena.Summary) {
	fmt.Fprintf(w, "games=%d draws=%d avg_turns=%.1f avg_length=%.2f default_rate=%.2f%% blunders=%d\n",
		s.Games, s.Draws, s.AvgTurns(), s.AvgLength(), 100*s.DefaultRate(), s.Blunders)
	for _, id := range s.WinnerIDs() {
		fmt.Fprintf(w, "  %s wins=%d\n", id, s.Wins[id])
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		var i int
		if _, err := fmt.Sscanf(val, "%d", &i); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBoolOrDefault(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}

// Command replay downloads published games and measures how often the move
// selector agrees with the moves that were actually played.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/brensch/hungrysnek/discovery"
	"github.com/brensch/hungrysnek/logging"
	"github.com/brensch/hungrysnek/replay"
	"github.com/brensch/hungrysnek/selector"
	"github.com/brensch/hungrysnek/store"
)

type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

type options struct {
	gameIDs      []string
	leaderboards []string
	maxPlayers   int
	delay        time.Duration
	snake        string
	outDir       string
	logPath      string
	engine       replay.Config
	sel          *selector.Selector
	// openWriter defaults to store.NewBatchWriter.
	openWriter func(dir string) (rowWriter, error)
}

type rowWriter interface {
	WriteRows(rows []store.DecisionRow) error
	Finalize() (string, int, error)
	Games() int
}

func openBatchWriter(dir string) (rowWriter, error) {
	return store.NewBatchWriter(dir)
}

type totals struct {
	games, skipped, failed int
	turns, agreed, rows    int
}

func main() {
	os.Exit(run())
}

func run() int {
	var gameIDs, leaderboards stringList
	flag.Var(&gameIDs, "game", "Game ID to replay (repeatable)")
	flag.Var(&leaderboards, "leaderboard", "Leaderboard URL to crawl for game IDs (repeatable)")
	maxPlayers := flag.Int("max-players", getEnvIntOrDefault("MAX_PLAYERS", 20), "Maximum players to check per leaderboard")
	delay := flag.Duration("delay", getEnvDurationOrDefault("DELAY", 500*time.Millisecond), "Delay between HTTP requests")
	snake := flag.String("snake", getEnvOrDefault("SNAKE", ""), "Only replay the snake with this name or ID (default: every snake)")
	outDir := flag.String("out-dir", getEnvOrDefault("OUT_DIR", "data/decisions"), "Directory for decision batch files")
	logPath := flag.String("log-path", getEnvOrDefault("REPLAY_LOG", "data/replayed_games.log"), "Append-only log of replayed game IDs")
	engineURL := flag.String("engine-url", getEnvOrDefault("ENGINE_URL", replay.DefaultConfig().EngineURL), "Engine websocket URL template")
	target := flag.String("target", getEnvOrDefault("TARGET", "first"), "Food target policy: first or closest")
	logFormat := flag.String("log-format", getEnvOrDefault("LOG_FORMAT", logging.FormatText), "Log format: pretty, json or text")
	flag.Parse()

	log, err := logging.New(os.Stderr, *logFormat, "info")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	policy, err := selector.ParseTargetPolicy(*target)
	if err != nil {
		log.Error("bad -target", "err", err)
		return 2
	}
	if len(gameIDs) == 0 && len(leaderboards) == 0 {
		log.Error("nothing to do: pass -game or -leaderboard")
		return 2
	}

	engine := replay.DefaultConfig()
	engine.EngineURL = *engineURL

	opts := options{
		gameIDs:      gameIDs,
		leaderboards: leaderboards,
		maxPlayers:   *maxPlayers,
		delay:        *delay,
		snake:        *snake,
		outDir:       *outDir,
		logPath:      *logPath,
		engine:       engine,
		sel:          selector.New(selector.Options{Target: policy}),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	t, err := replayAll(ctx, opts, log)
	if err != nil {
		log.Error("replay failed", "err", err)
		return 1
	}

	agreement := 0.0
	if t.turns > 0 {
		agreement = float64(t.agreed) / float64(t.turns)
	}
	fmt.Printf("games=%d skipped=%d failed=%d turns=%d agreed=%d agreement=%.2f%% rows=%d\n",
		t.games, t.skipped, t.failed, t.turns, t.agreed, 100*agreement, t.rows)
	return 0
}

// replayAll returns only after the ID producer has stopped.
func replayAll(ctx context.Context, opts options, log *slog.Logger) (totals, error) {
	var t totals

	ctx, cancel := context.WithCancel(ctx)
	var producer sync.WaitGroup
	defer producer.Wait()
	defer cancel()

	games, err := store.OpenGameLog(opts.logPath)
	if err != nil {
		return t, err
	}
	defer games.Close()

	open := opts.openWriter
	if open == nil {
		open = openBatchWriter
	}
	writer, err := open(opts.outDir)
	if err != nil {
		return t, err
	}
	defer func() {
		path, n, err := writer.Finalize()
		if err != nil {
			log.Error("finalize batch", "err", err)
			return
		}
		if n > 0 {
			log.Info("wrote decisions", "path", path, "rows", n, "games", writer.Games())
		}
	}()

	ids := make(chan string, 100)
	producer.Add(1)
	go func() {
		defer producer.Done()
		defer close(ids)
		for _, id := range opts.gameIDs {
			select {
			case ids <- id:
			case <-ctx.Done():
				return
			}
		}
		if len(opts.leaderboards) == 0 {
			return
		}
		cfg := discovery.DefaultConfig()
		cfg.LeaderboardURLs = opts.leaderboards
		cfg.MaxPlayers = opts.maxPlayers
		cfg.RequestDelay = opts.delay
		if _, err := discovery.NewWorker(cfg, games.Known(), nil, log).Discover(ctx, ids); err != nil {
			log.Warn("discovery stopped", "err", err)
		}
	}()

	for id := range ids {
		if ctx.Err() != nil {
			break
		}
		if games.Has(id) {
			t.skipped++
			continue
		}

		g, err := replay.Download(ctx, id, opts.engine, log)
		if err != nil {
			t.failed++
			log.Warn("download failed", "game_id", id, "err", err)
			continue
		}

		snakes, err := snakesToReplay(g, opts.snake)
		if err != nil {
			t.skipped++
			log.Info("skipping game", "game_id", id, "reason", err)
			continue
		}

		for _, sid := range snakes {
			rep := replay.Replay(g, sid, opts.sel)
			if err := writer.WriteRows(rep.Rows); err != nil {
				return t, err
			}
			t.turns += rep.Turns
			t.agreed += rep.Agreed
			t.rows += len(rep.Rows)
			log.Info("replayed", "game_id", id, "snake", sid, "turns", rep.Turns,
				"agreement", fmt.Sprintf("%.2f", rep.Agreement()), "defaults", rep.Defaults)
		}
		t.games++

		if err := games.Add(id); err != nil {
			log.Warn("mark game replayed", "game_id", id, "err", err)
		}

		if opts.delay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(opts.delay):
			}
		}
	}
	return t, nil
}

// snakesToReplay picks the snakes to evaluate: the filtered one, or every
// snake that appears in the first frame.
func snakesToReplay(g *replay.Game, filter string) ([]string, error) {
	if filter != "" {
		id, err := replay.ResolveSnake(g, filter)
		if err != nil {
			return nil, err
		}
		return []string{id}, nil
	}
	if len(g.Frames) == 0 {
		return nil, fmt.Errorf("game has no frames")
	}
	var ids []string
	for _, s := range g.Frames[0].Snakes {
		ids = append(ids, s.ID)
	}
	return ids, nil
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

func getEnvDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

// Command snake serves the move selector over the legacy Battlesnake API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brensch/hungrysnek/logging"
	"github.com/brensch/hungrysnek/selector"
	"github.com/brensch/hungrysnek/server"
	"github.com/brensch/hungrysnek/store"
)

func main() {
	os.Exit(run())
}

func run() int {
	def := server.DefaultIdentity()

	listen := flag.String("listen", ":"+getEnvOrDefault("PORT", "8080"), "HTTP listen address")
	logFormat := flag.String("log-format", getEnvOrDefault("LOG_FORMAT", logging.FormatPretty), "Log format: pretty, json or text")
	logLevel := flag.String("log-level", getEnvOrDefault("LOG_LEVEL", "info"), "Log level: debug, info, warn or error")
	target := flag.String("target", getEnvOrDefault("TARGET", "first"), "Food target policy: first or closest")
	recordDir := flag.String("record-dir", getEnvOrDefault("RECORD_DIR", ""), "If set, archive every decision as Parquet batches here")
	gameLogPath := flag.String("game-log", getEnvOrDefault("GAME_LOG", ""), "If set, append finished game IDs to this file")
	flushRows := flag.Int("flush-rows", getEnvIntOrDefault("FLUSH_ROWS", 1000), "Flush the archive after this many decisions")
	flushEvery := flag.Duration("flush-every", getEnvDurationOrDefault("FLUSH_EVERY", time.Minute), "Flush the archive at this interval")
	shutdownGrace := flag.Duration("shutdown-grace", getEnvDurationOrDefault("SHUTDOWN_GRACE", 5*time.Second), "Time allowed for in-flight requests on shutdown")

	name := flag.String("name", getEnvOrDefault("SNAKE_NAME", def.Name), "Snake name")
	color := flag.String("color", getEnvOrDefault("SNAKE_COLOR", def.Color), "Snake color")
	secondaryColor := flag.String("secondary-color", getEnvOrDefault("SNAKE_SECONDARY_COLOR", def.SecondaryColor), "Snake secondary color")
	headURL := flag.String("head-url", getEnvOrDefault("SNAKE_HEAD_URL", def.HeadURL), "Snake head image URL")
	headType := flag.String("head-type", getEnvOrDefault("SNAKE_HEAD_TYPE", def.HeadType), "Snake head type")
	tailType := flag.String("tail-type", getEnvOrDefault("SNAKE_TAIL_TYPE", def.TailType), "Snake tail type")
	taunt := flag.String("taunt", getEnvOrDefault("SNAKE_TAUNT", def.Taunt), "Taunt sent on /start")
	flag.Parse()

	log, err := logging.New(os.Stderr, *logFormat, *logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	policy, err := selector.ParseTargetPolicy(*target)
	if err != nil {
		log.Error("bad -target", "err", err)
		return 2
	}

	cfg := server.Config{
		Identity: server.Identity{
			Name:           *name,
			Color:          *color,
			SecondaryColor: *secondaryColor,
			HeadURL:        *headURL,
			HeadType:       *headType,
			TailType:       *tailType,
			Taunt:          *taunt,
		},
		Selector: selector.New(selector.Options{Target: policy}),
		Log:      log,
	}

	var recorder *store.Recorder
	if *recordDir != "" {
		recorder, err = store.NewRecorder(*recordDir, *flushRows, *flushEvery, log.With("component", "recorder"))
		if err != nil {
			log.Error("open decision archive", "dir", *recordDir, "err", err)
			return 1
		}
		cfg.Recorder = recorder
	}

	var games *store.GameLog
	if *gameLogPath != "" {
		games, err = store.OpenGameLog(*gameLogPath)
		if err != nil {
			log.Error("open game log", "path", *gameLogPath, "err", err)
			return 1
		}
		cfg.GameLog = games
		log.Info("game log opened", "path", *gameLogPath, "games", games.Count())
	}

	srv := &http.Server{
		Addr:              *listen,
		Handler:           server.New(cfg).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		log.Info("battlesnake server listening", "addr", *listen, "target", policy.String(), "record_dir", *recordDir)
		errc <- srv.ListenAndServe()
	}()

	exit := 0
	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "err", err)
			exit = 1
		}
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), *shutdownGrace)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("shutdown", "err", err)
		}
		cancel()
	}

	if recorder != nil {
		if err := recorder.Close(); err != nil {
			log.Error("final archive flush", "err", err)
			exit = 1
		}
		batches, written, _ := recorder.Stats()
		log.Info("decision archive closed", "batches", batches, "rows", written)
	}
	if games != nil {
		_ = games.Close()
	}
	return exit
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

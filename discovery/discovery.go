// Package discovery finds published game IDs by crawling leaderboard pages.
package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
)

type Config struct {
	LeaderboardURLs []string
	// RequestDelay is the pause between player page requests.
	RequestDelay time.Duration
	// MaxPlayers caps players checked per leaderboard. 0 means no limit.
	MaxPlayers int
	UserAgent  string
}

func DefaultConfig() Config {
	return Config{
		LeaderboardURLs: []string{
			"https://play.battlesnake.com/leaderboard/standard",
		},
		RequestDelay: 500 * time.Millisecond,
		MaxPlayers:   20,
		UserAgent:    "hungrysnek/1.0 (replay)",
	}
}

var (
	gameIDRe = regexp.MustCompile(`/game/([a-f0-9-]+)`)
	playerRe = regexp.MustCompile(`/leaderboard/[^/]+/([^/]+)/stats`)
	arenaRe  = regexp.MustCompile(`/leaderboard/([^/]+)/?$`)
)

// Worker crawls leaderboards and remembers every game ID it has handed out.
type Worker struct {
	cfg    Config
	client *http.Client
	log    *slog.Logger

	mu    sync.RWMutex
	known map[string]bool
}

// NewWorker starts from the known IDs, which are never reported. client and
// log may be nil.
func NewWorker(cfg Config, known map[string]bool, client *http.Client, log *slog.Logger) *Worker {
	if known == nil {
		known = make(map[string]bool)
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Worker{cfg: cfg, client: client, log: log.With("component", "discovery"), known: known}
}

// Discover sends every new game ID to out and returns how many it sent.
// A failing page is logged and skipped.
func (w *Worker) Discover(ctx context.Context, out chan<- string) (int, error) {
	total := 0
	for _, board := range w.cfg.LeaderboardURLs {
		players, arena, err := w.leaderboardPlayers(ctx, board)
		if err != nil {
			if ctx.Err() != nil {
				return total, ctx.Err()
			}
			w.log.Warn("scrape leaderboard", "url", board, "err", err)
			continue
		}
		if w.cfg.MaxPlayers > 0 && len(players) > w.cfg.MaxPlayers {
			players = players[:w.cfg.MaxPlayers]
		}
		w.log.Info("leaderboard scraped", "arena", arena, "players", len(players))

		found := 0
		for i, p := range players {
			if i > 0 && w.cfg.RequestDelay > 0 {
				select {
				case <-ctx.Done():
					return total, ctx.Err()
				case <-time.After(w.cfg.RequestDelay):
				}
			}

			ids, err := w.PlayerGames(ctx, p.statsURL)
			if err != nil {
				if ctx.Err() != nil {
					return total, ctx.Err()
				}
				w.log.Warn("scrape player", "player", p.username, "err", err)
				continue
			}
			for _, id := range ids {
				if !w.markKnown(id) {
					continue
				}
				select {
				case out <- id:
				case <-ctx.Done():
					return total, ctx.Err()
				}
				found++
				total++
			}
		}
		w.log.Info("leaderboard done", "arena", arena, "new_games", found)
	}
	return total, nil
}

// markKnown records id and reports whether it was new.
func (w *Worker) markKnown(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.known[id] {
		return false
	}
	w.known[id] = true
	return true
}

func (w *Worker) AddKnownID(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.known[id] = true
}

type playerInfo struct {
	username string
	statsURL string
}

func (w *Worker) fetch(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	if w.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", w.cfg.UserAgent)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: status %d", pageURL, resp.StatusCode)
	}
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", pageURL, err)
	}
	return doc, nil
}

// leaderboardPlayers lists player stats pages linked from a leaderboard.
// Links are resolved against the leaderboard URL.
func (w *Worker) leaderboardPlayers(ctx context.Context, boardURL string) ([]playerInfo, string, error) {
	base, err := url.Parse(boardURL)
	if err != nil {
		return nil, "", fmt.Errorf("parse leaderboard url: %w", err)
	}
	doc, err := w.fetch(ctx, boardURL)
	if err != nil {
		return nil, "", err
	}

	arena := "unknown"
	if m := arenaRe.FindStringSubmatch(base.Path); len(m) >= 2 {
		arena = m[1]
	}

	var players []playerInfo
	seen := make(map[string]bool)
	doc.Find("a[href*='/leaderboard/']").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		m := playerRe.FindStringSubmatch(href)
		if len(m) < 2 || seen[m[1]] {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		seen[m[1]] = true
		players = append(players, playerInfo{username: m[1], statsURL: base.ResolveReference(ref).String()})
	})
	return players, arena, nil
}

// PlayerGames returns the game IDs linked from a player stats page, in page
// order and without duplicates.
func (w *Worker) PlayerGames(ctx context.Context, statsURL string) ([]string, error) {
	doc, err := w.fetch(ctx, statsURL)
	if err != nil {
		return nil, err
	}

	var ids []string
	seen := make(map[string]bool)
	doc.Find("a[href*='/game/']").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		if m := gameIDRe.FindStringSubmatch(href); len(m) >= 2 && !seen[m[1]] {
			seen[m[1]] = true
			ids = append(ids, m[1])
		}
	})
	return ids, nil
}

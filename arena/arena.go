// Package arena plays local games between selector-driven snakes.
//
// Every living snake decides from its own point of view (YouId set to its
// ID) and all moves are applied simultaneously with the rules package.
package arena

import (
	"context"
	"fmt"
	"math/rand"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/brensch/hungrysnek/game"
	"github.com/brensch/hungrysnek/rules"
	"github.com/brensch/hungrysnek/selector"
	"github.com/brensch/hungrysnek/store"
)

const startLength = 3

type Config struct {
	Snakes   int
	Width    int
	Height   int
	MaxTurns int
	Food     rules.FoodSettings
	Selector *selector.Selector
}

func DefaultConfig() Config {
	return Config{
		Snakes:   2,
		Width:    11,
		Height:   11,
		MaxTurns: 500,
		Food:     rules.DefaultFoodSettings,
	}
}

func (c Config) validate() error {
	if c.Snakes < 1 {
		return fmt.Errorf("need at least one snake, got %d", c.Snakes)
	}
	if c.Width < 3 || c.Height < 3 {
		return fmt.Errorf("board %dx%d too small", c.Width, c.Height)
	}
	if c.Snakes > len(startPoints(int32(c.Width), int32(c.Height))) {
		return fmt.Errorf("at most %d snakes fit on the board", len(startPoints(int32(c.Width), int32(c.Height))))
	}
	return nil
}

// Result summarises one finished game.
type Result struct {
	GameID string
	// WinnerID is empty for a draw, a solo game, or a game cut short.
	WinnerID  string
	Turns     int
	Decisions int
	// Defaults counts decisions that fell back to the default move.
	Defaults int
	// Blunders counts moves that were illegal while a legal move existed.
	Blunders int
	// Lengths holds each snake's length when it died or the game ended.
	Lengths map[string]int
	Final   *game.GameState
	// Cancelled is set when ctx ended the game early.
	Cancelled bool
}

// DefaultRate is Defaults over Decisions.
func (r Result) DefaultRate() float64 {
	if r.Decisions == 0 {
		return 0
	}
	return float64(r.Defaults) / float64(r.Decisions)
}

// startPoints are the spread start cells used by the standard server, in
// preference order.
func startPoints(w, h int32) []game.Point {
	pts := []game.Point{
		{X: 1, Y: 1}, {X: w - 2, Y: h - 2}, {X: 1, Y: h - 2}, {X: w - 2, Y: 1},
		{X: w / 2, Y: 1}, {X: w / 2, Y: h - 2}, {X: 1, Y: h / 2}, {X: w - 2, Y: h / 2},
	}
	seen := make(map[game.Point]bool, len(pts))
	out := pts[:0]
	for _, p := range pts {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

// InitialState places cfg.Snakes stacked snakes on shuffled start points and
// spawns the minimum food.
func InitialState(cfg Config, rng *rand.Rand) *game.GameState {
	w, h := int32(cfg.Width), int32(cfg.Height)
	pts := startPoints(w, h)
	rng.Shuffle(len(pts), func(i, j int) { pts[i], pts[j] = pts[j], pts[i] })

	state := &game.GameState{Width: w, Height: h}
	for i := 0; i < cfg.Snakes; i++ {
		body := make([]game.Point, startLength)
		for j := range body {
			body[j] = pts[i]
		}
		state.Snakes = append(state.Snakes, game.Snake{
			Id:     fmt.Sprintf("snake%d", i+1),
			Health: 100,
			Body:   body,
		})
	}
	rules.ApplyFoodSettings(state, rng, rules.FoodSettings{MinimumFood: cfg.Food.MinimumFood})
	return state
}

// Play runs one game to completion, cfg.MaxTurns, or ctx cancellation. It
// returns the result and one decision row per snake per turn.
func Play(ctx context.Context, cfg Config, rng *rand.Rand) (Result, []store.DecisionRow, error) {
	if err := cfg.validate(); err != nil {
		return Result{}, nil, err
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	sel := cfg.Selector
	if sel == nil {
		sel = selector.New(selector.Options{})
	}

	res := Result{GameID: uuid.NewString(), Lengths: make(map[string]int, cfg.Snakes)}
	state := InitialState(cfg, rng)
	solo := cfg.Snakes == 1
	rows := make([]store.DecisionRow, 0, 64)

	for !rules.IsGameOver(state, solo) {
		if cfg.MaxTurns > 0 && int(state.Turn) >= cfg.MaxTurns {
			break
		}
		if ctx.Err() != nil {
			res.Cancelled = true
			break
		}

		moves := make(map[string]game.Direction, len(state.Snakes))
		for _, s := range state.Snakes {
			view := state.Clone()
			view.YouId = s.Id

			start := time.Now()
			d := sel.Decide(view)
			row := store.NewDecisionRow(res.GameID, store.SourceArena, view, d, start)
			row.LatencyMicros = time.Since(start).Microseconds()
			rows = append(rows, row)

			moves[s.Id] = d.Move
			res.Decisions++
			if d.Default() {
				res.Defaults++
			}
			if blunder(view, d.Move) {
				res.Blunders++
			}
		}

		next := rules.NextStateSimultaneousWithFoodSettings(state, moves, rng, cfg.Food)
		for _, s := range state.Snakes {
			if next.Snake(s.Id) == nil {
				res.Lengths[s.Id] = len(s.Body)
			}
		}
		state = next
	}

	for _, s := range state.Snakes {
		res.Lengths[s.Id] = len(s.Body)
	}
	if !solo {
		res.WinnerID = rules.Winner(state)
	}
	res.Turns = int(state.Turn)
	res.Final = state
	return res, rows, nil
}

// blunder reports whether move is illegal for the YouId snake although at
// least one legal move exists.
func blunder(state *game.GameState, move game.Direction) bool {
	legal := rules.LegalMoves(state)
	return len(legal) > 0 && !slices.Contains(legal, move)
}

// RunMany plays games on workers goroutines. Each game gets its own RNG
// seeded from seed and the game index. onGame is called once per finished
// game, never concurrently.
func RunMany(ctx context.Context, cfg Config, games, workers int, seed int64, onGame func(Result, []store.DecisionRow)) error {
	if err := cfg.validate(); err != nil {
		return err
	}
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan int)
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				res, rows, err := Play(ctx, cfg, rand.New(rand.NewSource(seed+int64(i)*1000003)))
				mu.Lock()
				if err != nil && firstErr == nil {
					firstErr = err
				}
				if err == nil && onGame != nil {
					onGame(res, rows)
				}
				mu.Unlock()
			}
		}()
	}

feed:
	for i := 0; i < games; i++ {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	return ctx.Err()
}

// Summary aggregates results, for dashboards and logs.
type Summary struct {
	Games     int
	Draws     int
	Wins      map[string]int
	Turns     int
	Decisions int
	Defaults  int
	Blunders  int
	lengthSum int
	lengthN   int
}

func (s *Summary) Add(r Result) {
	if s.Wins == nil {
		s.Wins = make(map[string]int)
	}
	s.Games++
	if r.WinnerID == "" {
		s.Draws++
	} else {
		s.Wins[r.WinnerID]++
	}
	s.Turns += r.Turns
	s.Decisions += r.Decisions
	s.Defaults += r.Defaults
	s.Blunders += r.Blunders
	for _, l := range r.Lengths {
		s.lengthSum += l
		s.lengthN++
	}
}

func (s Summary) AvgLength() float64 {
	if s.lengthN == 0 {
		return 0
	}
	return float64(s.lengthSum) / float64(s.lengthN)
}

func (s Summary) AvgTurns() float64 {
	if s.Games == 0 {
		return 0
	}
	return float64(s.Turns) / float64(s.Games)
}

func (s Summary) DefaultRate() float64 {
	if s.Decisions == 0 {
		return 0
	}
	return float64(s.Defaults) / float64(s.Decisions)
}

// WinnerIDs lists snakes with at least one win, sorted by ID.
func (s Summary) WinnerIDs() []string {
	ids := make([]string, 0, len(s.Wins))
	for id := range s.Wins {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

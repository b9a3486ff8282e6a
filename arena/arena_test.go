package arena

import (
	"context"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brensch/hungrysnek/game"
	"github.com/brensch/hungrysnek/rules"
	"github.com/brensch/hungrysnek/selector"
	"github.com/brensch/hungrysnek/store"
)

func TestInitialState(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Snakes = 4

	state := InitialState(cfg, rand.New(rand.NewSource(1)))

	require.Len(t, state.Snakes, 4)
	assert.Equal(t, int32(11), state.Width)
	assert.Len(t, state.Food, 1)

	heads := make(map[game.Point]bool)
	for _, s := range state.Snakes {
		require.Len(t, s.Body, startLength)
		assert.Equal(t, int32(100), s.Health)
		for _, p := range s.Body {
			assert.Equal(t, s.Head(), p, "start bodies are stacked")
		}
		assert.True(t, state.InBounds(s.Head()))
		heads[s.Head()] = true
	}
	assert.Len(t, heads, 4)

	again := InitialState(cfg, rand.New(rand.NewSource(1)))
	assert.Equal(t, state, again, "same seed, same board")
}

func TestStartPointsDedupeOnSmallBoards(t *testing.T) {
	pts := startPoints(3, 3)
	seen := make(map[game.Point]bool)
	for _, p := range pts {
		assert.False(t, seen[p], "duplicate start %v", p)
		seen[p] = true
	}
	assert.Len(t, pts, 1)
}

func TestPlay_Duel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxTurns = 300

	res, rows, err := Play(context.Background(), cfg, rand.New(rand.NewSource(42)))
	require.NoError(t, err)

	assert.NotEmpty(t, res.GameID)
	assert.False(t, res.Cancelled)
	assert.LessOrEqual(t, res.Turns, 300)
	assert.Greater(t, res.Turns, 0)
	assert.Len(t, rows, res.Decisions)
	assert.Len(t, res.Lengths, 2)
	assert.LessOrEqual(t, res.Defaults, res.Decisions)
	assert.LessOrEqual(t, res.Blunders, res.Defaults, "checked moves are always legal")
	require.NotNil(t, res.Final)
	assert.Equal(t, int32(res.Turns), res.Final.Turn)

	if res.WinnerID != "" {
		assert.NotNil(t, res.Final.Snake(res.WinnerID))
	}
	if res.Turns < 300 {
		assert.True(t, rules.IsGameOver(res.Final, false))
	}

	for _, row := range rows {
		assert.Equal(t, res.GameID, row.GameID)
		assert.Equal(t, store.SourceArena, row.Source)
		assert.Contains(t, []string{"snake1", "snake2"}, row.SnakeID)
	}
}

func TestPlay_SoloStopsAtMaxTurns(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Snakes = 1
	cfg.MaxTurns = 20

	res, rows, err := Play(context.Background(), cfg, rand.New(rand.NewSource(7)))
	require.NoError(t, err)

	assert.Empty(t, res.WinnerID)
	assert.LessOrEqual(t, res.Turns, 20)
	assert.Len(t, rows, res.Turns)
}

func TestPlay_UsesConfiguredSelector(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxTurns = 5
	cfg.Selector = selector.New(selector.Options{Target: selector.ClosestFood})

	_, rows, err := Play(context.Background(), cfg, rand.New(rand.NewSource(3)))
	require.NoError(t, err)
	assert.NotEmpty(t, rows)
}

func TestPlay_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, rows, err := Play(ctx, DefaultConfig(), rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.True(t, res.Cancelled)
	assert.Zero(t, res.Turns)
	assert.Empty(t, rows)
	assert.Empty(t, res.WinnerID)
}

func TestPlay_InvalidConfig(t *testing.T) {
	for name, mutate := range map[string]func(*Config){
		"no snakes":  func(c *Config) { c.Snakes = 0 },
		"too many":   func(c *Config) { c.Snakes = 9 },
		"tiny board": func(c *Config) { c.Width = 2 },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(&cfg)
			_, _, err := Play(context.Background(), cfg, nil)
			assert.Error(t, err)
		})
	}
}

func TestRunMany(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxTurns = 100

	var (
		mu    sync.Mutex
		ids   = make(map[string]bool)
		total Summary
	)
	err := RunMany(context.Background(), cfg, 6, 3, 99, func(r Result, rows []store.DecisionRow) {
		mu.Lock()
		defer mu.Unlock()
		ids[r.GameID] = true
		total.Add(r)
		assert.Len(t, rows, r.Decisions)
	})
	require.NoError(t, err)

	assert.Len(t, ids, 6)
	assert.Equal(t, 6, total.Games)
	assert.Equal(t, total.Games, total.Draws+sumWins(total))
}

func TestRunMany_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n := 0
	err := RunMany(ctx, DefaultConfig(), 50, 2, 1, func(Result, []store.DecisionRow) { n++ })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, n, 50)
}

func sumWins(s Summary) int {
	n := 0
	for _, w := range s.Wins {
		n += w
	}
	return n
}

func TestSummary(t *testing.T) {
	var s Summary
	s.Add(Result{WinnerID: "snake1", Turns: 10, Decisions: 20, Defaults: 2, Lengths: map[string]int{"snake1": 5, "snake2": 3}})
	s.Add(Result{WinnerID: "", Turns: 30, Decisions: 60, Defaults: 0, Lengths: map[string]int{"snake1": 4, "snake2": 4}})
	s.Add(Result{WinnerID: "snake2", Turns: 20, Decisions: 40, Defaults: 10, Lengths: map[string]int{"snake1": 3, "snake2": 6}})

	assert.Equal(t, 3, s.Games)
	assert.Equal(t, 1, s.Draws)
	assert.Equal(t, []string{"snake1", "snake2"}, s.WinnerIDs())
	assert.InDelta(t, 20.0, s.AvgTurns(), 1e-9)
	assert.InDelta(t, 12.0/120.0, s.DefaultRate(), 1e-9)
	assert.InDelta(t, 25.0/6.0, s.AvgLength(), 1e-9)

	var empty Summary
	assert.Zero(t, empty.AvgLength())
	assert.Zero(t, empty.AvgTurns())
	assert.Zero(t, empty.DefaultRate())
}

func TestBlunder(t *testing.T) {
	open := &game.GameState{
		Width: 5, Height: 5, YouId: "me",
		Snakes: []game.Snake{{Id: "me", Health: 100, Body: []game.Point{{X: 0, Y: 2}, {X: 1, Y: 2}, {X: 2, Y: 2}}}},
	}
	assert.False(t, blunder(open, game.Down))
	assert.False(t, blunder(open, game.Up))
	assert.True(t, blunder(open, game.Left), "wall while up and down are free")
	assert.True(t, blunder(open, game.Right), "own neck")

	boxed := &game.GameState{
		Width: 5, Height: 5, YouId: "me",
		Snakes: []game.Snake{{Id: "me", Health: 100, Body: []game.Point{
			{X: 0, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 0}, {X: 2, Y: 0},
		}}},
	}
	require.Empty(t, rules.LegalMoves(boxed))
	for _, d := range game.Directions {
		assert.False(t, blunder(boxed, d), "no legal move to miss")
	}
}

func TestSummary_Blunders(t *testing.T) {
	var s Summary
	s.Add(Result{WinnerID: "snake1", Decisions: 10, Defaults: 3, Blunders: 2})
	s.Add(Result{WinnerID: "snake1", Decisions: 10, Defaults: 1, Blunders: 1})
	assert.Equal(t, 3, s.Blunders)
}

func TestResultDefaultRate(t *testing.T) {
	assert.Zero(t, Result{}.DefaultRate())
	assert.InDelta(t, 0.25, Result{Decisions: 4, Defaults: 1}.DefaultRate(), 1e-9)
}

func TestRender(t *testing.T) {
	state := &game.GameState{
		Width: 3, Height: 3, Turn: 4,
		Food: []game.Point{{X: 2, Y: 2}},
		Snakes: []game.Snake{
			{Id: "a", Health: 100, Body: []game.Point{{X: 0, Y: 0}, {X: 1, Y: 0}}},
			{Id: "b", Health: 100, Body: []game.Point{{X: 0, Y: 2}, {X: 0, Y: 2}}},
		},
	}

	assert.Equal(t, "turn 4\nA a .\n. . .\nB . F\n", Render(state))
	assert.Empty(t, Render(nil))
}

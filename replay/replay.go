package replay

import (
	"fmt"
	"time"

	"github.com/brensch/hungrysnek/game"
	"github.com/brensch/hungrysnek/selector"
	"github.com/brensch/hungrysnek/store"
)

// FrameState converts frame into a snapshot controlled by egoID. Y is flipped
// so that row 0 is the top of the board, and dead snakes are dropped.
func FrameState(g *Game, frame *Frame, egoID string) *game.GameState {
	h := int32(g.Height)
	flip := func(c Coord) game.Point {
		return game.Point{X: int32(c.X), Y: h - 1 - int32(c.Y)}
	}

	state := &game.GameState{
		Width:  int32(g.Width),
		Height: h,
		YouId:  egoID,
		Turn:   int32(frame.Turn),
		Food:   make([]game.Point, len(frame.Food)),
	}
	for i, f := range frame.Food {
		state.Food[i] = flip(f)
	}
	for i := range frame.Snakes {
		s := &frame.Snakes[i]
		if !s.Alive() {
			continue
		}
		snake := game.Snake{Id: s.ID, Health: int32(s.Health), Body: make([]game.Point, len(s.Body))}
		for j, c := range s.Body {
			snake.Body[j] = flip(c)
		}
		state.Snakes = append(state.Snakes, snake)
	}
	return state
}

// ActualMove is the move egoID made from frame i to frame i+1, read from the
// head delta. ok is false when there is no next frame or the heads are not
// adjacent.
func ActualMove(g *Game, i int, egoID string) (game.Direction, bool) {
	if i < 0 || i+1 >= len(g.Frames) {
		return 0, false
	}
	cur := FrameState(g, &g.Frames[i], egoID).Snake(egoID)
	if cur == nil {
		return 0, false
	}

	next := &g.Frames[i+1]
	for j := range next.Snakes {
		s := &next.Snakes[j]
		if s.ID != egoID || len(s.Body) == 0 {
			continue
		}
		head := game.Point{X: int32(s.Body[0].X), Y: int32(g.Height) - 1 - int32(s.Body[0].Y)}
		return game.DirectionBetween(cur.Head(), head)
	}
	return 0, false
}

// ResolveSnake finds the ID of the snake whose ID or name equals want.
func ResolveSnake(g *Game, want string) (string, error) {
	for _, f := range g.Frames {
		for _, s := range f.Snakes {
			if s.ID == want || s.Name == want {
				return s.ID, nil
			}
		}
	}
	return "", fmt.Errorf("snake %q not in game %s", want, g.ID)
}

// Report compares the selector with what a snake actually played.
type Report struct {
	GameID  string
	SnakeID string
	// Turns counts frames where the snake was alive and its next move is known.
	Turns    int
	Agreed   int
	Defaults int
	Rows     []store.DecisionRow
}

// Agreement is the share of Turns where the selector matched the real move.
func (r Report) Agreement() float64 {
	if r.Turns == 0 {
		return 0
	}
	return float64(r.Agreed) / float64(r.Turns)
}

// Replay runs sel over every frame in which egoID is alive.
func Replay(g *Game, egoID string, sel *selector.Selector) Report {
	if sel == nil {
		sel = selector.New(selector.Options{})
	}
	rep := Report{GameID: g.ID, SnakeID: egoID}

	for i := range g.Frames {
		state := FrameState(g, &g.Frames[i], egoID)
		if state.Snake(egoID) == nil {
			continue
		}

		start := time.Now()
		d := sel.Decide(state)
		elapsed := time.Since(start)

		row := store.NewDecisionRow(g.ID, store.SourceReplay, state, d, start)
		row.LatencyMicros = elapsed.Microseconds()

		if actual, ok := ActualMove(g, i, egoID); ok {
			row.Actual = actual.String()
			rep.Turns++
			if actual == d.Move {
				rep.Agreed++
			}
		}
		if d.Default() {
			rep.Defaults++
		}
		rep.Rows = append(rep.Rows, row)
	}
	return rep
}

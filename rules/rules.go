// Package rules advances a board by one turn.
//
// It backs the local arena; the move selector never calls it. Elimination
// follows standard Battlesnake rules: walls, starvation, body collisions and
// head-to-head (shorter snake dies, equal lengths both die).
package rules

import (
	"math/rand"

	"github.com/brensch/hungrysnek/game"
)

// LegalMoves returns the directions that keep the YouId snake alive for one
// turn, ignoring what the other snakes do. Tails vacate unless stacked.
func LegalMoves(state *game.GameState) []game.Direction {
	you := state.Snake(state.YouId)
	if you == nil || you.Health <= 0 || len(you.Body) == 0 {
		return []game.Direction{}
	}

	head := you.Head()
	moves := []game.Direction{}
	for _, d := range game.Directions {
		if isSafe(state, head.Step(d, 1)) {
			moves = append(moves, d)
		}
	}
	return moves
}

func isSafe(state *game.GameState, p game.Point) bool {
	if !state.InBounds(p) {
		return false
	}
	for _, s := range state.Snakes {
		if s.Health <= 0 || len(s.Body) == 0 {
			continue
		}
		for _, bp := range s.Body[:len(s.Body)-1] {
			if bp == p {
				return false
			}
		}
	}
	return true
}

// NextStateSimultaneous applies one move per living snake. Snakes without a
// move are eliminated. The input is never mutated.
func NextStateSimultaneous(state *game.GameState, moves map[string]game.Direction) *game.GameState {
	return NextStateSimultaneousWithFoodSettings(state, moves, nil, FoodSettings{})
}

// NextStateSimultaneousWithFoodSettings is NextStateSimultaneous followed by
// food spawning.
func NextStateSimultaneousWithFoodSettings(state *game.GameState, moves map[string]game.Direction, rng *rand.Rand, settings FoodSettings) *game.GameState {
	next := state.Clone()
	next.Turn++

	// 1. Heads
	newHeads := make(map[string]game.Point, len(next.Snakes))
	for i := range next.Snakes {
		s := &next.Snakes[i]
		if s.Health <= 0 || len(s.Body) == 0 {
			continue
		}
		move, ok := moves[s.Id]
		if !ok || !move.Valid() {
			continue
		}
		newHeads[s.Id] = s.Head().Step(move, 1)
	}

	// 2. Food
	ate := make(map[string]bool)
	remaining := next.Food[:0:0]
	for _, f := range next.Food {
		eaten := false
		for id, h := range newHeads {
			if h == f {
				ate[id] = true
				eaten = true
			}
		}
		if !eaten {
			remaining = append(remaining, f)
		}
	}
	next.Food = remaining

	// 3. Bodies: normal move, then grow by duplicating the new tail.
	for i := range next.Snakes {
		s := &next.Snakes[i]
		head, ok := newHeads[s.Id]
		if !ok {
			s.Health = 0
			continue
		}
		body := make([]game.Point, 0, len(s.Body)+1)
		body = append(body, head)
		body = append(body, s.Body[:len(s.Body)-1]...)
		if ate[s.Id] {
			s.Health = 100
			body = append(body, body[len(body)-1])
		} else {
			s.Health--
		}
		s.Body = body
	}

	// 4. Eliminations
	dead := make(map[string]bool)
	for _, s := range next.Snakes {
		if s.Health <= 0 {
			dead[s.Id] = true
			continue
		}
		head := s.Head()
		if !next.InBounds(head) {
			dead[s.Id] = true
			continue
		}
		for _, other := range next.Snakes {
			if other.Health <= 0 {
				continue
			}
			for j, p := range other.Body {
				if j == 0 {
					continue
				}
				if p == head {
					dead[s.Id] = true
				}
			}
		}
	}

	for i := 0; i < len(next.Snakes); i++ {
		a := next.Snakes[i]
		if a.Health <= 0 {
			continue
		}
		for j := i + 1; j < len(next.Snakes); j++ {
			b := next.Snakes[j]
			if b.Health <= 0 || a.Head() != b.Head() {
				continue
			}
			switch {
			case len(a.Body) > len(b.Body):
				dead[b.Id] = true
			case len(b.Body) > len(a.Body):
				dead[a.Id] = true
			default:
				dead[a.Id] = true
				dead[b.Id] = true
			}
		}
	}

	alive := make([]game.Snake, 0, len(next.Snakes))
	for _, s := range next.Snakes {
		if !dead[s.Id] {
			alive = append(alive, s)
		}
	}
	next.Snakes = alive

	applyFoodRules(next, rng, settings)
	return next
}

// IsGameOver reports whether at most one snake is left. A solo game ends only
// when its snake is gone.
func IsGameOver(state *game.GameState, solo bool) bool {
	living := 0
	for _, s := range state.Snakes {
		if s.Health > 0 {
			living++
		}
	}
	if solo {
		return living == 0
	}
	return living <= 1
}

// Winner returns the single surviving snake id, or "" for a draw or an
// unfinished game.
func Winner(state *game.GameState) string {
	var id string
	for _, s := range state.Snakes {
		if s.Health <= 0 {
			continue
		}
		if id != "" {
			return ""
		}
		id = s.Id
	}
	return id
}

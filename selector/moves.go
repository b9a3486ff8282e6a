package selector

import (
	"slices"

	"github.com/brensch/hungrysnek/game"
)

// towardsFood returns the directions that close the gap to the target food
// on each axis, in the order Left, Right, Up, Down.
func towardsFood(food []game.Point, head game.Point, policy TargetPolicy) ([]game.Direction, error) {
	if len(food) == 0 {
		return nil, ErrNoFoodTarget
	}

	target := pickTarget(food, head, policy)

	moves := make([]game.Direction, 0, 2)
	if target.X < head.X {
		moves = append(moves, game.Left)
	}
	if target.X > head.X {
		moves = append(moves, game.Right)
	}
	if target.Y < head.Y {
		moves = append(moves, game.Up)
	}
	if target.Y > head.Y {
		moves = append(moves, game.Down)
	}
	return moves, nil
}

func pickTarget(food []game.Point, head game.Point, policy TargetPolicy) game.Point {
	if policy != ClosestFood {
		return food[0]
	}
	best := food[0]
	bestDist := head.Manhattan(best)
	for _, f := range food[1:] {
		if d := head.Manhattan(f); d < bestDist {
			best, bestDist = f, d
		}
	}
	return best
}

// fallback returns every canonical direction not already in tried.
func fallback(tried []game.Direction) []game.Direction {
	moves := make([]game.Direction, 0, len(game.Directions))
	for _, d := range game.Directions {
		if !slices.Contains(tried, d) {
			moves = append(moves, d)
		}
	}
	return moves
}

// isSafe projects the head one and two cells along d. Both cells must be on
// the board and clear of every snake body. Tails are excluded because they
// move away this turn.
func isSafe(state *game.GameState, head game.Point, d game.Direction) bool {
	for n := int32(1); n <= 2; n++ {
		p := head.Step(d, n)
		if !state.InBounds(p) || blocked(state.Snakes, p) {
			return false
		}
	}
	return true
}

func blocked(snakes []game.Snake, p game.Point) bool {
	for _, s := range snakes {
		if len(s.Body) == 0 {
			continue
		}
		for _, bp := range s.Body[:len(s.Body)-1] {
			if bp == p {
				return true
			}
		}
	}
	return false
}

// Package selector chooses the controlled snake's next move.
//
// The algorithm is a one-step greedy evaluation: head toward a food target,
// reject any direction whose next two cells are out of bounds or occupied,
// then try the remaining directions before giving up and moving down. With
// no direction toward food at all, the snake moves down straight away.
//
// Decide is a pure function of its snapshot and is safe for concurrent use.
package selector

import (
	"errors"
	"fmt"

	"github.com/brensch/hungrysnek/game"
)

const (
	// ShoutHungry accompanies every move that passed the safety check.
	ShoutHungry = "I'm hungry"
	// ShoutDefault accompanies the default move.
	ShoutDefault = "Oh Drat"
)

// DefaultMove is returned when no evaluated direction is safe.
const DefaultMove = game.Down

var (
	ErrSelfNotFound = errors.New("controlled snake not found")
	ErrNoFoodTarget = errors.New("no food on board")
	ErrNoSafeMove   = errors.New("no safe move")
)

// TargetPolicy picks which food cell the snake heads for.
type TargetPolicy int

const (
	// FirstFood targets the first entry in the snapshot's food list.
	FirstFood TargetPolicy = iota
	// ClosestFood targets the food with the smallest Manhattan distance,
	// breaking ties by list order.
	ClosestFood
)

func (p TargetPolicy) String() string {
	switch p {
	case FirstFood:
		return "first"
	case ClosestFood:
		return "closest"
	default:
		return fmt.Sprintf("TargetPolicy(%d)", int(p))
	}
}

// ParseTargetPolicy accepts "first" or "closest".
func ParseTargetPolicy(s string) (TargetPolicy, error) {
	switch s {
	case "", "first":
		return FirstFood, nil
	case "closest":
		return ClosestFood, nil
	default:
		return 0, fmt.Errorf("unknown target policy %q", s)
	}
}

// Options configures a Selector. The zero value is the default behavior.
type Options struct {
	Target TargetPolicy
}

// Decision is the chosen move plus the taunt to send with it.
// Reason is nil when the move passed the safety check, otherwise it explains
// why the default move was used.
type Decision struct {
	Move   game.Direction
	Shout  string
	Reason error
}

// Default reports whether d is the fallback decision.
func (d Decision) Default() bool { return d.Reason != nil }

type Selector struct {
	opts Options
}

func New(opts Options) *Selector {
	return &Selector{opts: opts}
}

var defaultSelector = New(Options{})

// Decide runs the default selector.
func Decide(state *game.GameState) Decision {
	return defaultSelector.Decide(state)
}

// Decide never fails: every error is folded into the default decision.
func (s *Selector) Decide(state *game.GameState) Decision {
	if state == nil {
		return fallbackDecision(fmt.Errorf("nil state: %w", ErrSelfNotFound))
	}

	you, err := findSelf(state)
	if err != nil {
		return fallbackDecision(err)
	}

	candidates, err := towardsFood(state.Food, you.Head(), s.opts.Target)
	if err != nil {
		return fallbackDecision(err)
	}
	if len(candidates) == 0 {
		return fallbackDecision(fmt.Errorf("food under head at (%d,%d): %w", you.Head().X, you.Head().Y, ErrNoFoodTarget))
	}

	if d, ok := firstSafe(state, you, candidates); ok {
		return Decision{Move: d, Shout: ShoutHungry}
	}
	if d, ok := firstSafe(state, you, fallback(candidates)); ok {
		return Decision{Move: d, Shout: ShoutHungry}
	}

	return fallbackDecision(fmt.Errorf("head at (%d,%d): %w", you.Head().X, you.Head().Y, ErrNoSafeMove))
}

func fallbackDecision(reason error) Decision {
	return Decision{Move: DefaultMove, Shout: ShoutDefault, Reason: reason}
}

func findSelf(state *game.GameState) (*game.Snake, error) {
	you := state.Snake(state.YouId)
	if you == nil {
		return nil, fmt.Errorf("id %q: %w", state.YouId, ErrSelfNotFound)
	}
	if len(you.Body) == 0 {
		return nil, fmt.Errorf("id %q has no body: %w", state.YouId, ErrSelfNotFound)
	}
	return you, nil
}

func firstSafe(state *game.GameState, you *game.Snake, moves []game.Direction) (game.Direction, bool) {
	for _, d := range moves {
		if isSafe(state, you.Head(), d) {
			return d, true
		}
	}
	return 0, false
}

package rules

import (
	"math/rand"

	"github.com/brensch/hungrysnek/game"
)

// FoodSettings matches the Battlesnake server knobs:
// MinimumFood is topped up after every turn, and FoodSpawnChance is the
// percentage chance (0-100) of one extra food per turn.
type FoodSettings struct {
	MinimumFood     int
	FoodSpawnChance int
}

var DefaultFoodSettings = FoodSettings{MinimumFood: 1, FoodSpawnChance: 15}

// ApplyFoodSettings spawns food on free cells. A nil rng is seeded from the
// turn number so replays of the same state spawn the same food.
func ApplyFoodSettings(state *game.GameState, rng *rand.Rand, settings FoodSettings) {
	applyFoodRules(state, rng, settings)
}

func applyFoodRules(state *game.GameState, rng *rand.Rand, settings FoodSettings) {
	if state == nil || state.Width <= 0 || state.Height <= 0 {
		return
	}
	settings.FoodSpawnChance = min(max(settings.FoodSpawnChance, 0), 100)

	toSpawn := max(settings.MinimumFood-len(state.Food), 0)
	if toSpawn == 0 && settings.FoodSpawnChance == 0 {
		return
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(int64(state.Turn)*7919 + int64(state.Width)*31 + int64(state.Height)))
	}
	if settings.FoodSpawnChance > 0 && rng.Intn(100) < settings.FoodSpawnChance {
		toSpawn++
	}
	if toSpawn == 0 {
		return
	}

	occupied := make(map[game.Point]bool, int(state.Width*state.Height))
	for _, s := range state.Snakes {
		if s.Health <= 0 {
			continue
		}
		for _, p := range s.Body {
			occupied[p] = true
		}
	}
	for _, f := range state.Food {
		occupied[f] = true
	}

	free := make([]game.Point, 0, max(int(state.Width*state.Height)-len(occupied), 0))
	for y := int32(0); y < state.Height; y++ {
		for x := int32(0); x < state.Width; x++ {
			if p := (game.Point{X: x, Y: y}); !occupied[p] {
				free = append(free, p)
			}
		}
	}

	for ; toSpawn > 0 && len(free) > 0; toSpawn-- {
		i := rng.Intn(len(free))
		state.Food = append(state.Food, free[i])
		free[i] = free[len(free)-1]
		free = free[:len(free)-1]
	}
}

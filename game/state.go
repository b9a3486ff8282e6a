// Package game defines the board snapshot types shared by the move selector,
// the HTTP transport and the local simulator.
//
// A GameState is treated as immutable by everything that decides moves. Code
// that advances the game (rules, arena) works on a Clone.
package game

// Point is a board coordinate.
// (0,0) is the top-left cell and Y grows downward, matching the legacy
// Battlesnake wire protocol.
type Point struct {
	X int32
	Y int32
}

// Step returns p shifted n cells along d.
func (p Point) Step(d Direction, n int32) Point {
	o := Offsets[d]
	return Point{X: p.X + o.X*n, Y: p.Y + o.Y*n}
}

// Manhattan returns the grid distance between p and q.
func (p Point) Manhattan(q Point) int32 {
	return abs32(p.X-q.X) + abs32(p.Y-q.Y)
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

type Snake struct {
	Id     string
	Health int32
	Body   []Point
}

// Head returns Body[0]. The body must not be empty.
func (s *Snake) Head() Point { return s.Body[0] }

// GameState is a single turn snapshot.
// YouId selects the controlled snake.
type GameState struct {
	Width  int32
	Height int32
	Snakes []Snake
	Food   []Point
	YouId  string
	Turn   int32
}

// InBounds reports whether p lies within [0,Width) x [0,Height).
func (s *GameState) InBounds(p Point) bool {
	return p.X >= 0 && p.X < s.Width && p.Y >= 0 && p.Y < s.Height
}

// Snake returns the first snake with the given id, or nil.
func (s *GameState) Snake(id string) *Snake {
	for i := range s.Snakes {
		if s.Snakes[i].Id == id {
			return &s.Snakes[i]
		}
	}
	return nil
}

// Clone performs a deep copy of the game state.
func (s *GameState) Clone() *GameState {
	if s == nil {
		return nil
	}

	out := &GameState{
		Width:  s.Width,
		Height: s.Height,
		YouId:  s.YouId,
		Turn:   s.Turn,
	}

	if len(s.Food) > 0 {
		out.Food = make([]Point, len(s.Food))
		copy(out.Food, s.Food)
	}

	if len(s.Snakes) > 0 {
		out.Snakes = make([]Snake, len(s.Snakes))
		for i := range s.Snakes {
			out.Snakes[i] = Snake{Id: s.Snakes[i].Id, Health: s.Snakes[i].Health}
			if len(s.Snakes[i].Body) > 0 {
				out.Snakes[i].Body = make([]Point, len(s.Snakes[i].Body))
				copy(out.Snakes[i].Body, s.Snakes[i].Body)
			}
		}
	}

	return out
}

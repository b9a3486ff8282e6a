package game

import "fmt"

// Direction is one of the four moves a snake can make.
type Direction int

const (
	Up Direction = iota
	Down
	Left
	Right
)

// Directions is the canonical evaluation order.
var Directions = [...]Direction{Up, Down, Left, Right}

// Offsets maps each direction to its unit vector. Y grows downward.
var Offsets = [...]Point{
	Up:    {X: 0, Y: -1},
	Down:  {X: 0, Y: 1},
	Left:  {X: -1, Y: 0},
	Right: {X: 1, Y: 0},
}

var directionNames = [...]string{
	Up:    "up",
	Down:  "down",
	Left:  "left",
	Right: "right",
}

// Valid reports whether d is one of the four moves.
func (d Direction) Valid() bool {
	return d >= Up && d <= Right
}

// String returns the wire name of the direction.
func (d Direction) String() string {
	if !d.Valid() {
		return fmt.Sprintf("Direction(%d)", int(d))
	}
	return directionNames[d]
}

// ParseDirection is the inverse of String.
func ParseDirection(s string) (Direction, error) {
	for d, name := range directionNames {
		if name == s {
			return Direction(d), nil
		}
	}
	return 0, fmt.Errorf("unknown direction %q", s)
}

// DirectionBetween returns the direction that moves from a to an adjacent b.
func DirectionBetween(a, b Point) (Direction, bool) {
	delta := Point{X: b.X - a.X, Y: b.Y - a.Y}
	for d, o := range Offsets {
		if o == delta {
			return Direction(d), true
		}
	}
	return 0, false
}

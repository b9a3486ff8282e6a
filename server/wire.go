package server

import (
	"github.com/brensch/hungrysnek/game"
)

// Legacy Battlesnake API request/response types. Points travel as [x, y]
// pairs and Y grows downward.

// Coord is an [x, y] pair.
type Coord [2]int

func (c Coord) Point() game.Point {
	return game.Point{X: int32(c[0]), Y: int32(c[1])}
}

func CoordOf(p game.Point) Coord {
	return Coord{int(p.X), int(p.Y)}
}

type StartRequest struct {
	GameID string `json:"game_id"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type StartResponse struct {
	Name           string `json:"name"`
	Color          string `json:"color"`
	SecondaryColor string `json:"secondary_color,omitempty"`
	HeadURL        string `json:"head_url,omitempty"`
	HeadType       string `json:"head_type"`
	TailType       string `json:"tail_type"`
	Taunt          string `json:"taunt,omitempty"`
}

type Snake struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Taunt        string  `json:"taunt"`
	HealthPoints int     `json:"health_points"`
	Coords       []Coord `json:"coords"`
}

type MoveRequest struct {
	GameID     string  `json:"game_id"`
	Turn       int     `json:"turn"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Snakes     []Snake `json:"snakes"`
	DeadSnakes []Snake `json:"dead_snakes"`
	Food       []Coord `json:"food"`
	You        string  `json:"you"`
}

type MoveResponse struct {
	Move  string `json:"move"`
	Taunt string `json:"taunt,omitempty"`
}

type EndRequest struct {
	GameID     string   `json:"game_id"`
	Winners    []string `json:"winners,omitempty"`
	DeadSnakes []Snake  `json:"dead_snakes,omitempty"`
}

// GameState converts a move request into a board snapshot. Dead snakes are
// left off the board.
func (req *MoveRequest) GameState() *game.GameState {
	state := &game.GameState{
		Width:  int32(req.Width),
		Height: int32(req.Height),
		YouId:  req.You,
		Turn:   int32(req.Turn),
	}

	state.Food = make([]game.Point, len(req.Food))
	for i, f := range req.Food {
		state.Food[i] = f.Point()
	}

	state.Snakes = make([]game.Snake, len(req.Snakes))
	for i, s := range req.Snakes {
		snake := game.Snake{
			Id:     s.ID,
			Health: int32(s.HealthPoints),
			Body:   make([]game.Point, len(s.Coords)),
		}
		for j, c := range s.Coords {
			snake.Body[j] = c.Point()
		}
		state.Snakes[i] = snake
	}

	return state
}

// NewMoveRequest builds the wire form of a snapshot. Used by tests and tools
// that drive the server.
func NewMoveRequest(gameID string, state *game.GameState) MoveRequest {
	req := MoveRequest{
		GameID: gameID,
		Turn:   int(state.Turn),
		Width:  int(state.Width),
		Height: int(state.Height),
		You:    state.YouId,
		Food:   make([]Coord, len(state.Food)),
		Snakes: make([]Snake, len(state.Snakes)),
	}
	for i, f := range state.Food {
		req.Food[i] = CoordOf(f)
	}
	for i, s := range state.Snakes {
		ws := Snake{ID: s.Id, Name: s.Id, HealthPoints: int(s.Health), Coords: make([]Coord, len(s.Body))}
		for j, p := range s.Body {
			ws.Coords[j] = CoordOf(p)
		}
		req.Snakes[i] = ws
	}
	return req
}

// Package replay downloads finished games from the Battlesnake engine and
// replays the move selector over them.
package replay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

type Config struct {
	// EngineURL is a format string taking the game ID.
	EngineURL      string
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
}

func DefaultConfig() Config {
	return Config{
		EngineURL:      "wss://engine.battlesnake.com/games/%s/events",
		ConnectTimeout: 10 * time.Second,
		ReadTimeout:    30 * time.Second,
	}
}

// Event is one message from the engine event stream.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type GameInfo struct {
	Game    GameDetails `json:"game"`
	Ruleset RulesetInfo `json:"ruleset"`
}

type GameDetails struct {
	ID      string `json:"id"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Timeout int    `json:"timeout"`
}

type RulesetInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Frame is one turn as the engine reports it. Coordinates have Y growing
// upward from the bottom row.
type Frame struct {
	Turn   int         `json:"turn"`
	Snakes []SnakeData `json:"snakes"`
	Food   []Coord     `json:"food"`
	Board  BoardData   `json:"board,omitempty"`
}

type SnakeData struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Health int     `json:"health"`
	Body   []Coord `json:"body"`
	Author string  `json:"author,omitempty"`
	Death  *Death  `json:"death,omitempty"`
}

// Alive reports whether the snake is still on the board in this frame.
func (s *SnakeData) Alive() bool {
	return s.Death == nil && s.Health > 0 && len(s.Body) > 0
}

type Coord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type BoardData struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type Death struct {
	Cause string `json:"cause"`
	Turn  int    `json:"turn"`
}

// Game is a downloaded game: metadata plus every frame in turn order.
type Game struct {
	ID      string
	Ruleset string
	Width   int
	Height  int
	Frames  []Frame
}

// Download reads the event stream for gameID until game_end, a normal close,
// or a read error after at least one frame arrived.
func Download(ctx context.Context, gameID string, cfg Config, log *slog.Logger) (*Game, error) {
	if log == nil {
		log = slog.Default()
	}
	url := fmt.Sprintf(cfg.EngineURL, gameID)

	dialer := websocket.Dialer{HandshakeTimeout: cfg.ConnectTimeout}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", gameID, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	var info GameInfo
	var frames []Frame

read:
	for {
		if cfg.ReadTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				break
			}
			if len(frames) > 0 {
				log.Warn("stream ended early, keeping frames", "game_id", gameID, "frames", len(frames), "err", err)
				break
			}
			return nil, fmt.Errorf("read %s: %w", gameID, err)
		}

		var event Event
		if err := json.Unmarshal(message, &event); err != nil {
			log.Warn("parse event", "game_id", gameID, "err", err)
			continue
		}

		switch event.Type {
		case "game_info":
			if err := json.Unmarshal(event.Data, &info); err != nil {
				log.Warn("parse game_info", "game_id", gameID, "err", err)
			}
		case "frame":
			var f Frame
			if err := json.Unmarshal(event.Data, &f); err != nil {
				log.Warn("parse frame", "game_id", gameID, "err", err)
				continue
			}
			frames = append(frames, f)
		case "game_end":
			break read
		}
	}

	if len(frames) == 0 {
		return nil, fmt.Errorf("game %s: no frames", gameID)
	}

	g := &Game{
		ID:      gameID,
		Ruleset: info.Ruleset.Name,
		Width:   info.Game.Width,
		Height:  info.Game.Height,
		Frames:  frames,
	}
	if g.Width == 0 || g.Height == 0 {
		g.Width, g.Height = frames[0].Board.Width, frames[0].Board.Height
	}
	if g.Width == 0 || g.Height == 0 {
		g.Width, g.Height = 11, 11
	}
	return g, nil
}

// Winner names the only snake alive in the last frame, or "draw".
func (g *Game) Winner() string {
	if len(g.Frames) == 0 {
		return "unknown"
	}
	var alive []SnakeData
	last := g.Frames[len(g.Frames)-1]
	for _, s := range last.Snakes {
		if s.Alive() {
			alive = append(alive, s)
		}
	}
	if len(alive) == 1 {
		return alive[0].Name
	}
	return "draw"
}

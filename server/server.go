// Package server exposes the move selector over the legacy Battlesnake HTTP
// protocol.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/brensch/hungrysnek/selector"
	"github.com/brensch/hungrysnek/store"
)

const maxBodyBytes = 1 << 20

// Recorder receives one row per /move decision. *store.Recorder satisfies it.
type Recorder interface {
	Record(row store.DecisionRow)
}

// GameLog notes finished games. *store.GameLog satisfies it.
type GameLog interface {
	Add(id string) error
}

type Config struct {
	Identity Identity
	Selector *selector.Selector
	// Recorder and GameLog are optional.
	Recorder Recorder
	GameLog  GameLog
	Log      *slog.Logger
}

type Server struct {
	identity Identity
	sel      *selector.Selector
	recorder Recorder
	gameLog  GameLog
	log      *slog.Logger
	now      func() time.Time
}

func New(cfg Config) *Server {
	s := &Server{
		identity: cfg.Identity,
		sel:      cfg.Selector,
		recorder: cfg.Recorder,
		gameLog:  cfg.GameLog,
		log:      cfg.Log,
		now:      time.Now,
	}
	if s.sel == nil {
		s.sel = selector.New(selector.Options{})
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	return s
}

// Handler routes the four endpoints. Game routes only accept POST; the mux
// answers other methods with 405.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /start", s.handleStart)
	mux.HandleFunc("POST /move", s.handleMove)
	mux.HandleFunc("POST /end", s.handleEnd)
	return mux
}

func (s *Server) requestLogger(w http.ResponseWriter) *slog.Logger {
	id := uuid.NewString()
	w.Header().Set("X-Request-Id", id)
	return s.log.With("req", id)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.identity.StartResponse())
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	log := s.requestLogger(w)

	var req StartRequest
	if err := decodeJSON(r, &req, false); err != nil {
		log.Warn("bad start request", "err", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	log.Info("game started", "game_id", req.GameID, "width", req.Width, "height", req.Height)
	writeJSON(w, s.identity.StartResponse())
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	start := s.now()
	log := s.requestLogger(w)

	var req MoveRequest
	if err := decodeJSON(r, &req, false); err != nil {
		log.Warn("bad move request", "err", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	state := req.GameState()
	d := s.sel.Decide(state)
	elapsed := s.now().Sub(start)

	attrs := []any{"game_id", req.GameID, "turn", req.Turn, "move", d.Move.String(), "elapsed", elapsed}
	if d.Reason != nil {
		log.Warn("default move", append(attrs, "reason", d.Reason)...)
	} else {
		log.Debug("move", attrs...)
	}

	if s.recorder != nil {
		row := store.NewDecisionRow(req.GameID, store.SourceServer, state, d, start)
		row.LatencyMicros = elapsed.Microseconds()
		s.recorder.Record(row)
	}

	writeJSON(w, MoveResponse{Move: d.Move.String(), Taunt: d.Shout})
}

func (s *Server) handleEnd(w http.ResponseWriter, r *http.Request) {
	log := s.requestLogger(w)

	var req EndRequest
	if err := decodeJSON(r, &req, true); err != nil {
		log.Warn("bad end request", "err", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	log.Info("game ended", "game_id", req.GameID, "winners", req.Winners)
	if s.gameLog != nil && req.GameID != "" {
		if err := s.gameLog.Add(req.GameID); err != nil {
			log.Error("record finished game", "game_id", req.GameID, "err", err)
		}
	}
	writeJSON(w, struct{}{})
}

// decodeJSON reads a bounded request body into v. With allowEmpty an empty
// body leaves v untouched.
func decodeJSON(r *http.Request, v any, allowEmpty bool) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	if allowEmpty && errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

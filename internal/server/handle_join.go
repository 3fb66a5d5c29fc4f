package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

type JoinRequest struct {
	JoinCode   string `json:"joinCode"`
	PlayerName string `json:"playerName"`
}

type JoinResponse struct {
	Token  string     `json:"token"`
	Player PlayerInfo `json:"player"`
	Game   GameInfo   `json:"game"`
}

// GameInfo is the public view of a session.
type GameInfo struct {
	ID               string  `json:"id"`
	JoinCode         string  `json:"joinCode"`
	Status           string  `json:"status"`
	BoardSize        int     `json:"boardSize"`
	TimeLimitSeconds int     `json:"timeLimitSeconds"`
	StartedAt        *string `json:"startedAt,omitempty"`
	EndedAt          *string `json:"endedAt,omitempty"`
}

func gameInfo(g gameRow) GameInfo {
	return GameInfo{
		ID:               g.ID,
		JoinCode:         g.JoinCode,
		Status:           g.Status,
		BoardSize:        g.BoardSize,
		TimeLimitSeconds: g.TimeLimitSeconds,
		StartedAt:        g.StartedAt,
		EndedAt:          g.EndedAt,
	}
}

func handleJoin(coord *Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req JoinRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		req.PlayerName = strings.TrimSpace(req.PlayerName)
		req.JoinCode = strings.ToUpper(strings.TrimSpace(req.JoinCode))
		if req.PlayerName == "" || req.JoinCode == "" {
			writeError(w, http.StatusBadRequest, "joinCode and playerName are required")
			return
		}
		if len(req.PlayerName) > 40 {
			writeError(w, http.StatusBadRequest, "playerName too long")
			return
		}

		result, err := coord.Join(r.Context(), req.JoinCode, req.PlayerName)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "game not found")
			return
		}
		if errors.Is(err, ErrGameNotJoinable) {
			writeError(w, http.StatusConflict, "game has already started")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, JoinResponse{
			Token:  result.Token,
			Player: result.Player,
			Game:   gameInfo(result.Game),
		})
	}
}

// GameLookupResponse lets a player preview a game before joining.
type GameLookupResponse struct {
	ID          string `json:"id"`
	JoinCode    string `json:"joinCode"`
	Status      string `json:"status"`
	BoardSize   int    `json:"boardSize"`
	QuizTitle   string `json:"quizTitle"`
	PlayerCount int    `json:"playerCount"`
}

func handleGameLookup(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := strings.ToUpper(chi.URLParam(r, "joinCode"))

		g, err := store.GameByJoinCode(r.Context(), code)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "game not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		title, err := store.QuizTitle(r.Context(), g.QuizID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		count, err := store.CountPlayers(r.Context(), g.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, GameLookupResponse{
			ID:          g.ID,
			JoinCode:    g.JoinCode,
			Status:      g.Status,
			BoardSize:   g.BoardSize,
			QuizTitle:   title,
			PlayerCount: count,
		})
	}
}

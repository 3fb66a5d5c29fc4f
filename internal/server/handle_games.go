package server

import (
	"errors"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/classquest/gridquiz/internal/game"
)

type CreateGameRequest struct {
	QuizID           string `json:"quizId"`
	BoardSize        int    `json:"boardSize"`
	TimeLimitSeconds int    `json:"timeLimitSeconds"`
}

const joinCodeAttempts = 10

func handleCreateGame(store Store, coord *Coordinator) http.HandlerFunc {
	// Shared across request goroutines; rand.Rand is not concurrency-safe.
	var rngMu sync.Mutex
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateGameRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if req.BoardSize == 0 {
			req.BoardSize = 10
		}
		if req.BoardSize < 4 || req.BoardSize > 24 {
			writeError(w, http.StatusBadRequest, "boardSize must be between 4 and 24")
			return
		}
		if req.TimeLimitSeconds == 0 {
			req.TimeLimitSeconds = 300
		}
		if req.TimeLimitSeconds < 0 {
			writeError(w, http.StatusBadRequest, "timeLimitSeconds must not be negative")
			return
		}

		sess := teacherFrom(r)

		if _, err := store.GetQuiz(r.Context(), sess.TeacherID, req.QuizID); err != nil {
			if errors.Is(err, ErrNotFound) {
				writeError(w, http.StatusNotFound, "quiz not found")
				return
			}
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		// Pick an unused code; the partial unique index on waiting games is
		// the backstop if two creations race on the same code.
		var code string
		for i := 0; i < joinCodeAttempts; i++ {
			rngMu.Lock()
			code = game.JoinCode(rng)
			rngMu.Unlock()
			inUse, err := store.JoinCodeInUse(r.Context(), code)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
			if !inUse {
				break
			}
			code = ""
		}
		if code == "" {
			writeError(w, http.StatusInternalServerError, "could not allocate a join code")
			return
		}

		g, err := store.CreateGame(r.Context(), sess.TeacherID, req.QuizID, code, req.BoardSize, req.TimeLimitSeconds)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		title, err := store.QuizTitle(r.Context(), req.QuizID)
		if err == nil {
			g.QuizTitle = title
		}

		writeJSON(w, http.StatusCreated, g)
	}
}

func handleListGames(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		games, err := store.ListGames(r.Context(), teacherFrom(r).TeacherID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, games)
	}
}

// GameDashboardResponse is the teacher's live view of one session.
type GameDashboardResponse struct {
	Game                 GameInfo     `json:"game"`
	QuizTitle            string       `json:"quizTitle"`
	Players              []PlayerInfo `json:"players"`
	Tiles                []TileInfo   `json:"tiles"`
	TimeRemainingSeconds *int         `json:"timeRemainingSeconds,omitempty"`
}

func teacherGame(r *http.Request, store Store) (gameRow, error) {
	g, err := store.GameByID(r.Context(), chi.URLParam(r, "gameID"))
	if err != nil {
		return g, err
	}
	if g.TeacherID != teacherFrom(r).TeacherID {
		return g, ErrNotAuthorized
	}
	return g, nil
}

func handleGetGame(store Store, coord *Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g, err := teacherGame(r, store)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "game not found")
			return
		}
		if errors.Is(err, ErrNotAuthorized) {
			writeError(w, http.StatusForbidden, "not your game")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		g = coord.expireIfOverdue(r.Context(), g)

		players, err := store.ListPlayers(r.Context(), g.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		now := time.Now()
		for i := range players {
			seen, err := time.Parse(time.RFC3339Nano, players[i].LastSeen)
			players[i].Connected = err == nil && now.Sub(seen) <= connectedWindow
		}

		tiles, err := store.ListTiles(r.Context(), g.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		title, _ := store.QuizTitle(r.Context(), g.QuizID)

		writeJSON(w, http.StatusOK, GameDashboardResponse{
			Game:                 gameInfo(g),
			QuizTitle:            title,
			Players:              players,
			Tiles:                tiles,
			TimeRemainingSeconds: timeRemaining(g, now),
		})
	}
}

type SetStatusRequest struct {
	Status string `json:"status"`
}

func handleSetGameStatus(coord *Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SetStatusRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Status != StatusActive && req.Status != StatusFinished {
			writeError(w, http.StatusBadRequest, "status must be active or finished")
			return
		}

		g, err := coord.SetStatus(r.Context(), teacherFrom(r).TeacherID, chi.URLParam(r, "gameID"), req.Status)
		switch {
		case errors.Is(err, ErrNotFound):
			writeError(w, http.StatusNotFound, "game not found")
		case errors.Is(err, ErrNotAuthorized):
			writeError(w, http.StatusForbidden, "not your game")
		case errors.Is(err, ErrInvalidStatus):
			writeError(w, http.StatusConflict, ErrInvalidStatus.Error())
		case err != nil:
			writeError(w, http.StatusInternalServerError, "internal error")
		default:
			writeJSON(w, http.StatusOK, gameInfo(g))
		}
	}
}

func handleDeleteGame(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g, err := teacherGame(r, store)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "game not found")
			return
		}
		if errors.Is(err, ErrNotAuthorized) {
			writeError(w, http.StatusForbidden, "not your game")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		// Deleting a running game would yank the board out from under its
		// players; the teacher must finish it first.
		if g.Status == StatusActive {
			busy, err := store.GameHasPlayers(r.Context(), g.ID)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
			if busy {
				writeError(w, http.StatusConflict, "game is in progress")
				return
			}
		}

		if err := store.DeleteGame(r.Context(), teacherFrom(r).TeacherID, g.ID); err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

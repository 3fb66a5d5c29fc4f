package server

import (
	"errors"
	"net/http"

	"github.com/classquest/gridquiz/internal/game"
)

type ClaimRequest struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type ClaimResponse struct {
	Question QuestionView `json:"question"`
}

// handleClaim is the request phase: validate the tile and serve the
// question the player must answer to win it. The answer key never leaves
// the server.
func handleClaim(store Store, coord *Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := playerFromRequest(r, store)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or missing session token")
			return
		}

		var req ClaimRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		question, err := coord.RequestClaim(r.Context(), sess, game.Coord{X: req.X, Y: req.Y})
		switch {
		case errors.Is(err, ErrInvalidTile):
			writeError(w, http.StatusBadRequest, ErrInvalidTile.Error())
		case errors.Is(err, ErrGameNotActive):
			writeError(w, http.StatusConflict, ErrGameNotActive.Error())
		case errors.Is(err, ErrTileTaken):
			writeError(w, http.StatusConflict, ErrTileTaken.Error())
		case errors.Is(err, ErrNotAdjacent):
			writeError(w, http.StatusConflict, ErrNotAdjacent.Error())
		case errors.Is(err, ErrNoQuestions):
			writeError(w, http.StatusConflict, ErrNoQuestions.Error())
		case errors.Is(err, ErrNotFound):
			writeError(w, http.StatusNotFound, "game not found")
		case err != nil:
			writeError(w, http.StatusInternalServerError, "internal error")
		default:
			writeJSON(w, http.StatusOK, ClaimResponse{Question: question})
		}
	}
}

type AnswerRequest struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Option int `json:"option"`
}

// handleAnswer is the commit phase. Rejections that are part of normal
// play (wrong answer, lost race) come back 200 with accepted=false and a
// reason, so clients can distinguish them from request errors.
func handleAnswer(store Store, coord *Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := playerFromRequest(r, store)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or missing session token")
			return
		}

		var req AnswerRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		result, err := coord.SubmitAnswer(r.Context(), sess, game.Coord{X: req.X, Y: req.Y}, req.Option)
		switch {
		case errors.Is(err, ErrGameNotActive):
			writeError(w, http.StatusConflict, ErrGameNotActive.Error())
		case errors.Is(err, ErrNoPendingClaim):
			writeError(w, http.StatusConflict, ErrNoPendingClaim.Error())
		case errors.Is(err, ErrInvalidOption):
			writeError(w, http.StatusBadRequest, ErrInvalidOption.Error())
		case errors.Is(err, ErrNotFound):
			writeError(w, http.StatusNotFound, "game not found")
		case err != nil:
			writeError(w, http.StatusInternalServerError, "internal error")
		default:
			writeJSON(w, http.StatusOK, result)
		}
	}
}

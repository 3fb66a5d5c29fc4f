package server

import (
	"errors"
	"net/http"
	"time"
)

// connectedWindow is how recent a heartbeat must be for a player to count
// as connected in state reads.
const connectedWindow = 30 * time.Second

type GameStateResponse struct {
	Game                 GameInfo     `json:"game"`
	Players              []PlayerInfo `json:"players"`
	Tiles                []TileInfo   `json:"tiles"`
	TimeRemainingSeconds *int         `json:"timeRemainingSeconds,omitempty"`
}

func timeRemaining(g gameRow, now time.Time) *int {
	if g.Status != StatusActive || g.StartedAt == nil || g.TimeLimitSeconds <= 0 {
		return nil
	}
	start, err := time.Parse(time.RFC3339Nano, *g.StartedAt)
	if err != nil {
		return nil
	}
	remaining := g.TimeLimitSeconds - int(now.Sub(start).Seconds())
	if remaining < 0 {
		remaining = 0
	}
	return &remaining
}

// handleGameState is the full reconciliation read: clients apply SSE
// deltas for latency and call this periodically to correct drift.
func handleGameState(store Store, coord *Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := playerFromRequest(r, store)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or missing session token")
			return
		}

		g, err := coord.activeGame(r.Context(), sess.GameID)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "game not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

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

		writeJSON(w, http.StatusOK, GameStateResponse{
			Game:                 gameInfo(g),
			Players:              players,
			Tiles:                tiles,
			TimeRemainingSeconds: timeRemaining(g, now),
		})
	}
}

func handleHeartbeat(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := playerFromRequest(r, store)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or missing session token")
			return
		}

		if err := store.Heartbeat(r.Context(), sess.PlayerID); err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleLeave(store Store, coord *Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := playerFromRequest(r, store)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or missing session token")
			return
		}

		if err := coord.Leave(r.Context(), sess); err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

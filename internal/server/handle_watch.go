package server

import (
	"errors"
	"log/slog"
	"net/http"

	"nhooyr.io/websocket"
)

// handleWatch streams game events over a websocket for the teacher
// dashboard. Same payloads as the player SSE stream, different transport:
// the dashboard wants one long-lived duplex connection.
func handleWatch(logger *slog.Logger, store Store, broker *Broker) http.HandlerFunc {
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

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			logger.Error("websocket accept failed", "error", err)
			return
		}
		defer conn.CloseNow()

		ch := broker.Subscribe(g.ID)
		defer broker.Unsubscribe(g.ID, ch)

		ctx := r.Context()
		for {
			select {
			case <-ctx.Done():
				return
			case data := <-ch:
				if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
					logger.Debug("websocket write failed", "error", err)
					return
				}
			}
		}
	}
}

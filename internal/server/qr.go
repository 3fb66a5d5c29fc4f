package server

import (
	"errors"
	"fmt"
	"net/http"

	qrcode "github.com/skip2/go-qrcode"
)

// handleGameQR renders the join link as a PNG QR code for projecting at
// the front of the class.
func handleGameQR(store Store, publicURL string) http.HandlerFunc {
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

		joinURL := fmt.Sprintf("%s/join/%s", publicURL, g.JoinCode)
		png, err := qrcode.Encode(joinURL, qrcode.Medium, 256)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-cache")
		w.Write(png)
	}
}

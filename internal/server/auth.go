package server

import (
	"errors"
	"net/http"
	"strings"
)

var errNoSession = errors.New("no valid session")

// playerFromRequest resolves the Bearer token to a player session.
func playerFromRequest(r *http.Request, store Store) (playerSession, error) {
	auth := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(auth, "Bearer ")
	if !found || token == "" {
		return playerSession{}, errNoSession
	}
	return store.PlayerFromToken(r.Context(), token)
}

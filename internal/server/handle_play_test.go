package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/classquest/gridquiz/internal/database"
	"github.com/classquest/gridquiz/internal/game"
	"github.com/classquest/gridquiz/internal/migrations"
)

// demoAnswers maps the seeded quiz's question IDs to their correct option.
var demoAnswers = map[string]int{
	"q1": 1,
	"q2": 0,
	"q3": 2,
	"q4": 0,
	"q5": 2,
}

func newTestEnv(t *testing.T) (*chi.Mux, *SQLiteStore) {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := migrations.Run(db); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	store := NewSQLiteStore(db)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	if err := SeedDemo(ctx, logger, store); err != nil {
		t.Fatalf("seed demo: %v", err)
	}

	r := chi.NewRouter()
	addRoutes(r, logger, db, store, "http://localhost:8080")
	return r, store
}

func doRequest(t *testing.T, r *chi.Mux, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func joinDemo(t *testing.T, r *chi.Mux, name string) JoinResponse {
	t.Helper()

	w := doRequest(t, r, http.MethodPost, "/api/join", "", JoinRequest{JoinCode: DemoJoinCode, PlayerName: name})
	if w.Code != http.StatusOK {
		t.Fatalf("join: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp JoinResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Token == "" {
		t.Fatal("join: expected a session token")
	}
	return resp
}

func activateDemo(t *testing.T, store *SQLiteStore) gameRow {
	t.Helper()
	ctx := context.Background()

	g, err := store.GameByJoinCode(ctx, DemoJoinCode)
	if err != nil {
		t.Fatalf("demo game: %v", err)
	}
	if err := store.SetGameStatus(ctx, g.ID, StatusWaiting, StatusActive); err != nil {
		t.Fatalf("activate game: %v", err)
	}
	g, err = store.GameByID(ctx, g.ID)
	if err != nil {
		t.Fatalf("reload game: %v", err)
	}
	return g
}

// freeNeighbor returns an in-bounds orthogonal neighbor of start. With a
// single player on the board it is guaranteed unclaimed.
func freeNeighbor(start game.Coord, size int) game.Coord {
	if start.X+1 < size {
		return game.Coord{X: start.X + 1, Y: start.Y}
	}
	return game.Coord{X: start.X - 1, Y: start.Y}
}

func TestGameLookup(t *testing.T) {
	r, _ := newTestEnv(t)

	w := doRequest(t, r, http.MethodGet, "/api/games/"+DemoJoinCode, "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp GameLookupResponse
	json.NewDecoder(w.Body).Decode(&resp)

	if resp.JoinCode != DemoJoinCode {
		t.Errorf("joinCode = %q, want %q", resp.JoinCode, DemoJoinCode)
	}
	if resp.Status != StatusWaiting {
		t.Errorf("status = %q, want waiting", resp.Status)
	}
	if resp.QuizTitle != "World Capitals" {
		t.Errorf("quizTitle = %q, want 'World Capitals'", resp.QuizTitle)
	}
	if resp.BoardSize != 8 {
		t.Errorf("boardSize = %d, want 8", resp.BoardSize)
	}
}

func TestGameLookupLowercaseCode(t *testing.T) {
	r, _ := newTestEnv(t)

	w := doRequest(t, r, http.MethodGet, "/api/games/demo42", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for lowercase code, got %d", w.Code)
	}
}

func TestGameLookupNotFound(t *testing.T) {
	r, _ := newTestEnv(t)

	w := doRequest(t, r, http.MethodGet, "/api/games/XXXXXX", "", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestJoinAndState(t *testing.T) {
	r, _ := newTestEnv(t)

	resp := joinDemo(t, r, "Maria")

	if resp.Player.Name != "Maria" {
		t.Errorf("player name = %q, want Maria", resp.Player.Name)
	}
	if resp.Player.Color == "" {
		t.Error("expected an assigned color")
	}
	if resp.Player.TilesOwned != 1 {
		t.Errorf("tilesOwned = %d, want 1", resp.Player.TilesOwned)
	}
	start := resp.Player.Start
	onEdge := start.X == 0 || start.Y == 0 || start.X == 7 || start.Y == 7
	if !onEdge {
		t.Errorf("starting tile %v not on the board edge", start)
	}

	w := doRequest(t, r, http.MethodGet, "/api/play/state", resp.Token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("state: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var state GameStateResponse
	json.NewDecoder(w.Body).Decode(&state)

	if len(state.Players) != 1 || state.Players[0].Name != "Maria" {
		t.Errorf("expected 1 player named Maria, got %v", state.Players)
	}
	if len(state.Tiles) != 1 {
		t.Fatalf("expected 1 claimed tile, got %d", len(state.Tiles))
	}
	if state.Tiles[0].X != start.X || state.Tiles[0].Y != start.Y {
		t.Errorf("tile at (%d,%d), want start %v", state.Tiles[0].X, state.Tiles[0].Y, start)
	}
	if state.TimeRemainingSeconds != nil {
		t.Error("waiting game should have no time remaining")
	}
}

func TestJoinValidation(t *testing.T) {
	r, _ := newTestEnv(t)

	tests := []struct {
		name string
		req  JoinRequest
		want int
	}{
		{"missing name", JoinRequest{JoinCode: DemoJoinCode}, http.StatusBadRequest},
		{"missing code", JoinRequest{PlayerName: "Maria"}, http.StatusBadRequest},
		{"unknown code", JoinRequest{JoinCode: "ZZZZZZ", PlayerName: "Maria"}, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, r, http.MethodPost, "/api/join", "", tt.req)
			if w.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, w.Code, w.Body.String())
			}
		})
	}
}

func TestJoinDistinctColors(t *testing.T) {
	r, _ := newTestEnv(t)

	first := joinDemo(t, r, "Maria")
	second := joinDemo(t, r, "Carlos")

	if first.Player.Color == second.Player.Color {
		t.Errorf("both players got color %q", first.Player.Color)
	}
	if first.Player.Start == second.Player.Start {
		t.Errorf("both players got starting tile %v", first.Player.Start)
	}
}

func TestJoinAfterStartRejected(t *testing.T) {
	r, store := newTestEnv(t)
	activateDemo(t, store)

	w := doRequest(t, r, http.MethodPost, "/api/join", "", JoinRequest{JoinCode: DemoJoinCode, PlayerName: "Late"})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for active game, got %d: %s", w.Code, w.Body.String())
	}
}

func TestClaimBeforeActive(t *testing.T) {
	r, _ := newTestEnv(t)

	resp := joinDemo(t, r, "Maria")
	target := freeNeighbor(resp.Player.Start, 8)

	w := doRequest(t, r, http.MethodPost, "/api/play/claim", resp.Token, ClaimRequest{X: target.X, Y: target.Y})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 before game start, got %d: %s", w.Code, w.Body.String())
	}
}

func TestClaimOutOfBounds(t *testing.T) {
	r, store := newTestEnv(t)

	resp := joinDemo(t, r, "Maria")
	activateDemo(t, store)

	w := doRequest(t, r, http.MethodPost, "/api/play/claim", resp.Token, ClaimRequest{X: 99, Y: 0})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 out of bounds, got %d: %s", w.Code, w.Body.String())
	}
}

func TestClaimNotAdjacent(t *testing.T) {
	r, store := newTestEnv(t)

	resp := joinDemo(t, r, "Maria")
	activateDemo(t, store)

	// The cell farthest from any edge can't touch a fresh edge start.
	w := doRequest(t, r, http.MethodPost, "/api/play/claim", resp.Token, ClaimRequest{X: 3, Y: 3})
	if w.Code == http.StatusOK {
		t.Fatalf("expected rejection for non-adjacent tile, got 200")
	}
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}
}

func TestClaimAnswerFlow(t *testing.T) {
	r, store := newTestEnv(t)

	resp := joinDemo(t, r, "Maria")
	activateDemo(t, store)
	target := freeNeighbor(resp.Player.Start, 8)

	// Request the claim; the question must not leak the answer.
	w := doRequest(t, r, http.MethodPost, "/api/play/claim", resp.Token, ClaimRequest{X: target.X, Y: target.Y})
	if w.Code != http.StatusOK {
		t.Fatalf("claim: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if bytes.Contains(w.Body.Bytes(), []byte(`"correct"`)) {
		t.Fatal("claim response leaked the correct option")
	}

	var claim ClaimResponse
	json.NewDecoder(w.Body).Decode(&claim)
	correct, ok := demoAnswers[claim.Question.ID]
	if !ok {
		t.Fatalf("unknown question id %q", claim.Question.ID)
	}

	// Wrong answer: attempt consumed, reason and answer key returned.
	wrong := (correct + 1) % len(claim.Question.Options)
	w = doRequest(t, r, http.MethodPost, "/api/play/answer", resp.Token, AnswerRequest{X: target.X, Y: target.Y, Option: wrong})
	if w.Code != http.StatusOK {
		t.Fatalf("wrong answer: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var result AnswerResult
	json.NewDecoder(w.Body).Decode(&result)
	if result.Accepted {
		t.Fatal("wrong answer: expected accepted=false")
	}
	if result.Reason != ReasonWrongAnswer {
		t.Errorf("reason = %q, want %q", result.Reason, ReasonWrongAnswer)
	}
	if result.CorrectOption == nil || *result.CorrectOption != correct {
		t.Errorf("correctOption = %v, want %d", result.CorrectOption, correct)
	}

	// Answering again without a fresh claim must fail.
	w = doRequest(t, r, http.MethodPost, "/api/play/answer", resp.Token, AnswerRequest{X: target.X, Y: target.Y, Option: correct})
	if w.Code != http.StatusConflict {
		t.Fatalf("stale answer: expected 409, got %d: %s", w.Code, w.Body.String())
	}

	// Fresh claim, correct answer: tile won, points awarded.
	w = doRequest(t, r, http.MethodPost, "/api/play/claim", resp.Token, ClaimRequest{X: target.X, Y: target.Y})
	if w.Code != http.StatusOK {
		t.Fatalf("reclaim: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	json.NewDecoder(w.Body).Decode(&claim)
	correct = demoAnswers[claim.Question.ID]

	w = doRequest(t, r, http.MethodPost, "/api/play/answer", resp.Token, AnswerRequest{X: target.X, Y: target.Y, Option: correct})
	if w.Code != http.StatusOK {
		t.Fatalf("correct answer: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	json.NewDecoder(w.Body).Decode(&result)
	if !result.Accepted {
		t.Fatalf("correct answer: expected accepted=true, got reason %q", result.Reason)
	}
	if result.PointsAwarded != claim.Question.Points {
		t.Errorf("pointsAwarded = %d, want %d", result.PointsAwarded, claim.Question.Points)
	}

	// State reflects the new tile and score.
	w = doRequest(t, r, http.MethodGet, "/api/play/state", resp.Token, nil)
	var state GameStateResponse
	json.NewDecoder(w.Body).Decode(&state)

	if len(state.Tiles) != 2 {
		t.Errorf("expected 2 tiles, got %d", len(state.Tiles))
	}
	if state.Players[0].TilesOwned != 2 {
		t.Errorf("tilesOwned = %d, want 2", state.Players[0].TilesOwned)
	}
	if state.Players[0].Score != result.PointsAwarded {
		t.Errorf("score = %d, want %d", state.Players[0].Score, result.PointsAwarded)
	}
	if state.TimeRemainingSeconds == nil {
		t.Error("active game should report time remaining")
	}
}

func TestAnswerInvalidOption(t *testing.T) {
	r, store := newTestEnv(t)

	resp := joinDemo(t, r, "Maria")
	activateDemo(t, store)
	target := freeNeighbor(resp.Player.Start, 8)

	w := doRequest(t, r, http.MethodPost, "/api/play/claim", resp.Token, ClaimRequest{X: target.X, Y: target.Y})
	if w.Code != http.StatusOK {
		t.Fatalf("claim: expected 200, got %d", w.Code)
	}

	w = doRequest(t, r, http.MethodPost, "/api/play/answer", resp.Token, AnswerRequest{X: target.X, Y: target.Y, Option: 9})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for out-of-range option, got %d: %s", w.Code, w.Body.String())
	}
}

func TestAnswerWithoutClaim(t *testing.T) {
	r, store := newTestEnv(t)

	resp := joinDemo(t, r, "Maria")
	activateDemo(t, store)
	target := freeNeighbor(resp.Player.Start, 8)

	w := doRequest(t, r, http.MethodPost, "/api/play/answer", resp.Token, AnswerRequest{X: target.X, Y: target.Y, Option: 0})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 without a pending claim, got %d: %s", w.Code, w.Body.String())
	}
}

func TestStateAfterGameDeleted(t *testing.T) {
	r, store := newTestEnv(t)

	player := joinDemo(t, r, "Maria")
	ctx := context.Background()

	// Drop the game out from under the session, keeping the player row so
	// the token still resolves.
	rows, err := store.db.QueryContext(ctx, "PRAGMA foreign_keys=OFF")
	if err != nil {
		t.Fatalf("disable foreign keys: %v", err)
	}
	rows.Close()
	if _, err := store.db.ExecContext(ctx, "DELETE FROM games WHERE join_code = ?", DemoJoinCode); err != nil {
		t.Fatalf("delete game: %v", err)
	}

	w := doRequest(t, r, http.MethodGet, "/api/play/state", player.Token, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for vanished game, got %d: %s", w.Code, w.Body.String())
	}
}

func TestHeartbeatAndLeave(t *testing.T) {
	r, _ := newTestEnv(t)

	resp := joinDemo(t, r, "Maria")

	w := doRequest(t, r, http.MethodPost, "/api/play/heartbeat", resp.Token, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("heartbeat: expected 204, got %d", w.Code)
	}

	w = doRequest(t, r, http.MethodPost, "/api/play/leave", resp.Token, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("leave: expected 204, got %d", w.Code)
	}

	// A second player sees the leaver as disconnected; their tile stays.
	other := joinDemo(t, r, "Carlos")
	w = doRequest(t, r, http.MethodGet, "/api/play/state", other.Token, nil)

	var state GameStateResponse
	json.NewDecoder(w.Body).Decode(&state)
	if len(state.Tiles) != 2 {
		t.Errorf("expected leaver's tile to remain, got %d tiles", len(state.Tiles))
	}
	for _, p := range state.Players {
		if p.Name == "Maria" && p.Connected {
			t.Error("leaver should not count as connected")
		}
	}
}

func TestUnauthorizedAccess(t *testing.T) {
	r, _ := newTestEnv(t)

	paths := []struct {
		method, path string
	}{
		{http.MethodGet, "/api/play/state"},
		{http.MethodPost, "/api/play/claim"},
		{http.MethodPost, "/api/play/answer"},
		{http.MethodPost, "/api/play/heartbeat"},
		{http.MethodPost, "/api/play/leave"},
	}

	for _, p := range paths {
		w := doRequest(t, r, p.method, p.path, "", nil)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s %s without token: expected 401, got %d", p.method, p.path, w.Code)
		}

		w = doRequest(t, r, p.method, p.path, "bogus", nil)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s %s with bad token: expected 401, got %d", p.method, p.path, w.Code)
		}
	}
}

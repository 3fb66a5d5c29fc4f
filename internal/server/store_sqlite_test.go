package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/classquest/gridquiz/internal/game"
)

func TestClaimTileSingleCommit(t *testing.T) {
	tg := setupGame(t, 4, 0, singleQuestion())
	ctx := context.Background()

	p1 := tg.addPlayer(t, "P1", game.Coord{X: 0, Y: 0})
	p2 := tg.addPlayer(t, "P2", game.Coord{X: 3, Y: 3})

	target := game.Coord{X: 1, Y: 0}
	if err := tg.store.ClaimTile(ctx, tg.game.ID, p1.PlayerID, target, 100); err != nil {
		t.Fatalf("first claim: %v", err)
	}

	err := tg.store.ClaimTile(ctx, tg.game.ID, p2.PlayerID, target, 100)
	if !errors.Is(err, ErrTileTaken) {
		t.Fatalf("second claim: got %v, want ErrTileTaken", err)
	}

	// The loser's score must not move.
	winner, _ := tg.store.GetPlayer(ctx, p1.PlayerID)
	loser, _ := tg.store.GetPlayer(ctx, p2.PlayerID)
	if winner.Score != 100 || winner.TilesOwned != 2 {
		t.Errorf("winner score=%d tiles=%d, want 100 and 2", winner.Score, winner.TilesOwned)
	}
	if loser.Score != 0 || loser.TilesOwned != 1 {
		t.Errorf("loser score=%d tiles=%d, want 0 and 1", loser.Score, loser.TilesOwned)
	}
}

func TestSetGameStatusGuarded(t *testing.T) {
	tg := setupGame(t, 4, 0, singleQuestion())
	ctx := context.Background()

	if err := tg.store.SetGameStatus(ctx, tg.game.ID, StatusActive, StatusFinished); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("finish from waiting: got %v, want ErrInvalidStatus", err)
	}
	if err := tg.store.SetGameStatus(ctx, tg.game.ID, StatusWaiting, StatusWaiting); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("waiting target: got %v, want ErrInvalidStatus", err)
	}
	if err := tg.store.SetGameStatus(ctx, tg.game.ID, StatusWaiting, StatusActive); err != nil {
		t.Fatalf("start: %v", err)
	}

	g, err := tg.store.GameByID(ctx, tg.game.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if g.Status != StatusActive || g.StartedAt == nil {
		t.Errorf("status=%q startedAt=%v", g.Status, g.StartedAt)
	}
	if _, err := time.Parse(time.RFC3339Nano, *g.StartedAt); err != nil {
		t.Errorf("startedAt %q not parseable: %v", *g.StartedAt, err)
	}
}

func TestJoinCodeFreedByFinish(t *testing.T) {
	tg := setupGame(t, 4, 0, singleQuestion())
	ctx := context.Background()

	inUse, err := tg.store.JoinCodeInUse(ctx, "TEST01")
	if err != nil || !inUse {
		t.Fatalf("inUse = %v, %v; want true", inUse, err)
	}

	tg.activate(t)
	inUse, err = tg.store.JoinCodeInUse(ctx, "TEST01")
	if err != nil || inUse {
		t.Fatalf("inUse after start = %v, %v; want false", inUse, err)
	}

	if err := tg.store.SetGameStatus(ctx, tg.game.ID, StatusActive, StatusFinished); err != nil {
		t.Fatalf("finish: %v", err)
	}

	// The code can back a fresh game; lookups now resolve to it.
	g2, err := tg.store.CreateGame(ctx, tg.teacherID, tg.game.QuizID, "TEST01", 6, 0)
	if err != nil {
		t.Fatalf("reuse code: %v", err)
	}
	got, err := tg.store.GameByJoinCode(ctx, "TEST01")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got.ID != g2.ID {
		t.Errorf("lookup resolved to %q, want new game %q", got.ID, g2.ID)
	}
}

func TestJoinGameGuardedByStatus(t *testing.T) {
	tg := setupGame(t, 4, 0, singleQuestion())
	ctx := context.Background()

	tg.activate(t)

	// The insert itself refuses started games, independent of any check
	// the caller made beforehand.
	_, _, err := tg.store.JoinGame(ctx, tg.game.ID, "Late", "#fff", game.Coord{X: 0, Y: 0})
	if !errors.Is(err, ErrGameNotJoinable) {
		t.Fatalf("join active game: got %v, want ErrGameNotJoinable", err)
	}

	if _, _, err := tg.store.JoinGame(ctx, "no-such-game", "Ghost", "#fff", game.Coord{X: 0, Y: 0}); !errors.Is(err, ErrGameNotJoinable) {
		t.Fatalf("join unknown game: got %v, want ErrGameNotJoinable", err)
	}
}

func TestHeartbeatAndMarkLeft(t *testing.T) {
	tg := setupGame(t, 4, 0, singleQuestion())
	ctx := context.Background()

	sess := tg.addPlayer(t, "P1", game.Coord{X: 0, Y: 0})

	if err := tg.store.Heartbeat(ctx, sess.PlayerID); err != nil {
		t.Fatalf("heartbeat: %v", err)
	}
	p, err := tg.store.GetPlayer(ctx, sess.PlayerID)
	if err != nil {
		t.Fatalf("get player: %v", err)
	}
	seen, err := time.Parse(time.RFC3339Nano, p.LastSeen)
	if err != nil {
		t.Fatalf("lastSeen %q: %v", p.LastSeen, err)
	}
	if time.Since(seen) > time.Minute {
		t.Errorf("lastSeen %v not refreshed", seen)
	}

	if err := tg.store.MarkLeft(ctx, sess.PlayerID); err != nil {
		t.Fatalf("mark left: %v", err)
	}
	p, _ = tg.store.GetPlayer(ctx, sess.PlayerID)
	seen, err = time.Parse(time.RFC3339Nano, p.LastSeen)
	if err != nil {
		t.Fatalf("lastSeen after leave %q: %v", p.LastSeen, err)
	}
	if seen.Year() != 1970 {
		t.Errorf("lastSeen after leave = %v, want epoch", seen)
	}
}

func TestPendingClaimLifecycle(t *testing.T) {
	tg := setupGame(t, 4, 0, singleQuestion())
	ctx := context.Background()

	sess := tg.addPlayer(t, "P1", game.Coord{X: 0, Y: 0})
	tile := game.Coord{X: 1, Y: 0}

	if _, _, err := tg.store.PendingClaim(ctx, tg.game.ID, sess.PlayerID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("empty: got %v, want ErrNotFound", err)
	}

	if err := tg.store.SetPendingClaim(ctx, tg.game.ID, sess.PlayerID, tile, "q1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	gotTile, questionID, err := tg.store.PendingClaim(ctx, tg.game.ID, sess.PlayerID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if gotTile != tile || questionID != "q1" {
		t.Errorf("pending = %v %q, want %v q1", gotTile, questionID, tile)
	}

	// A new claim replaces the old one.
	other := game.Coord{X: 0, Y: 1}
	if err := tg.store.SetPendingClaim(ctx, tg.game.ID, sess.PlayerID, other, "q1"); err != nil {
		t.Fatalf("replace: %v", err)
	}
	gotTile, _, _ = tg.store.PendingClaim(ctx, tg.game.ID, sess.PlayerID)
	if gotTile != other {
		t.Errorf("pending = %v, want %v", gotTile, other)
	}

	if err := tg.store.ClearPendingClaim(ctx, tg.game.ID, sess.PlayerID); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, _, err := tg.store.PendingClaim(ctx, tg.game.ID, sess.PlayerID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("after clear: got %v, want ErrNotFound", err)
	}
}

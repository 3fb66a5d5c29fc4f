package migrations_test

import (
	"context"
	"testing"

	"github.com/classquest/gridquiz/internal/database"
	"github.com/classquest/gridquiz/internal/migrations"
)

func TestMigrations(t *testing.T) {
	db, err := database.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	defer db.Close()

	if err := migrations.Run(db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}

	// Verify all tables exist by querying sqlite_master.
	want := []string{
		"teachers", "teacher_sessions", "quizzes", "games",
		"players", "tiles", "served_questions", "pending_claims",
	}

	for _, table := range want {
		var name string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found: %v", table, err)
		}
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	db, err := database.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	defer db.Close()

	if err := migrations.Run(db); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := migrations.Run(db); err != nil {
		t.Fatalf("second run (should be no-op): %v", err)
	}
}

func TestDuplicateTileRejected(t *testing.T) {
	ctx := context.Background()
	db, err := database.Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	defer db.Close()

	if err := migrations.Run(db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}

	seed := []string{
		`INSERT INTO teachers (id, email, name, password_hash) VALUES ('t1', 'a@b.c', 'T', 'x')`,
		`INSERT INTO quizzes (id, teacher_id, title, questions) VALUES ('q1', 't1', 'Quiz', '[]')`,
		`INSERT INTO games (id, quiz_id, teacher_id, join_code, board_size, time_limit_seconds)
		 VALUES ('g1', 'q1', 't1', 'ABC123', 8, 300)`,
		`INSERT INTO players (id, game_id, name, color, session_id, start_x, start_y)
		 VALUES ('p1', 'g1', 'A', '#fff', 's1', 0, 0)`,
		`INSERT INTO players (id, game_id, name, color, session_id, start_x, start_y)
		 VALUES ('p2', 'g1', 'B', '#000', 's2', 7, 7)`,
	}
	for _, q := range seed {
		if _, err := db.ExecContext(ctx, q); err != nil {
			t.Fatalf("seeding: %v", err)
		}
	}

	ins := `INSERT INTO tiles (game_id, x, y, owner_id, claimed_at) VALUES ('g1', 1, 1, ?, 'now')`
	if _, err := db.ExecContext(ctx, ins, "p1"); err != nil {
		t.Fatalf("first claim: %v", err)
	}
	if _, err := db.ExecContext(ctx, ins, "p2"); err == nil {
		t.Fatal("second claim of the same tile should violate the primary key")
	}
}

package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/classquest/gridquiz/internal/game"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func sqliteNow() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
}

// --- Teachers ---

func (s *SQLiteStore) CreateTeacher(ctx context.Context, email, name, passwordHash string) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO teachers (id, email, name, password_hash)
		VALUES (lower(hex(randomblob(16))), ?, ?, ?)
		RETURNING id
	`, email, name, passwordHash).Scan(&id)
	return id, err
}

func (s *SQLiteStore) TeacherByEmail(ctx context.Context, email string) (string, string, error) {
	var id, hash string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, password_hash FROM teachers WHERE email = ?
	`, email).Scan(&id, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", ErrNotFound
	}
	return id, hash, err
}

func (s *SQLiteStore) CreateTeacherSession(ctx context.Context, teacherID string) (string, error) {
	var sessionID string
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO teacher_sessions (teacher_id)
		VALUES (?)
		RETURNING id
	`, teacherID).Scan(&sessionID)
	return sessionID, err
}

func (s *SQLiteStore) DeleteTeacherSession(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM teacher_sessions WHERE id = ?`, sessionID)
	return err
}

func (s *SQLiteStore) TeacherFromSession(ctx context.Context, sessionID string) (teacherSession, error) {
	var sess teacherSession
	err := s.db.QueryRowContext(ctx, `
		SELECT t.id, t.email, t.name
		FROM teacher_sessions s
		JOIN teachers t ON t.id = s.teacher_id
		WHERE s.id = ?
	`, sessionID).Scan(&sess.TeacherID, &sess.Email, &sess.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return teacherSession{}, ErrNotFound
	}
	return sess, err
}

// --- Quizzes ---

func (s *SQLiteStore) ListQuizzes(ctx context.Context, teacherID string) ([]QuizSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, COALESCE(description, ''), json(questions), created_at
		FROM quizzes
		WHERE teacher_id = ?
		ORDER BY created_at DESC
	`, teacherID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	quizzes := []QuizSummary{}
	for rows.Next() {
		var q QuizSummary
		var questionsJSON string
		if err := rows.Scan(&q.ID, &q.Title, &q.Description, &questionsJSON, &q.CreatedAt); err != nil {
			return nil, err
		}
		var questions []json.RawMessage
		json.Unmarshal([]byte(questionsJSON), &questions)
		q.QuestionCount = len(questions)
		quizzes = append(quizzes, q)
	}
	return quizzes, rows.Err()
}

func (s *SQLiteStore) CreateQuiz(ctx context.Context, teacherID, title, description string, questions []Question) (QuizDetail, error) {
	data, err := json.Marshal(questions)
	if err != nil {
		return QuizDetail{}, err
	}

	var id, createdAt string
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO quizzes (id, teacher_id, title, description, questions)
		VALUES (lower(hex(randomblob(16))), ?, ?, ?, jsonb(?))
		RETURNING id, created_at
	`, teacherID, title, description, string(data)).Scan(&id, &createdAt)
	if err != nil {
		return QuizDetail{}, err
	}

	return QuizDetail{
		ID:          id,
		Title:       title,
		Description: description,
		Questions:   questions,
		CreatedAt:   createdAt,
	}, nil
}

func (s *SQLiteStore) GetQuiz(ctx context.Context, teacherID, quizID string) (QuizDetail, error) {
	var d QuizDetail
	var questionsJSON string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, COALESCE(description, ''), json(questions), created_at
		FROM quizzes WHERE id = ? AND teacher_id = ?
	`, quizID, teacherID).Scan(&d.ID, &d.Title, &d.Description, &questionsJSON, &d.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return d, ErrNotFound
	}
	if err != nil {
		return d, err
	}
	json.Unmarshal([]byte(questionsJSON), &d.Questions)
	if d.Questions == nil {
		d.Questions = []Question{}
	}
	return d, nil
}

func (s *SQLiteStore) UpdateQuiz(ctx context.Context, teacherID, quizID, title, description string, questions []Question) (QuizDetail, error) {
	data, err := json.Marshal(questions)
	if err != nil {
		return QuizDetail{}, err
	}

	var createdAt string
	err = s.db.QueryRowContext(ctx, `
		UPDATE quizzes SET title = ?, description = ?, questions = jsonb(?)
		WHERE id = ? AND teacher_id = ?
		RETURNING created_at
	`, title, description, string(data), quizID, teacherID).Scan(&createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return QuizDetail{}, ErrNotFound
	}
	if err != nil {
		return QuizDetail{}, err
	}

	return QuizDetail{
		ID:          quizID,
		Title:       title,
		Description: description,
		Questions:   questions,
		CreatedAt:   createdAt,
	}, nil
}

func (s *SQLiteStore) DeleteQuiz(ctx context.Context, teacherID, quizID string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM quizzes WHERE id = ? AND teacher_id = ?
	`, quizID, teacherID)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) QuizHasGames(ctx context.Context, quizID string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM games WHERE quiz_id = ?
	`, quizID).Scan(&count)
	return count > 0, err
}

func (s *SQLiteStore) QuizQuestions(ctx context.Context, quizID string) ([]Question, error) {
	var questionsJSON string
	err := s.db.QueryRowContext(ctx, `
		SELECT json(questions) FROM quizzes WHERE id = ?
	`, quizID).Scan(&questionsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var questions []Question
	if err := json.Unmarshal([]byte(questionsJSON), &questions); err != nil {
		return nil, err
	}
	return questions, nil
}

func (s *SQLiteStore) QuizTitle(ctx context.Context, quizID string) (string, error) {
	var title string
	err := s.db.QueryRowContext(ctx, `SELECT title FROM quizzes WHERE id = ?`, quizID).Scan(&title)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return title, err
}

// --- Games ---

func (s *SQLiteStore) CreateGame(ctx context.Context, teacherID, quizID, joinCode string, boardSize, timeLimitSeconds int) (GameSummary, error) {
	var g GameSummary
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO games (id, quiz_id, teacher_id, join_code, status, board_size, time_limit_seconds)
		VALUES (lower(hex(randomblob(16))), ?, ?, ?, 'waiting', ?, ?)
		RETURNING id, created_at
	`, quizID, teacherID, joinCode, boardSize, timeLimitSeconds).Scan(&g.ID, &g.CreatedAt)
	if err != nil {
		return GameSummary{}, err
	}

	g.QuizID = quizID
	g.JoinCode = joinCode
	g.Status = StatusWaiting
	g.BoardSize = boardSize
	return g, nil
}

func (s *SQLiteStore) JoinCodeInUse(ctx context.Context, joinCode string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM games WHERE join_code = ? AND status = 'waiting'
	`, joinCode).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (s *SQLiteStore) ListGames(ctx context.Context, teacherID string) ([]GameSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT g.id, g.quiz_id, q.title, g.join_code, g.status, g.board_size,
			(SELECT COUNT(*) FROM players p WHERE p.game_id = g.id),
			g.created_at
		FROM games g
		JOIN quizzes q ON q.id = g.quiz_id
		WHERE g.teacher_id = ?
		ORDER BY g.created_at DESC
	`, teacherID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	games := []GameSummary{}
	for rows.Next() {
		var g GameSummary
		if err := rows.Scan(&g.ID, &g.QuizID, &g.QuizTitle, &g.JoinCode, &g.Status, &g.BoardSize, &g.PlayerCount, &g.CreatedAt); err != nil {
			return nil, err
		}
		games = append(games, g)
	}
	return games, rows.Err()
}

func (s *SQLiteStore) scanGame(row *sql.Row) (gameRow, error) {
	var g gameRow
	var startedAt, endedAt sql.NullString
	err := row.Scan(&g.ID, &g.QuizID, &g.TeacherID, &g.JoinCode, &g.Status,
		&g.BoardSize, &g.TimeLimitSeconds, &g.CreatedAt, &startedAt, &endedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return g, ErrNotFound
	}
	if startedAt.Valid {
		g.StartedAt = &startedAt.String
	}
	if endedAt.Valid {
		g.EndedAt = &endedAt.String
	}
	return g, err
}

const gameColumns = `id, quiz_id, teacher_id, join_code, status, board_size,
	time_limit_seconds, created_at, started_at, ended_at`

func (s *SQLiteStore) GameByID(ctx context.Context, gameID string) (gameRow, error) {
	return s.scanGame(s.db.QueryRowContext(ctx,
		`SELECT `+gameColumns+` FROM games WHERE id = ?`, gameID))
}

func (s *SQLiteStore) GameByJoinCode(ctx context.Context, joinCode string) (gameRow, error) {
	return s.scanGame(s.db.QueryRowContext(ctx, `
		SELECT `+gameColumns+` FROM games
		WHERE join_code = ? AND status != 'finished'
		ORDER BY created_at DESC
		LIMIT 1
	`, joinCode))
}

// SetGameStatus applies a guarded transition; the WHERE clause on the old
// status makes concurrent transitions race-safe.
func (s *SQLiteStore) SetGameStatus(ctx context.Context, gameID, from, to string) error {
	var stamp string
	switch to {
	case StatusActive:
		stamp = "started_at"
	case StatusFinished:
		stamp = "ended_at"
	default:
		return ErrInvalidStatus
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE games SET status = ?, `+stamp+` = ?
		WHERE id = ? AND status = ?
	`, to, sqliteNow(), gameID, from)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return ErrInvalidStatus
	}
	return nil
}

func (s *SQLiteStore) DeleteGame(ctx context.Context, teacherID, gameID string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM games WHERE id = ? AND teacher_id = ?
	`, gameID, teacherID)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) GameHasPlayers(ctx context.Context, gameID string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM players WHERE game_id = ?
	`, gameID).Scan(&count)
	return count > 0, err
}

// --- Players ---

func (s *SQLiteStore) CountPlayers(ctx context.Context, gameID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM players WHERE game_id = ?
	`, gameID).Scan(&count)
	return count, err
}

// JoinGame creates the player and grants the starting tile in one
// transaction, so tiles_owned and the tiles table can never disagree.
func (s *SQLiteStore) JoinGame(ctx context.Context, gameID, name, color string, start game.Coord) (string, string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", "", err
	}
	defer tx.Rollback()

	// Inserting through a SELECT on the game's status makes the database
	// reject joins to a started game regardless of application checks.
	var playerID, sessionID string
	err = tx.QueryRowContext(ctx, `
		INSERT INTO players (id, game_id, name, color, session_id, tiles_owned, start_x, start_y)
		SELECT lower(hex(randomblob(16))), id, ?, ?, lower(hex(randomblob(16))), 1, ?, ?
		FROM games WHERE id = ? AND status = 'waiting'
		RETURNING id, session_id
	`, name, color, start.X, start.Y, gameID).Scan(&playerID, &sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", ErrGameNotJoinable
	}
	if err != nil {
		return "", "", err
	}

	result, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO tiles (game_id, x, y, owner_id, claimed_at)
		VALUES (?, ?, ?, ?, ?)
	`, gameID, start.X, start.Y, playerID, sqliteNow())
	if err != nil {
		return "", "", err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return "", "", ErrTileTaken
	}

	return playerID, sessionID, tx.Commit()
}

func (s *SQLiteStore) PlayerFromToken(ctx context.Context, token string) (playerSession, error) {
	var sess playerSession
	err := s.db.QueryRowContext(ctx, `
		SELECT id, game_id FROM players WHERE session_id = ?
	`, token).Scan(&sess.PlayerID, &sess.GameID)
	if errors.Is(err, sql.ErrNoRows) {
		return sess, errNoSession
	}
	return sess, err
}

func (s *SQLiteStore) scanPlayer(row *sql.Row) (PlayerInfo, error) {
	var p PlayerInfo
	err := row.Scan(&p.ID, &p.Name, &p.Color, &p.Score, &p.TilesOwned,
		&p.Start.X, &p.Start.Y, &p.LastSeen)
	if errors.Is(err, sql.ErrNoRows) {
		return p, ErrNotFound
	}
	return p, err
}

func (s *SQLiteStore) GetPlayer(ctx context.Context, playerID string) (PlayerInfo, error) {
	return s.scanPlayer(s.db.QueryRowContext(ctx, `
		SELECT id, name, color, score, tiles_owned, start_x, start_y, last_seen
		FROM players WHERE id = ?
	`, playerID))
}

func (s *SQLiteStore) ListPlayers(ctx context.Context, gameID string) ([]PlayerInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, color, score, tiles_owned, start_x, start_y, last_seen
		FROM players WHERE game_id = ? ORDER BY joined_at
	`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	players := []PlayerInfo{}
	for rows.Next() {
		var p PlayerInfo
		if err := rows.Scan(&p.ID, &p.Name, &p.Color, &p.Score, &p.TilesOwned,
			&p.Start.X, &p.Start.Y, &p.LastSeen); err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

func (s *SQLiteStore) Heartbeat(ctx context.Context, playerID string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE players SET last_seen = ? WHERE id = ?
	`, sqliteNow(), playerID)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkLeft ages the player's heartbeat out so liveness reads report them
// disconnected. The row and their tiles stay; ownership is monotonic.
func (s *SQLiteStore) MarkLeft(ctx context.Context, playerID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE players SET last_seen = '1970-01-01T00:00:00.000Z' WHERE id = ?
	`, playerID)
	return err
}

// --- Tiles ---

func (s *SQLiteStore) TileOwners(ctx context.Context, gameID string) (map[game.Coord]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT x, y, owner_id FROM tiles WHERE game_id = ?
	`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	owners := make(map[game.Coord]string)
	for rows.Next() {
		var c game.Coord
		var owner string
		if err := rows.Scan(&c.X, &c.Y, &owner); err != nil {
			return nil, err
		}
		owners[c] = owner
	}
	return owners, rows.Err()
}

func (s *SQLiteStore) ListTiles(ctx context.Context, gameID string) ([]TileInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.x, t.y, t.owner_id, p.color, t.claimed_at
		FROM tiles t
		JOIN players p ON p.id = t.owner_id
		WHERE t.game_id = ?
		ORDER BY t.claimed_at
	`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tiles := []TileInfo{}
	for rows.Next() {
		var t TileInfo
		if err := rows.Scan(&t.X, &t.Y, &t.OwnerID, &t.Color, &t.ClaimedAt); err != nil {
			return nil, err
		}
		tiles = append(tiles, t)
	}
	return tiles, rows.Err()
}

// ClaimTile commits a won claim: tile insert, score, and tiles_owned move
// in one transaction. INSERT OR IGNORE plus the (game_id, x, y) primary key
// turns a lost race into ErrTileTaken instead of a driver error.
func (s *SQLiteStore) ClaimTile(ctx context.Context, gameID, playerID string, tile game.Coord, points int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO tiles (game_id, x, y, owner_id, claimed_at)
		VALUES (?, ?, ?, ?, ?)
	`, gameID, tile.X, tile.Y, playerID, sqliteNow())
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrTileTaken
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE players SET score = score + ?, tiles_owned = tiles_owned + 1
		WHERE id = ?
	`, points, playerID)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// --- Question history and pending claims ---

func (s *SQLiteStore) ServedQuestions(ctx context.Context, gameID, playerID string) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT question_id FROM served_questions WHERE game_id = ? AND player_id = ?
	`, gameID, playerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	served := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		served[id] = true
	}
	return served, rows.Err()
}

func (s *SQLiteStore) MarkServed(ctx context.Context, gameID, playerID, questionID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO served_questions (game_id, player_id, question_id)
		VALUES (?, ?, ?)
	`, gameID, playerID, questionID)
	return err
}

func (s *SQLiteStore) ResetServed(ctx context.Context, gameID, playerID string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM served_questions WHERE game_id = ? AND player_id = ?
	`, gameID, playerID)
	return err
}

func (s *SQLiteStore) SetPendingClaim(ctx context.Context, gameID, playerID string, tile game.Coord, questionID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pending_claims (game_id, player_id, x, y, question_id)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(game_id, player_id) DO UPDATE SET
			x = excluded.x, y = excluded.y, question_id = excluded.question_id,
			created_at = excluded.created_at
	`, gameID, playerID, tile.X, tile.Y, questionID)
	return err
}

func (s *SQLiteStore) PendingClaim(ctx context.Context, gameID, playerID string) (game.Coord, string, error) {
	var c game.Coord
	var questionID string
	err := s.db.QueryRowContext(ctx, `
		SELECT x, y, question_id FROM pending_claims
		WHERE game_id = ? AND player_id = ?
	`, gameID, playerID).Scan(&c.X, &c.Y, &questionID)
	if errors.Is(err, sql.ErrNoRows) {
		return c, "", ErrNotFound
	}
	return c, questionID, err
}

func (s *SQLiteStore) ClearPendingClaim(ctx context.Context, gameID, playerID string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM pending_claims WHERE game_id = ? AND player_id = ?
	`, gameID, playerID)
	return err
}

package server

import (
	"context"
	"errors"

	"github.com/classquest/gridquiz/internal/game"
)

// Sentinel errors for the request boundary. Handlers translate these into
// HTTP status codes and, for claim results, machine-readable reasons.
var (
	ErrNotFound        = errors.New("not found")
	ErrTileTaken       = errors.New("tile already claimed")
	ErrNotAdjacent     = errors.New("tile not adjacent to your territory")
	ErrInvalidTile     = errors.New("tile out of bounds")
	ErrGameNotActive   = errors.New("game is not active")
	ErrGameNotJoinable = errors.New("game is not accepting players")
	ErrInvalidStatus   = errors.New("invalid status transition")
	ErrNoPendingClaim  = errors.New("no pending claim for this tile")
	ErrNoQuestions     = errors.New("quiz has no questions")
	ErrInvalidOption   = errors.New("answer option out of range")
	ErrNotAuthorized   = errors.New("not authorized")
)

// Game statuses. Transitions are waiting -> active -> finished, one way.
const (
	StatusWaiting  = "waiting"
	StatusActive   = "active"
	StatusFinished = "finished"
)

// Question is the authored form, stored in the quiz's JSONB column. The
// Correct index never reaches players before their answer is graded; see
// QuestionView.
type Question struct {
	ID       string   `json:"id"`
	Text     string   `json:"text"`
	Options  []string `json:"options"`
	Correct  int      `json:"correct"`
	Points   int      `json:"points"`
	Category string   `json:"category,omitempty"`
}

// QuestionView is what a claiming player is shown.
type QuestionView struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
	Points  int      `json:"points"`
}

func (q Question) View() QuestionView {
	return QuestionView{ID: q.ID, Text: q.Text, Options: q.Options, Points: q.Points}
}

type QuizSummary struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	QuestionCount int    `json:"questionCount"`
	CreatedAt     string `json:"createdAt"`
}

type QuizDetail struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Questions   []Question `json:"questions"`
	CreatedAt   string     `json:"createdAt"`
}

type GameSummary struct {
	ID          string `json:"id"`
	QuizID      string `json:"quizId"`
	QuizTitle   string `json:"quizTitle"`
	JoinCode    string `json:"joinCode"`
	Status      string `json:"status"`
	BoardSize   int    `json:"boardSize"`
	PlayerCount int    `json:"playerCount"`
	CreatedAt   string `json:"createdAt"`
}

// gameRow is the internal gameplay view of a session.
type gameRow struct {
	ID               string
	QuizID           string
	TeacherID        string
	JoinCode         string
	Status           string
	BoardSize        int
	TimeLimitSeconds int
	CreatedAt        string
	StartedAt        *string
	EndedAt          *string
}

type PlayerInfo struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Color      string     `json:"color"`
	Score      int        `json:"score"`
	TilesOwned int        `json:"tilesOwned"`
	Start      game.Coord `json:"start"`
	Connected  bool       `json:"connected"`
	LastSeen   string     `json:"-"`
}

type TileInfo struct {
	X         int    `json:"x"`
	Y         int    `json:"y"`
	OwnerID   string `json:"ownerId"`
	Color     string `json:"color"`
	ClaimedAt string `json:"claimedAt"`
}

type playerSession struct {
	PlayerID string
	GameID   string
}

type teacherSession struct {
	TeacherID string
	Email     string
	Name      string
}

type Store interface {
	// Teacher accounts and cookie sessions.
	CreateTeacher(ctx context.Context, email, name, passwordHash string) (teacherID string, err error)
	TeacherByEmail(ctx context.Context, email string) (teacherID, passwordHash string, err error)
	CreateTeacherSession(ctx context.Context, teacherID string) (sessionID string, err error)
	DeleteTeacherSession(ctx context.Context, sessionID string) error
	TeacherFromSession(ctx context.Context, sessionID string) (teacherSession, error)

	// Quiz authoring.
	ListQuizzes(ctx context.Context, teacherID string) ([]QuizSummary, error)
	CreateQuiz(ctx context.Context, teacherID, title, description string, questions []Question) (QuizDetail, error)
	GetQuiz(ctx context.Context, teacherID, quizID string) (QuizDetail, error)
	UpdateQuiz(ctx context.Context, teacherID, quizID, title, description string, questions []Question) (QuizDetail, error)
	DeleteQuiz(ctx context.Context, teacherID, quizID string) error
	QuizHasGames(ctx context.Context, quizID string) (bool, error)
	QuizQuestions(ctx context.Context, quizID string) ([]Question, error)

	// Game sessions.
	CreateGame(ctx context.Context, teacherID, quizID, joinCode string, boardSize, timeLimitSeconds int) (GameSummary, error)
	JoinCodeInUse(ctx context.Context, joinCode string) (bool, error)
	ListGames(ctx context.Context, teacherID string) ([]GameSummary, error)
	GameByID(ctx context.Context, gameID string) (gameRow, error)
	GameByJoinCode(ctx context.Context, joinCode string) (gameRow, error)
	QuizTitle(ctx context.Context, quizID string) (string, error)
	SetGameStatus(ctx context.Context, gameID, from, to string) error
	DeleteGame(ctx context.Context, teacherID, gameID string) error
	GameHasPlayers(ctx context.Context, gameID string) (bool, error)

	// Players.
	CountPlayers(ctx context.Context, gameID string) (int, error)
	JoinGame(ctx context.Context, gameID, name, color string, start game.Coord) (playerID, sessionID string, err error)
	PlayerFromToken(ctx context.Context, token string) (playerSession, error)
	GetPlayer(ctx context.Context, playerID string) (PlayerInfo, error)
	ListPlayers(ctx context.Context, gameID string) ([]PlayerInfo, error)
	Heartbeat(ctx context.Context, playerID string) error
	MarkLeft(ctx context.Context, playerID string) error

	// Board state. TileOwners is the snapshot the adjacency engine reads;
	// ClaimTile is the single commit path for tile ownership and scores.
	TileOwners(ctx context.Context, gameID string) (map[game.Coord]string, error)
	ListTiles(ctx context.Context, gameID string) ([]TileInfo, error)
	ClaimTile(ctx context.Context, gameID, playerID string, tile game.Coord, points int) error

	// Per-player question history.
	ServedQuestions(ctx context.Context, gameID, playerID string) (map[string]bool, error)
	MarkServed(ctx context.Context, gameID, playerID, questionID string) error
	ResetServed(ctx context.Context, gameID, playerID string) error

	// In-flight claims: the question a player must answer for a tile.
	SetPendingClaim(ctx context.Context, gameID, playerID string, tile game.Coord, questionID string) error
	PendingClaim(ctx context.Context, gameID, playerID string) (game.Coord, string, error)
	ClearPendingClaim(ctx context.Context, gameID, playerID string) error
}

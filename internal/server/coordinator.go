package server

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/classquest/gridquiz/internal/game"
)

// Claim rejection reasons surfaced to clients. A losing racer is told the
// tile is gone, not that their answer was wrong.
const (
	ReasonWrongAnswer = "wrong_answer"
	ReasonTileTaken   = "tile_taken"
	ReasonNotAdjacent = "not_adjacent"
)

// AnswerResult is the outcome of a claim commit.
type AnswerResult struct {
	Accepted      bool   `json:"accepted"`
	Reason        string `json:"reason,omitempty"`
	PointsAwarded int    `json:"pointsAwarded"`
	CorrectOption *int   `json:"correctOption,omitempty"`
}

// JoinResult is what a joining player gets back.
type JoinResult struct {
	Token  string
	Player PlayerInfo
	Game   gameRow
}

// Coordinator serializes concurrent claim attempts per game and owns every
// mutation of board state. Validation and commit happen inside the same
// critical section, so two players who both saw a tile as free cannot both
// win it.
type Coordinator struct {
	store  Store
	locks  *gameLocks
	broker *Broker
	now    func() time.Time

	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewCoordinator(store Store, broker *Broker, rng *rand.Rand) *Coordinator {
	return &Coordinator{
		store:  store,
		locks:  newGameLocks(),
		broker: broker,
		now:    time.Now,
		rng:    rng,
	}
}

// activeGame loads the game and enforces the time limit lazily: an active
// game past its deadline is flipped to finished before the caller sees it.
func (c *Coordinator) activeGame(ctx context.Context, gameID string) (gameRow, error) {
	g, err := c.store.GameByID(ctx, gameID)
	if err != nil {
		return g, err
	}
	return c.expireIfOverdue(ctx, g), nil
}

func (c *Coordinator) expireIfOverdue(ctx context.Context, g gameRow) gameRow {
	if g.Status != StatusActive || g.StartedAt == nil || g.TimeLimitSeconds <= 0 {
		return g
	}
	start, err := time.Parse(time.RFC3339Nano, *g.StartedAt)
	if err != nil {
		return g
	}
	if c.now().Sub(start) <= time.Duration(g.TimeLimitSeconds)*time.Second {
		return g
	}

	if err := c.store.SetGameStatus(ctx, g.ID, StatusActive, StatusFinished); err == nil {
		c.broker.Publish(g.ID, Event{Type: eventGameStatusChanged, Status: StatusFinished})
	}
	g.Status = StatusFinished
	return g
}

// Join places a new player on an edge tile of a waiting game. Placement
// runs under the game lock so two simultaneous joins cannot pick the same
// starting cell.
func (c *Coordinator) Join(ctx context.Context, joinCode, playerName string) (JoinResult, error) {
	g, err := c.store.GameByJoinCode(ctx, joinCode)
	if err != nil {
		return JoinResult{}, err
	}
	if g.Status != StatusWaiting {
		return JoinResult{}, ErrGameNotJoinable
	}

	mu := c.locks.get(g.ID)
	mu.Lock()
	defer mu.Unlock()

	// The game may have started between the lookup and the lock; re-check
	// under the lock. The guarded INSERT in JoinGame is the backstop.
	g, err = c.store.GameByID(ctx, g.ID)
	if err != nil {
		return JoinResult{}, err
	}
	if g.Status != StatusWaiting {
		return JoinResult{}, ErrGameNotJoinable
	}

	owners, err := c.store.TileOwners(ctx, g.ID)
	if err != nil {
		return JoinResult{}, err
	}
	taken := make(map[game.Coord]bool, len(owners))
	for coord := range owners {
		taken[coord] = true
	}

	joined, err := c.store.CountPlayers(ctx, g.ID)
	if err != nil {
		return JoinResult{}, err
	}
	color := game.PlayerColor(joined)

	c.rngMu.Lock()
	start := game.StartingTile(g.BoardSize, taken, c.rng)
	c.rngMu.Unlock()

	playerID, token, err := c.store.JoinGame(ctx, g.ID, playerName, color, start)
	if err != nil {
		return JoinResult{}, fmt.Errorf("joining game: %w", err)
	}

	c.broker.Publish(g.ID, Event{
		Type:       eventPlayerJoined,
		PlayerID:   playerID,
		PlayerName: playerName,
		Color:      color,
		Tile:       &start,
	})

	return JoinResult{
		Token: token,
		Player: PlayerInfo{
			ID:         playerID,
			Name:       playerName,
			Color:      color,
			TilesOwned: 1,
			Start:      start,
			Connected:  true,
		},
		Game: g,
	}, nil
}

// RequestClaim validates a claim attempt and serves the question the
// player must answer. The correct option stays server-side; the claim is
// parked in pending_claims until the answer arrives.
func (c *Coordinator) RequestClaim(ctx context.Context, sess playerSession, tile game.Coord) (QuestionView, error) {
	g, err := c.activeGame(ctx, sess.GameID)
	if err != nil {
		return QuestionView{}, err
	}
	if g.Status != StatusActive {
		return QuestionView{}, ErrGameNotActive
	}

	owners, err := c.store.TileOwners(ctx, g.ID)
	if err != nil {
		return QuestionView{}, err
	}
	board := game.Board{Size: g.BoardSize, Owners: owners}

	if !board.InBounds(tile) {
		return QuestionView{}, ErrInvalidTile
	}
	if board.OwnerOf(tile) != "" {
		return QuestionView{}, ErrTileTaken
	}
	if !board.Claimable(tile, sess.PlayerID) {
		return QuestionView{}, ErrNotAdjacent
	}

	pool, err := c.store.QuizQuestions(ctx, g.QuizID)
	if err != nil {
		return QuestionView{}, err
	}
	if len(pool) == 0 {
		return QuestionView{}, ErrNoQuestions
	}

	served, err := c.store.ServedQuestions(ctx, g.ID, sess.PlayerID)
	if err != nil {
		return QuestionView{}, err
	}

	poolIDs := make([]string, len(pool))
	byID := make(map[string]Question, len(pool))
	for i, q := range pool {
		poolIDs[i] = q.ID
		byID[q.ID] = q
	}

	c.rngMu.Lock()
	questionID, reset := game.NextQuestion(poolIDs, served, c.rng)
	c.rngMu.Unlock()
	if reset {
		if err := c.store.ResetServed(ctx, g.ID, sess.PlayerID); err != nil {
			return QuestionView{}, err
		}
	}
	if err := c.store.MarkServed(ctx, g.ID, sess.PlayerID, questionID); err != nil {
		return QuestionView{}, err
	}

	if err := c.store.SetPendingClaim(ctx, g.ID, sess.PlayerID, tile, questionID); err != nil {
		return QuestionView{}, err
	}

	return byID[questionID].View(), nil
}

// SubmitAnswer commits a claim. Status, vacancy, and adjacency are all
// re-checked inside the per-game critical section; at most one submission
// per tile ever reaches ClaimTile with a free board cell.
func (c *Coordinator) SubmitAnswer(ctx context.Context, sess playerSession, tile game.Coord, option int) (AnswerResult, error) {
	mu := c.locks.get(sess.GameID)
	mu.Lock()
	defer mu.Unlock()

	g, err := c.activeGame(ctx, sess.GameID)
	if err != nil {
		return AnswerResult{}, err
	}
	if g.Status != StatusActive {
		return AnswerResult{}, ErrGameNotActive
	}

	pendingTile, questionID, err := c.store.PendingClaim(ctx, g.ID, sess.PlayerID)
	if errors.Is(err, ErrNotFound) || (err == nil && pendingTile != tile) {
		return AnswerResult{}, ErrNoPendingClaim
	}
	if err != nil {
		return AnswerResult{}, err
	}

	pool, err := c.store.QuizQuestions(ctx, g.QuizID)
	if err != nil {
		return AnswerResult{}, err
	}
	var question Question
	found := false
	for _, q := range pool {
		if q.ID == questionID {
			question, found = q, true
			break
		}
	}
	if !found {
		return AnswerResult{}, fmt.Errorf("pending question %s no longer in quiz", questionID)
	}
	if option < 0 || option >= len(question.Options) {
		return AnswerResult{}, ErrInvalidOption
	}

	owners, err := c.store.TileOwners(ctx, g.ID)
	if err != nil {
		return AnswerResult{}, err
	}
	board := game.Board{Size: g.BoardSize, Owners: owners}

	// The attempt is consumed whatever happens next.
	if err := c.store.ClearPendingClaim(ctx, g.ID, sess.PlayerID); err != nil {
		return AnswerResult{}, err
	}

	if board.OwnerOf(tile) != "" {
		return AnswerResult{Accepted: false, Reason: ReasonTileTaken}, nil
	}
	if !board.Claimable(tile, sess.PlayerID) {
		return AnswerResult{Accepted: false, Reason: ReasonNotAdjacent}, nil
	}
	if option != question.Correct {
		correct := question.Correct
		return AnswerResult{Accepted: false, Reason: ReasonWrongAnswer, CorrectOption: &correct}, nil
	}

	if err := c.store.ClaimTile(ctx, g.ID, sess.PlayerID, tile, question.Points); err != nil {
		if errors.Is(err, ErrTileTaken) {
			return AnswerResult{Accepted: false, Reason: ReasonTileTaken}, nil
		}
		return AnswerResult{}, err
	}

	player, err := c.store.GetPlayer(ctx, sess.PlayerID)
	if err != nil {
		return AnswerResult{}, err
	}

	// Published inside the critical section so events for the same tile go
	// out in commit order.
	c.broker.Publish(g.ID, Event{
		Type:       eventTileClaimed,
		PlayerID:   player.ID,
		PlayerName: player.Name,
		Color:      player.Color,
		Tile:       &tile,
		Points:     question.Points,
	})

	return AnswerResult{Accepted: true, PointsAwarded: question.Points}, nil
}

// SetStatus applies a teacher-requested transition. Only the owning
// teacher may transition, and only waiting->active or active->finished.
func (c *Coordinator) SetStatus(ctx context.Context, teacherID, gameID, to string) (gameRow, error) {
	g, err := c.store.GameByID(ctx, gameID)
	if err != nil {
		return g, err
	}
	if g.TeacherID != teacherID {
		return g, ErrNotAuthorized
	}

	valid := (g.Status == StatusWaiting && to == StatusActive) ||
		(g.Status == StatusActive && to == StatusFinished)
	if !valid {
		return g, ErrInvalidStatus
	}

	if err := c.store.SetGameStatus(ctx, gameID, g.Status, to); err != nil {
		return g, err
	}

	c.broker.Publish(gameID, Event{Type: eventGameStatusChanged, Status: to})

	return c.store.GameByID(ctx, gameID)
}

// Leave records an explicit departure. The player's tiles stay claimed.
func (c *Coordinator) Leave(ctx context.Context, sess playerSession) error {
	player, err := c.store.GetPlayer(ctx, sess.PlayerID)
	if err != nil {
		return err
	}
	if err := c.store.MarkLeft(ctx, sess.PlayerID); err != nil {
		return err
	}
	c.broker.Publish(sess.GameID, Event{
		Type:       eventPlayerLeft,
		PlayerID:   player.ID,
		PlayerName: player.Name,
	})
	return nil
}

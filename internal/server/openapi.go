package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "GridQuiz API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Backend API for the GridQuiz territory quiz game.")

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.SetDescription("Returns the health status of backend dependencies.")
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getHealthz)

	// GET /api/games/{joinCode}
	getGameLookup, _ := r.NewOperationContext(http.MethodGet, "/api/games/{joinCode}")
	getGameLookup.SetSummary("Look up game")
	getGameLookup.SetDescription("Look up a game by its join code before joining.")
	getGameLookup.AddRespStructure(GameLookupResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getGameLookup.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getGameLookup)

	// POST /api/join
	postJoin, _ := r.NewOperationContext(http.MethodPost, "/api/join")
	postJoin.SetSummary("Join a game")
	postJoin.SetDescription("Join a waiting game with a join code. Grants a starting tile on the board edge and returns a session token.")
	postJoin.AddReqStructure(JoinRequest{})
	postJoin.AddRespStructure(JoinResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postJoin.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postJoin.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	postJoin.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postJoin)

	// GET /api/play/state
	getState, _ := r.NewOperationContext(http.MethodGet, "/api/play/state")
	getState.SetSummary("Get game state")
	getState.SetDescription("Returns the full board, players, and scores. Requires Bearer token.")
	getState.AddRespStructure(GameStateResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getState.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(getState)

	// POST /api/play/claim
	postClaim, _ := r.NewOperationContext(http.MethodPost, "/api/play/claim")
	postClaim.SetSummary("Request a tile claim")
	postClaim.SetDescription("Validates adjacency and vacancy, then serves the question to answer. The correct option is never included. Requires Bearer token.")
	postClaim.AddReqStructure(ClaimRequest{})
	postClaim.AddRespStructure(ClaimResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postClaim.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postClaim.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	postClaim.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postClaim)

	// POST /api/play/answer
	postAnswer, _ := r.NewOperationContext(http.MethodPost, "/api/play/answer")
	postAnswer.SetSummary("Submit answer")
	postAnswer.SetDescription("Commits a pending claim. Rejections during normal play (wrong answer, tile lost to a race) return 200 with accepted=false and a reason. Requires Bearer token.")
	postAnswer.AddReqStructure(AnswerRequest{})
	postAnswer.AddRespStructure(AnswerResult{}, openapi.WithHTTPStatus(http.StatusOK))
	postAnswer.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	postAnswer.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postAnswer)

	// POST /api/play/heartbeat
	postHeartbeat, _ := r.NewOperationContext(http.MethodPost, "/api/play/heartbeat")
	postHeartbeat.SetSummary("Heartbeat")
	postHeartbeat.SetDescription("Refreshes the player's liveness timestamp. Requires Bearer token.")
	postHeartbeat.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusNoContent))
	postHeartbeat.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(postHeartbeat)

	// POST /api/play/leave
	postLeave, _ := r.NewOperationContext(http.MethodPost, "/api/play/leave")
	postLeave.SetSummary("Leave game")
	postLeave.SetDescription("Marks the player as departed. Claimed tiles stay claimed. Requires Bearer token.")
	postLeave.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusNoContent))
	postLeave.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(postLeave)

	// GET /api/play/events
	getEvents, _ := r.NewOperationContext(http.MethodGet, "/api/play/events")
	getEvents.SetSummary("SSE event stream")
	getEvents.SetDescription("Server-Sent Events stream of game deltas. Pass token as query parameter.")
	getEvents.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("text/event-stream"))
	_ = r.AddOperation(getEvents)

	// POST /api/teacher/login
	postLogin, _ := r.NewOperationContext(http.MethodPost, "/api/teacher/login")
	postLogin.SetSummary("Teacher login")
	postLogin.SetDescription("Authenticate with email and password. Sets teacher_session cookie.")
	postLogin.AddReqStructure(TeacherLoginRequest{})
	postLogin.AddRespStructure(TeacherMeResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postLogin.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(postLogin)

	// POST /api/teacher/logout
	postLogout, _ := r.NewOperationContext(http.MethodPost, "/api/teacher/logout")
	postLogout.SetSummary("Teacher logout")
	postLogout.SetDescription("Clears the teacher session and cookie.")
	postLogout.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(postLogout)

	// GET /api/teacher/me
	getMe, _ := r.NewOperationContext(http.MethodGet, "/api/teacher/me")
	getMe.SetSummary("Current teacher")
	getMe.SetDescription("Returns the authenticated teacher. Requires teacher_session cookie.")
	getMe.AddRespStructure(TeacherMeResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getMe.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(getMe)

	// GET /api/teacher/quizzes
	listQuizzes, _ := r.NewOperationContext(http.MethodGet, "/api/teacher/quizzes")
	listQuizzes.SetSummary("List quizzes")
	listQuizzes.AddRespStructure([]QuizSummary{}, openapi.WithHTTPStatus(http.StatusOK))
	listQuizzes.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(listQuizzes)

	// POST /api/teacher/quizzes
	createQuiz, _ := r.NewOperationContext(http.MethodPost, "/api/teacher/quizzes")
	createQuiz.SetSummary("Create quiz")
	createQuiz.SetDescription("Creates a quiz with 2-4 option questions.")
	createQuiz.AddReqStructure(QuizRequest{})
	createQuiz.AddRespStructure(QuizDetail{}, openapi.WithHTTPStatus(http.StatusCreated))
	createQuiz.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	createQuiz.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(createQuiz)

	// GET /api/teacher/quizzes/{id}
	getQuiz, _ := r.NewOperationContext(http.MethodGet, "/api/teacher/quizzes/{id}")
	getQuiz.SetSummary("Get quiz")
	getQuiz.AddRespStructure(QuizDetail{}, openapi.WithHTTPStatus(http.StatusOK))
	getQuiz.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getQuiz)

	// PUT /api/teacher/quizzes/{id}
	updateQuiz, _ := r.NewOperationContext(http.MethodPut, "/api/teacher/quizzes/{id}")
	updateQuiz.SetSummary("Update quiz")
	updateQuiz.AddReqStructure(QuizRequest{})
	updateQuiz.AddRespStructure(QuizDetail{}, openapi.WithHTTPStatus(http.StatusOK))
	updateQuiz.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	updateQuiz.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(updateQuiz)

	// DELETE /api/teacher/quizzes/{id}
	deleteQuiz, _ := r.NewOperationContext(http.MethodDelete, "/api/teacher/quizzes/{id}")
	deleteQuiz.SetSummary("Delete quiz")
	deleteQuiz.SetDescription("Deletes a quiz. Blocked while games reference it.")
	deleteQuiz.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	deleteQuiz.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	deleteQuiz.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(deleteQuiz)

	// GET /api/teacher/games
	listGames, _ := r.NewOperationContext(http.MethodGet, "/api/teacher/games")
	listGames.SetSummary("List games")
	listGames.AddRespStructure([]GameSummary{}, openapi.WithHTTPStatus(http.StatusOK))
	listGames.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(listGames)

	// POST /api/teacher/games
	createGame, _ := r.NewOperationContext(http.MethodPost, "/api/teacher/games")
	createGame.SetSummary("Create game session")
	createGame.SetDescription("Creates a waiting game for a quiz and allocates a unique join code.")
	createGame.AddReqStructure(CreateGameRequest{})
	createGame.AddRespStructure(GameSummary{}, openapi.WithHTTPStatus(http.StatusCreated))
	createGame.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	createGame.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(createGame)

	// GET /api/teacher/games/{gameID}
	getGame, _ := r.NewOperationContext(http.MethodGet, "/api/teacher/games/{gameID}")
	getGame.SetSummary("Game dashboard")
	getGame.SetDescription("Returns the live board, players, and scores for one game.")
	getGame.AddRespStructure(GameDashboardResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getGame.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	getGame.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusForbidden))
	_ = r.AddOperation(getGame)

	// PUT /api/teacher/games/{gameID}/status
	setStatus, _ := r.NewOperationContext(http.MethodPut, "/api/teacher/games/{gameID}/status")
	setStatus.SetSummary("Transition game status")
	setStatus.SetDescription("Starts (waiting to active) or ends (active to finished) a game. One-way transitions only.")
	setStatus.AddReqStructure(SetStatusRequest{})
	setStatus.AddRespStructure(GameInfo{}, openapi.WithHTTPStatus(http.StatusOK))
	setStatus.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	setStatus.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusForbidden))
	_ = r.AddOperation(setStatus)

	// DELETE /api/teacher/games/{gameID}
	deleteGame, _ := r.NewOperationContext(http.MethodDelete, "/api/teacher/games/{gameID}")
	deleteGame.SetSummary("Delete game")
	deleteGame.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	deleteGame.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(deleteGame)

	// GET /api/teacher/games/{gameID}/qr
	getQR, _ := r.NewOperationContext(http.MethodGet, "/api/teacher/games/{gameID}/qr")
	getQR.SetSummary("Join QR code")
	getQR.SetDescription("PNG QR code of the game's join link.")
	getQR.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("image/png"))
	getQR.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getQR)

	// GET /api/teacher/games/{gameID}/watch
	getWatch, _ := r.NewOperationContext(http.MethodGet, "/api/teacher/games/{gameID}/watch")
	getWatch.SetSummary("Dashboard event stream")
	getWatch.SetDescription("Upgrades to a WebSocket that streams game events to the teacher dashboard.")
	getWatch.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusSwitchingProtocols),
		openapi.WithContentType("text/plain"))
	_ = r.AddOperation(getWatch)

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.Encode(spec)
	}
}

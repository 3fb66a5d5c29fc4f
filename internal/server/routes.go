package server

import (
	"database/sql"
	"log/slog"
	"math/rand"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"
)

func addRoutes(r chi.Router, logger *slog.Logger, db *sql.DB, store Store, publicURL string) {
	broker := NewBroker()
	coord := NewCoordinator(store, broker, rand.New(rand.NewSource(time.Now().UnixNano())))

	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("GridQuiz API", "/openapi.json", "/docs"))
	r.Get("/healthz", handleHealth(logger, db))

	// Player routes. Joining needs no token; everything under /api/play
	// resolves the Bearer token per request.
	r.Get("/api/games/{joinCode}", handleGameLookup(store))
	r.Post("/api/join", handleJoin(coord))
	r.Route("/api/play", func(r chi.Router) {
		r.Get("/state", handleGameState(store, coord))
		r.Post("/claim", handleClaim(store, coord))
		r.Post("/answer", handleAnswer(store, coord))
		r.Post("/heartbeat", handleHeartbeat(store))
		r.Post("/leave", handleLeave(store, coord))
		r.Get("/events", handleEvents(store, broker))
	})

	// Teacher auth.
	r.Post("/api/teacher/login", handleTeacherLogin(store))
	r.Post("/api/teacher/logout", handleTeacherLogout(store))
	r.Get("/api/teacher/me", handleTeacherMe(store))

	// Quiz authoring.
	r.Route("/api/teacher/quizzes", func(r chi.Router) {
		r.Use(teacherAuthMiddleware(store))
		r.Get("/", handleListQuizzes(store))
		r.Post("/", handleCreateQuiz(store))
		r.Get("/{id}", handleGetQuiz(store))
		r.Put("/{id}", handleUpdateQuiz(store))
		r.Delete("/{id}", handleDeleteQuiz(store))
	})

	// Game sessions.
	r.Route("/api/teacher/games", func(r chi.Router) {
		r.Use(teacherAuthMiddleware(store))
		r.Get("/", handleListGames(store))
		r.Post("/", handleCreateGame(store, coord))
		r.Get("/{gameID}", handleGetGame(store, coord))
		r.Put("/{gameID}/status", handleSetGameStatus(coord))
		r.Delete("/{gameID}", handleDeleteGame(store))
		r.Get("/{gameID}/qr", handleGameQR(store, publicURL))
		r.Get("/{gameID}/watch", handleWatch(logger, store, broker))
	})
}

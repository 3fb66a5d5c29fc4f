package server

import (
	"context"
	"log/slog"

	"golang.org/x/crypto/bcrypt"
)

const (
	DemoTeacherEmail    = "teacher@example.com"
	DemoTeacherPassword = "gridquiz-demo"
	DemoJoinCode        = "DEMO42"
)

// SeedDemo creates a demo teacher, quiz, and waiting game on an empty
// database. Idempotent: does nothing once the teacher exists.
func SeedDemo(ctx context.Context, logger *slog.Logger, store Store) error {
	if _, _, err := store.TeacherByEmail(ctx, DemoTeacherEmail); err == nil {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(DemoTeacherPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	teacherID, err := store.CreateTeacher(ctx, DemoTeacherEmail, "Demo Teacher", string(hash))
	if err != nil {
		return err
	}

	quiz, err := store.CreateQuiz(ctx, teacherID, "World Capitals", "Warm-up geography round", []Question{
		{ID: "q1", Text: "What is the capital of France?", Options: []string{"Lyon", "Paris", "Marseille"}, Correct: 1, Points: 100, Category: "Europe"},
		{ID: "q2", Text: "What is the capital of Japan?", Options: []string{"Tokyo", "Osaka", "Kyoto", "Nagoya"}, Correct: 0, Points: 100, Category: "Asia"},
		{ID: "q3", Text: "What is the capital of Peru?", Options: []string{"Cusco", "Arequipa", "Lima"}, Correct: 2, Points: 150, Category: "Americas"},
		{ID: "q4", Text: "What is the capital of Egypt?", Options: []string{"Cairo", "Alexandria"}, Correct: 0, Points: 100, Category: "Africa"},
		{ID: "q5", Text: "What is the capital of Australia?", Options: []string{"Sydney", "Melbourne", "Canberra", "Perth"}, Correct: 2, Points: 150, Category: "Oceania"},
	})
	if err != nil {
		return err
	}

	if _, err := store.CreateGame(ctx, teacherID, quiz.ID, DemoJoinCode, 8, 300); err != nil {
		return err
	}

	logger.Info("demo teacher and game seeded", "email", DemoTeacherEmail, "joinCode", DemoJoinCode)
	return nil
}

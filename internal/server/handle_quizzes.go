package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

type QuizRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Questions   []Question `json:"questions"`
}

func validateQuiz(req *QuizRequest) error {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return errors.New("title is required")
	}
	for i := range req.Questions {
		q := &req.Questions[i]
		q.Text = strings.TrimSpace(q.Text)
		if q.Text == "" {
			return fmt.Errorf("question %d: text is required", i+1)
		}
		if len(q.Options) < 2 || len(q.Options) > 4 {
			return fmt.Errorf("question %d: need 2-4 options", i+1)
		}
		if q.Correct < 0 || q.Correct >= len(q.Options) {
			return fmt.Errorf("question %d: correct option out of range", i+1)
		}
		if q.Points <= 0 {
			q.Points = 100
		}
		if q.ID == "" {
			q.ID = fmt.Sprintf("q%d", i+1)
		}
	}
	return nil
}

func handleListQuizzes(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quizzes, err := store.ListQuizzes(r.Context(), teacherFrom(r).TeacherID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, quizzes)
	}
}

func handleCreateQuiz(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req QuizRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := validateQuiz(&req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		quiz, err := store.CreateQuiz(r.Context(), teacherFrom(r).TeacherID, req.Title, req.Description, req.Questions)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusCreated, quiz)
	}
}

func handleGetQuiz(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quiz, err := store.GetQuiz(r.Context(), teacherFrom(r).TeacherID, chi.URLParam(r, "id"))
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "quiz not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, quiz)
	}
}

func handleUpdateQuiz(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req QuizRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := validateQuiz(&req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		quiz, err := store.UpdateQuiz(r.Context(), teacherFrom(r).TeacherID, chi.URLParam(r, "id"), req.Title, req.Description, req.Questions)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "quiz not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, quiz)
	}
}

func handleDeleteQuiz(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quizID := chi.URLParam(r, "id")

		inUse, err := store.QuizHasGames(r.Context(), quizID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if inUse {
			writeError(w, http.StatusConflict, "quiz is used by existing games")
			return
		}

		err = store.DeleteQuiz(r.Context(), teacherFrom(r).TeacherID, quizID)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "quiz not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

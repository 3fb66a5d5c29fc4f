package server

import (
	"context"
	"net/http"
)

type ctxKey int

const ctxKeyTeacher ctxKey = iota

const teacherCookieName = "teacher_session"

func teacherAuthMiddleware(store Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(teacherCookieName)
			if err != nil || cookie.Value == "" {
				writeError(w, http.StatusUnauthorized, "not authenticated")
				return
			}

			sess, err := store.TeacherFromSession(r.Context(), cookie.Value)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "not authenticated")
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyTeacher, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func teacherFrom(r *http.Request) teacherSession {
	return r.Context().Value(ctxKeyTeacher).(teacherSession)
}

package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"muxlti/internal/logger"
)

// SessionURLParam - имя параметра маршрута с идентификатором сессии.
const SessionURLParam = "sessionID"

type SessionStore interface {
	GetSession(ctx context.Context, sessionID string) (*Session, error)
}

// SessionHandlerFunc - обработчик, которому нужна проверенная LTI-сессия.
type SessionHandlerFunc func(w http.ResponseWriter, r *http.Request, session *Session)

// Guard проверяет сессию до вызова обработчика.
type Guard struct {
	sessions SessionStore
	log      *logger.Logger
}

func NewGuard(sessions SessionStore, log *logger.Logger) *Guard {
	return &Guard{sessions: sessions, log: log.With("component", "auth")}
}

// Learner пускает любого участника курса с действующей сессией.
func (g *Guard) Learner(h SessionHandlerFunc) http.HandlerFunc {
	return g.wrap(h, false)
}

// Instructor пускает только преподавателей и администраторов курса.
func (g *Guard) Instructor(h SessionHandlerFunc) http.HandlerFunc {
	return g.wrap(h, true)
}

func (g *Guard) wrap(h SessionHandlerFunc, instructorOnly bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, SessionURLParam)
		session, err := g.sessions.GetSession(r.Context(), sessionID)
		if err != nil {
			if errors.Is(err, ErrSessionNotFound) {
				http.Error(w, "Invalid LTI session", http.StatusForbidden)
				return
			}
			g.log.Error("failed to load lti session", "session_id", sessionID, "error", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		if instructorOnly && !session.IsInstructor() {
			http.Error(w, "Instructor role required", http.StatusForbidden)
			return
		}

		h(w, r, session)
	}
}

package server

import (
	"context"
	"net/http"
	"strings"

	"companion/domain/entities"

	log "github.com/sirupsen/logrus"
)

type contextKey string

const sessionContextKey contextKey = "session"

// withSession resolves the bearer session token (or, for the websocket
// upgrade, the token query parameter) and rejects the request when no live
// session matches.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			token = r.URL.Query().Get("token")
		}

		session, err := s.auth.Authenticate(r.Context(), token)
		if err != nil {
			log.WithError(err).Error("Session lookup failed")
			writeError(w, http.StatusInternalServerError, "session lookup failed")
			return
		}
		if session == nil {
			writeError(w, http.StatusUnauthorized, "access required")
			return
		}

		ctx := context.WithValue(r.Context(), sessionContextKey, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// sessionFrom returns the session the middleware attached to the context.
func sessionFrom(ctx context.Context) *entities.Session {
	session, _ := ctx.Value(sessionContextKey).(*entities.Session)
	return session
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

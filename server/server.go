package server

import (
	"encoding/json"
	"net/http"

	"companion/domain/interfaces"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"
)

// Server exposes the companion's browser-facing JSON API and websocket.
type Server struct {
	auth        interfaces.AuthService
	lottery     interfaces.LotteryService
	ranking     interfaces.RankingService
	broadcaster *Broadcaster
}

// New creates the server over the given services.
func New(auth interfaces.AuthService, lottery interfaces.LotteryService, ranking interfaces.RankingService, broadcaster *Broadcaster) *Server {
	return &Server{
		auth:        auth,
		lottery:     lottery,
		ranking:     ranking,
		broadcaster: broadcaster,
	}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	// Public routes
	r.Post("/api/login", s.handleLogin)
	r.Get("/healthz", s.handleHealthz)

	// Session-scoped routes
	r.Group(func(r chi.Router) {
		r.Use(s.withSession)
		r.Get("/api/tickets", s.handleTickets)
		r.Post("/api/tickets/{id}/reveal", s.handleReveal)
		r.Post("/api/tickets/next", s.handleNext)
		r.Post("/api/tickets/reveal-all", s.handleRevealAll)
		r.Get("/api/summary", s.handleSummary)
		r.Get("/api/lottery/ranking", s.handlePayoutRanking)
		r.Get("/api/ranking", s.handleRanking)
		r.Get("/ws", s.handleWS)
	})

	return r
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// writeJSON encodes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.WithError(err).Error("Failed to encode response")
	}
}

// errorResponse is the JSON shape of every error reply.
type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"companion/domain/entities"
	"companion/domain/interfaces"
	"companion/domain/services"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"
)

// loginRequest is the access-key exchange request from the browser.
type loginRequest struct {
	AccessKey string `json:"accessKey"`
}

// loginResponse carries the companion session issued on success.
type loginResponse struct {
	Token     string          `json:"token"`
	Address   string          `json:"address"`
	Profile   json.RawMessage `json:"profile"`
	ExpiresAt time.Time       `json:"expiresAt"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := s.auth.Login(r.Context(), req.AccessKey)
	if err != nil {
		if errors.Is(err, services.ErrAccessDenied) {
			writeError(w, http.StatusUnauthorized, "access required")
			return
		}
		log.WithError(err).Error("Login failed")
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Token:     session.Token,
		Address:   session.Address,
		Profile:   session.Profile,
		ExpiresAt: session.ExpiresAt,
	})
}

func (s *Server) handleTickets(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r.Context())

	view, err := s.lottery.LoadTickets(r.Context(), session)
	if err != nil {
		log.WithError(err).Error("Failed to load tickets")
		writeError(w, http.StatusInternalServerError, "failed to load tickets")
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// revealResponse pairs the settled ticket with the refreshed view.
type revealResponse struct {
	Ticket *entities.Ticket       `json:"ticket"`
	View   *interfaces.TicketView `json:"view"`
}

func (s *Server) handleReveal(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r.Context())

	ticketID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid ticket id")
		return
	}

	ticket, view, err := s.lottery.Reveal(r.Context(), session, ticketID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrRevealInFlight),
			errors.Is(err, services.ErrWrongTicket),
			errors.Is(err, services.ErrNoTicketToReveal),
			errors.Is(err, services.ErrTicketsNotLoaded):
			writeError(w, http.StatusConflict, err.Error())
		default:
			// Ticket stays unrevealed; the user may retry the same ticket.
			writeError(w, http.StatusBadGateway, "failed to reveal ticket, please try again")
		}
		return
	}

	writeJSON(w, http.StatusOK, revealResponse{Ticket: ticket, View: view})
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r.Context())

	view, err := s.lottery.Advance(r.Context(), session)
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleRevealAll(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r.Context())

	view, err := s.lottery.RevealAll(r.Context(), session)
	if err != nil {
		if errors.Is(err, services.ErrRevealInFlight) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusBadGateway, "failed to reveal tickets, please try again")
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// summaryResponse degrades to available=false when the upstream fetch
// fails; the browser shows a temporarily-unavailable notice.
type summaryResponse struct {
	Available bool                     `json:"available"`
	Summary   *entities.LotterySummary `json:"summary,omitempty"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r.Context())

	summary, err := s.lottery.Summary(r.Context(), session, boolQuery(r, "revealedOnly"))
	if err != nil {
		log.WithError(err).Warn("Lottery summary unavailable")
		writeJSON(w, http.StatusOK, summaryResponse{Available: false})
		return
	}

	writeJSON(w, http.StatusOK, summaryResponse{Available: true, Summary: summary})
}

type payoutRankingResponse struct {
	Available bool                          `json:"available"`
	Users     []entities.PayoutRankingEntry `json:"users"`
}

func (s *Server) handlePayoutRanking(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	users, err := s.lottery.PayoutRanking(r.Context(), limit, boolQuery(r, "revealedOnly"))
	if err != nil {
		log.WithError(err).Warn("Payout ranking unavailable")
		writeJSON(w, http.StatusOK, payoutRankingResponse{Available: false, Users: []entities.PayoutRankingEntry{}})
		return
	}
	if users == nil {
		users = []entities.PayoutRankingEntry{}
	}

	writeJSON(w, http.StatusOK, payoutRankingResponse{Available: true, Users: users})
}

type rankingResponse struct {
	Available bool                  `json:"available"`
	Top       []entities.RankedUser `json:"top"`
	Mine      *entities.RankedUser  `json:"mine,omitempty"`
}

func (s *Server) handleRanking(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r.Context())

	ranking, err := s.ranking.GameRanking(r.Context(), session.Address)
	if err != nil {
		log.WithError(err).Warn("Game ranking unavailable")
		writeJSON(w, http.StatusOK, rankingResponse{Available: false, Top: []entities.RankedUser{}})
		return
	}

	top := ranking.Top
	if top == nil {
		top = []entities.RankedUser{}
	}
	writeJSON(w, http.StatusOK, rankingResponse{Available: true, Top: top, Mine: ranking.Mine})
}

// boolQuery parses an optional boolean query parameter; absent or
// unparsable values mean "not set".
func boolQuery(r *http.Request, key string) *bool {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &value
}

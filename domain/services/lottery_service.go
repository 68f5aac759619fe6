package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"companion/domain/entities"
	"companion/domain/interfaces"
	"companion/events"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// ErrTicketsNotLoaded is returned when a reveal is attempted before the
// session's ticket view has been loaded.
var ErrTicketsNotLoaded = errors.New("tickets have not been loaded for this session")

// sessionTicketState is the volatile per-session ticket state. It lives in
// memory only; tickets are always refetched from the lottery API on load.
type sessionTicketState struct {
	collection        entities.TicketCollection
	localRevealed     []entities.Ticket
	flow              *RevealFlow
	degraded          bool
	revealAllInFlight bool
	lastAccess        time.Time
}

// lotteryService implements ticket loading, reconciliation and the guarded
// reveal flow on top of the lottery API.
type lotteryService struct {
	client    interfaces.LotteryAPIClient
	publisher interfaces.EventPublisher

	mu     sync.Mutex
	states map[string]*sessionTicketState
}

// NewLotteryService creates a new lottery service
func NewLotteryService(client interfaces.LotteryAPIClient, publisher interfaces.EventPublisher) interfaces.LotteryService {
	return &lotteryService{
		client:    client,
		publisher: publisher,
		states:    make(map[string]*sessionTicketState),
	}
}

// LoadTickets fetches the server "all" and "revealed" ticket lists and
// reconciles them with tickets revealed locally this session. If either
// fetch fails the view degrades to local knowledge only; the reveal flow
// keeps working against what the session already knows.
func (s *lotteryService) LoadTickets(ctx context.Context, session *entities.Session) (*interfaces.TicketView, error) {
	address := session.Address

	allTickets, errAll := s.client.FetchTickets(ctx, address, nil)
	revealed := true
	revealedTickets, errRev := s.client.FetchTickets(ctx, address, &revealed)

	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.stateLocked(session.Token)

	if errAll != nil || errRev != nil {
		log.WithFields(log.Fields{
			"address":  address,
			"errorAll": errAll,
			"errorRev": errRev,
		}).Warn("Ticket fetch failed, falling back to locally known reveals")

		st.collection = MergeTickets(st.localRevealed)
		st.degraded = true
		if st.flow == nil {
			st.flow = NewRevealFlow(nil)
		}
		return s.viewLocked(st), nil
	}

	merged := MergeTickets(allTickets, revealedTickets, st.localRevealed)

	// The unrevealed sequence keeps the server's ordering of the full list.
	var unrevealed []entities.Ticket
	for _, t := range allTickets {
		if m, ok := merged[t.ID]; ok && !m.Revealed {
			unrevealed = append(unrevealed, m)
		}
	}

	st.collection = merged
	st.degraded = false
	if st.flow == nil || (st.flow.State() != FlowStateRevealing && !st.revealAllInFlight) {
		flow := NewRevealFlow(unrevealed)
		if st.flow != nil {
			// Winnings accumulated this session survive a reload.
			flow.winnings = st.flow.winnings
		}
		st.flow = flow
	}

	log.WithFields(log.Fields{
		"address":    address,
		"tickets":    len(merged),
		"unrevealed": len(unrevealed),
	}).Info("Loaded ticket view")

	return s.viewLocked(st), nil
}

// Reveal reveals the flow's current ticket. The guard admits at most one
// in-flight reveal per session; the lock is released for the upstream call
// while the flow's revealing state holds the guard.
func (s *lotteryService) Reveal(ctx context.Context, session *entities.Session, ticketID int64) (*entities.Ticket, *interfaces.TicketView, error) {
	s.mu.Lock()
	st, ok := s.states[session.Token]
	if !ok || st.flow == nil {
		s.mu.Unlock()
		return nil, nil, ErrTicketsNotLoaded
	}
	st.lastAccess = time.Now()
	if st.revealAllInFlight {
		view := s.viewLocked(st)
		s.mu.Unlock()
		return nil, view, ErrRevealInFlight
	}
	if err := st.flow.BeginReveal(ticketID); err != nil {
		view := s.viewLocked(st)
		s.mu.Unlock()
		return nil, view, err
	}
	s.mu.Unlock()

	revealed, err := s.client.RevealTicket(ctx, ticketID, session.Address)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		st.flow.FailReveal()
		log.WithFields(log.Fields{
			"address":  session.Address,
			"ticketId": ticketID,
		}).WithError(err).Error("Ticket reveal failed upstream")
		return nil, s.viewLocked(st), fmt.Errorf("failed to reveal ticket %d: %w", ticketID, err)
	}

	settled := *revealed
	settled.Revealed = true
	if settled.RevealedAt == nil {
		now := time.Now().UTC()
		settled.RevealedAt = &now
	}

	st.localRevealed = append(st.localRevealed, settled)
	s.applyRevealLocked(st, settled)
	st.flow.CompleteReveal(settled)

	s.publisher.Emit(ctx, events.TicketRevealedEvent{
		Address:         session.Address,
		Ticket:          settled,
		SessionWinnings: st.flow.Winnings(),
		Remaining:       st.flow.Remaining(),
	})
	if st.flow.IsLast() {
		s.publisher.Emit(ctx, events.AllTicketsRevealedEvent{
			Address:         session.Address,
			SessionWinnings: st.flow.Winnings(),
		})
	}

	return &settled, s.viewLocked(st), nil
}

// Advance moves the flow from a settled reveal to the next ticket.
func (s *lotteryService) Advance(ctx context.Context, session *entities.Session) (*interfaces.TicketView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.states[session.Token]
	if !ok || st.flow == nil {
		return nil, ErrTicketsNotLoaded
	}
	st.lastAccess = time.Now()
	if err := st.flow.Advance(); err != nil {
		return s.viewLocked(st), err
	}
	return s.viewLocked(st), nil
}

// RevealAll reveals every remaining ticket in one upstream call. The bulk
// reveal holds the same per-session guard as a single reveal: the marker is
// set under the lock before the upstream call and cleared when it settles.
func (s *lotteryService) RevealAll(ctx context.Context, session *entities.Session) (*interfaces.TicketView, error) {
	s.mu.Lock()
	st := s.stateLocked(session.Token)
	if st.revealAllInFlight || (st.flow != nil && st.flow.State() == FlowStateRevealing) {
		s.mu.Unlock()
		return nil, ErrRevealInFlight
	}
	st.revealAllInFlight = true
	s.mu.Unlock()

	tickets, err := s.client.RevealAllTickets(ctx, session.Address)

	s.mu.Lock()
	defer s.mu.Unlock()
	st.revealAllInFlight = false

	if err != nil {
		return s.viewLocked(st), fmt.Errorf("failed to reveal all tickets: %w", err)
	}

	total := decimal.Zero
	for _, t := range tickets {
		// A ticket settled earlier this session keeps its first payout.
		if existing, ok := st.collection[t.ID]; ok && existing.Revealed {
			continue
		}
		settled := t
		settled.Revealed = true
		if settled.RevealedAt == nil {
			now := time.Now().UTC()
			settled.RevealedAt = &now
		}
		st.localRevealed = append(st.localRevealed, settled)
		s.applyRevealLocked(st, settled)
		total = total.Add(settled.PayoutUsd)
	}

	if st.flow == nil {
		st.flow = NewRevealFlow(nil)
	}
	st.flow.SettleAll(total)

	s.publisher.Emit(ctx, events.AllTicketsRevealedEvent{
		Address:         session.Address,
		SessionWinnings: st.flow.Winnings(),
	})

	log.WithFields(log.Fields{
		"address": session.Address,
		"count":   len(tickets),
	}).Info("Revealed all remaining tickets")

	return s.viewLocked(st), nil
}

// Summary fetches aggregate lottery stats for the session's address.
func (s *lotteryService) Summary(ctx context.Context, session *entities.Session, revealedOnly *bool) (*entities.LotterySummary, error) {
	summary, err := s.client.FetchSummary(ctx, session.Address, revealedOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch lottery summary: %w", err)
	}
	return summary, nil
}

// PayoutRanking fetches the payout leaderboard.
func (s *lotteryService) PayoutRanking(ctx context.Context, limit int, revealedOnly *bool) ([]entities.PayoutRankingEntry, error) {
	entries, err := s.client.FetchPayoutRanking(ctx, limit, revealedOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch payout ranking: %w", err)
	}
	return entries, nil
}

// stateLocked returns the session's ticket state, creating it if needed.
// Caller holds s.mu.
func (s *lotteryService) stateLocked(token string) *sessionTicketState {
	st, ok := s.states[token]
	if !ok {
		st = &sessionTicketState{collection: make(entities.TicketCollection)}
		s.states[token] = st
	}
	st.lastAccess = time.Now()
	return st
}

// PruneIdle drops ticket state for sessions not touched within the given
// age. Sessions themselves expire in the repository; this keeps the
// in-memory map from outliving them. States with a reveal in flight are
// left alone and picked up on a later sweep.
func (s *lotteryService) PruneIdle(olderThan time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-olderThan)
	pruned := 0
	for token, st := range s.states {
		if st.revealAllInFlight || (st.flow != nil && st.flow.State() == FlowStateRevealing) {
			continue
		}
		if st.lastAccess.Before(cutoff) {
			delete(s.states, token)
			pruned++
		}
	}
	if pruned > 0 {
		log.WithField("pruned", pruned).Info("Pruned idle session ticket state")
	}
	return pruned
}

// applyRevealLocked merges a settled reveal into the collection under the
// revealed-wins rule. Caller holds s.mu.
func (s *lotteryService) applyRevealLocked(st *sessionTicketState, settled entities.Ticket) {
	if existing, ok := st.collection[settled.ID]; ok {
		st.collection[settled.ID] = mergeTicket(existing, settled)
	} else {
		st.collection[settled.ID] = settled
	}
}

// viewLocked builds the browser-facing view. Caller holds s.mu.
func (s *lotteryService) viewLocked(st *sessionTicketState) *interfaces.TicketView {
	tickets := make([]entities.Ticket, 0, len(st.collection))
	for _, t := range st.collection {
		tickets = append(tickets, t)
	}
	sort.Slice(tickets, func(i, j int) bool { return tickets[i].ID < tickets[j].ID })

	view := &interfaces.TicketView{
		Tickets:         tickets,
		UnrevealedIDs:   []int64{},
		UnrevealedCount: st.collection.UnrevealedCount(),
		Degraded:        st.degraded,
	}
	if st.flow != nil {
		view.Flow = st.flow.Snapshot()
		for _, id := range st.flow.order {
			if t, ok := st.collection[id]; ok && !t.Revealed {
				view.UnrevealedIDs = append(view.UnrevealedIDs, id)
			}
		}
	}
	return view
}

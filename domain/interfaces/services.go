package interfaces

import (
	"context"
	"time"

	"companion/domain/entities"
	"companion/events"

	"github.com/shopspring/decimal"
)

// EventPublisher publishes events to interested subscribers
type EventPublisher interface {
	Emit(ctx context.Context, event events.Event)
}

// FlowSnapshot is the externally visible state of a reveal flow.
type FlowSnapshot struct {
	State           string          `json:"state"`
	CurrentTicketID *int64          `json:"currentTicketId,omitempty"`
	Position        int             `json:"position"`
	Total           int             `json:"total"`
	SessionWinnings decimal.Decimal `json:"sessionWinnings"`
}

// TicketView is what the browser renders: the reconciled collection, the
// unrevealed sequence in server order, and the reveal-flow position.
type TicketView struct {
	Tickets         []entities.Ticket `json:"tickets"`
	UnrevealedIDs   []int64           `json:"unrevealedIds"`
	UnrevealedCount int               `json:"unrevealedCount"`
	Flow            FlowSnapshot      `json:"flow"`
	Degraded        bool              `json:"degraded"`
}

// AuthService handles access-key login and session resolution
type AuthService interface {
	// Login exchanges an access key for a companion session
	Login(ctx context.Context, accessKey string) (*entities.Session, error)

	// Authenticate resolves a session token, nil if unknown or expired
	Authenticate(ctx context.Context, token string) (*entities.Session, error)
}

// LotteryService drives ticket loading, reconciliation and the reveal flow
type LotteryService interface {
	// LoadTickets refreshes the session's ticket view from the lottery API,
	// reconciling with locally known reveals. Upstream failures degrade to
	// local knowledge instead of erroring.
	LoadTickets(ctx context.Context, session *entities.Session) (*TicketView, error)

	// Reveal reveals one ticket. The ticket must be the flow's current
	// ticket and no other reveal may be in flight for the session.
	Reveal(ctx context.Context, session *entities.Session, ticketID int64) (*entities.Ticket, *TicketView, error)

	// Advance moves the flow to the next unrevealed ticket
	Advance(ctx context.Context, session *entities.Session) (*TicketView, error)

	// RevealAll reveals every remaining ticket in one upstream call
	RevealAll(ctx context.Context, session *entities.Session) (*TicketView, error)

	// Summary fetches aggregate lottery stats for the session's address
	Summary(ctx context.Context, session *entities.Session, revealedOnly *bool) (*entities.LotterySummary, error)

	// PayoutRanking fetches the payout leaderboard
	PayoutRanking(ctx context.Context, limit int, revealedOnly *bool) ([]entities.PayoutRankingEntry, error)

	// PruneIdle drops in-memory ticket state for sessions idle longer than
	// the given age and returns how many entries were removed
	PruneIdle(olderThan time.Duration) int
}

// RankingService computes the game-balance leaderboard view
type RankingService interface {
	// GameRanking fetches the raw user list and derives the top-10 plus the
	// requesting address's own rank
	GameRanking(ctx context.Context, myAddress string) (*entities.Ranking, error)
}

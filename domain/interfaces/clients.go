package interfaces

import (
	"context"

	"companion/domain/entities"
)

// CoreAPIClient talks to the platform core API.
type CoreAPIClient interface {
	// Login exchanges an access key for an upstream access token.
	Login(ctx context.Context, accessKey string) (string, error)
}

// GameAPIClient talks to the web game API.
type GameAPIClient interface {
	// FetchRankingUsers returns the raw game-balance user list. Ordering and
	// ranking are left to the caller.
	FetchRankingUsers(ctx context.Context) ([]entities.RankingUser, error)
}

// LotteryAPIClient talks to the lottery API.
type LotteryAPIClient interface {
	// FetchTickets returns tickets for an address, optionally filtered by
	// revealed state. Server ordering is preserved.
	FetchTickets(ctx context.Context, address string, revealed *bool) ([]entities.Ticket, error)

	// RevealTicket reveals a single ticket and returns the settled record.
	RevealTicket(ctx context.Context, ticketID int64, address string) (*entities.Ticket, error)

	// RevealAllTickets reveals every remaining ticket for an address.
	RevealAllTickets(ctx context.Context, address string) ([]entities.Ticket, error)

	// FetchSummary returns aggregate lottery stats for an address.
	FetchSummary(ctx context.Context, address string, revealedOnly *bool) (*entities.LotterySummary, error)

	// FetchPayoutRanking returns the payout leaderboard.
	FetchPayoutRanking(ctx context.Context, limit int, revealedOnly *bool) ([]entities.PayoutRankingEntry, error)
}

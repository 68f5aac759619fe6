package testhelpers

import (
	"context"
	"time"

	"companion/domain/entities"
	"companion/domain/interfaces"
	"companion/events"

	"github.com/stretchr/testify/mock"
)

// MockSessionRepository is a mock implementation of SessionRepository
type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) Create(ctx context.Context, session *entities.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionRepository) GetByToken(ctx context.Context, token string) (*entities.Session, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Session), args.Error(1)
}

func (m *MockSessionRepository) Delete(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockSessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockCoreAPIClient is a mock implementation of CoreAPIClient
type MockCoreAPIClient struct {
	mock.Mock
}

func (m *MockCoreAPIClient) Login(ctx context.Context, accessKey string) (string, error) {
	args := m.Called(ctx, accessKey)
	return args.String(0), args.Error(1)
}

// MockGameAPIClient is a mock implementation of GameAPIClient
type MockGameAPIClient struct {
	mock.Mock
}

func (m *MockGameAPIClient) FetchRankingUsers(ctx context.Context) ([]entities.RankingUser, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.RankingUser), args.Error(1)
}

// MockLotteryAPIClient is a mock implementation of LotteryAPIClient
type MockLotteryAPIClient struct {
	mock.Mock
}

func (m *MockLotteryAPIClient) FetchTickets(ctx context.Context, address string, revealed *bool) ([]entities.Ticket, error) {
	args := m.Called(ctx, address, revealed)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.Ticket), args.Error(1)
}

func (m *MockLotteryAPIClient) RevealTicket(ctx context.Context, ticketID int64, address string) (*entities.Ticket, error) {
	args := m.Called(ctx, ticketID, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Ticket), args.Error(1)
}

func (m *MockLotteryAPIClient) RevealAllTickets(ctx context.Context, address string) ([]entities.Ticket, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.Ticket), args.Error(1)
}

func (m *MockLotteryAPIClient) FetchSummary(ctx context.Context, address string, revealedOnly *bool) (*entities.LotterySummary, error) {
	args := m.Called(ctx, address, revealedOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.LotterySummary), args.Error(1)
}

func (m *MockLotteryAPIClient) FetchPayoutRanking(ctx context.Context, limit int, revealedOnly *bool) ([]entities.PayoutRankingEntry, error) {
	args := m.Called(ctx, limit, revealedOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.PayoutRankingEntry), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Emit(ctx context.Context, event events.Event) {
	m.Called(ctx, event)
}

// MockAuthService is a mock implementation of AuthService
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Login(ctx context.Context, accessKey string) (*entities.Session, error) {
	args := m.Called(ctx, accessKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Session), args.Error(1)
}

func (m *MockAuthService) Authenticate(ctx context.Context, token string) (*entities.Session, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Session), args.Error(1)
}

// MockLotteryService is a mock implementation of LotteryService
type MockLotteryService struct {
	mock.Mock
}

func (m *MockLotteryService) LoadTickets(ctx context.Context, session *entities.Session) (*interfaces.TicketView, error) {
	args := m.Called(ctx, session)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.TicketView), args.Error(1)
}

func (m *MockLotteryService) Reveal(ctx context.Context, session *entities.Session, ticketID int64) (*entities.Ticket, *interfaces.TicketView, error) {
	args := m.Called(ctx, session, ticketID)
	var ticket *entities.Ticket
	if args.Get(0) != nil {
		ticket = args.Get(0).(*entities.Ticket)
	}
	var view *interfaces.TicketView
	if args.Get(1) != nil {
		view = args.Get(1).(*interfaces.TicketView)
	}
	return ticket, view, args.Error(2)
}

func (m *MockLotteryService) Advance(ctx context.Context, session *entities.Session) (*interfaces.TicketView, error) {
	args := m.Called(ctx, session)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.TicketView), args.Error(1)
}

func (m *MockLotteryService) RevealAll(ctx context.Context, session *entities.Session) (*interfaces.TicketView, error) {
	args := m.Called(ctx, session)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.TicketView), args.Error(1)
}

func (m *MockLotteryService) Summary(ctx context.Context, session *entities.Session, revealedOnly *bool) (*entities.LotterySummary, error) {
	args := m.Called(ctx, session, revealedOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.LotterySummary), args.Error(1)
}

func (m *MockLotteryService) PayoutRanking(ctx context.Context, limit int, revealedOnly *bool) ([]entities.PayoutRankingEntry, error) {
	args := m.Called(ctx, limit, revealedOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.PayoutRankingEntry), args.Error(1)
}

func (m *MockLotteryService) PruneIdle(olderThan time.Duration) int {
	args := m.Called(olderThan)
	return args.Int(0)
}

// MockRankingService is a mock implementation of RankingService
type MockRankingService struct {
	mock.Mock
}

func (m *MockRankingService) GameRanking(ctx context.Context, myAddress string) (*entities.Ranking, error) {
	args := m.Called(ctx, myAddress)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Ranking), args.Error(1)
}

package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"companion/domain/entities"
	"companion/domain/testhelpers"
	"companion/events"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testAddress = "0x680288896065594F11a18D2B39a739dE81216bB4"

func testSession() *entities.Session {
	return &entities.Session{Token: "test-token", Address: testAddress}
}

func revealedFilter() any {
	return mock.MatchedBy(func(revealed *bool) bool { return revealed != nil && *revealed })
}

func setupLotteryService() (*testhelpers.MockLotteryAPIClient, *testhelpers.MockEventPublisher, *lotteryService) {
	client := new(testhelpers.MockLotteryAPIClient)
	publisher := new(testhelpers.MockEventPublisher)
	service := NewLotteryService(client, publisher).(*lotteryService)
	return client, publisher, service
}

func TestLotteryService_LoadTickets(t *testing.T) {
	t.Parallel()

	client, _, service := setupLotteryService()
	all := []entities.Ticket{unrevealedTicket(1), unrevealedTicket(2), revealedTicket(6, "7.25")}
	client.On("FetchTickets", mock.Anything, testAddress, (*bool)(nil)).Return(all, nil)
	client.On("FetchTickets", mock.Anything, testAddress, revealedFilter()).
		Return([]entities.Ticket{revealedTicket(6, "7.25")}, nil)

	view, err := service.LoadTickets(context.Background(), testSession())

	require.NoError(t, err)
	require.NotNil(t, view)
	assert.Len(t, view.Tickets, 3)
	assert.Equal(t, []int64{1, 2}, view.UnrevealedIDs)
	assert.Equal(t, 2, view.UnrevealedCount)
	assert.False(t, view.Degraded)
	assert.Equal(t, FlowStateAwaitingReveal, view.Flow.State)
	require.NotNil(t, view.Flow.CurrentTicketID)
	assert.Equal(t, int64(1), *view.Flow.CurrentTicketID)
	client.AssertExpectations(t)
}

func TestLotteryService_LoadTicketsFetchFailureFallsBackToLocal(t *testing.T) {
	t.Parallel()

	client, publisher, service := setupLotteryService()
	session := testSession()

	// First load succeeds and ticket 1 is revealed locally
	all := []entities.Ticket{unrevealedTicket(1), unrevealedTicket(2)}
	client.On("FetchTickets", mock.Anything, testAddress, (*bool)(nil)).Return(all, nil).Once()
	client.On("FetchTickets", mock.Anything, testAddress, revealedFilter()).Return([]entities.Ticket{}, nil).Once()
	_, err := service.LoadTickets(context.Background(), session)
	require.NoError(t, err)

	settled := revealedTicket(1, "5.50")
	client.On("RevealTicket", mock.Anything, int64(1), testAddress).Return(&settled, nil)
	publisher.On("Emit", mock.Anything, mock.Anything).Return()
	_, _, err = service.Reveal(context.Background(), session, 1)
	require.NoError(t, err)

	// Second load fails upstream: no error, local reveals survive
	fetchErr := errors.New("connection refused")
	client.On("FetchTickets", mock.Anything, testAddress, (*bool)(nil)).Return(nil, fetchErr)
	client.On("FetchTickets", mock.Anything, testAddress, revealedFilter()).Return(nil, fetchErr)

	view, err := service.LoadTickets(context.Background(), session)

	require.NoError(t, err)
	assert.True(t, view.Degraded)
	require.Len(t, view.Tickets, 1)
	assert.Equal(t, int64(1), view.Tickets[0].ID)
	assert.True(t, view.Tickets[0].Revealed)
}

func TestLotteryService_RevealScenario(t *testing.T) {
	t.Parallel()

	client, publisher, service := setupLotteryService()
	session := testSession()

	all := []entities.Ticket{unrevealedTicket(1), unrevealedTicket(2)}
	client.On("FetchTickets", mock.Anything, testAddress, (*bool)(nil)).Return(all, nil)
	client.On("FetchTickets", mock.Anything, testAddress, revealedFilter()).Return([]entities.Ticket{}, nil)
	_, err := service.LoadTickets(context.Background(), session)
	require.NoError(t, err)

	settled := revealedTicket(1, "5.50")
	client.On("RevealTicket", mock.Anything, int64(1), testAddress).Return(&settled, nil)
	publisher.On("Emit", mock.Anything, mock.AnythingOfType("events.TicketRevealedEvent")).Return()

	ticket, view, err := service.Reveal(context.Background(), session, 1)

	require.NoError(t, err)
	require.NotNil(t, ticket)
	assert.True(t, ticket.Revealed)
	assert.True(t, decimal.RequireFromString("5.50").Equal(ticket.PayoutUsd))

	// Ticket 1 revealed with its payout, ticket 2 unchanged
	var byID = map[int64]entities.Ticket{}
	for _, tk := range view.Tickets {
		byID[tk.ID] = tk
	}
	assert.True(t, byID[1].Revealed)
	assert.True(t, decimal.RequireFromString("5.50").Equal(byID[1].PayoutUsd))
	assert.False(t, byID[2].Revealed)
	assert.Equal(t, FlowStateRevealed, view.Flow.State)

	// Explicit next advances to ticket 2
	view, err = service.Advance(context.Background(), session)
	require.NoError(t, err)
	assert.Equal(t, FlowStateAwaitingReveal, view.Flow.State)
	require.NotNil(t, view.Flow.CurrentTicketID)
	assert.Equal(t, int64(2), *view.Flow.CurrentTicketID)

	publisher.AssertExpectations(t)
}

func TestLotteryService_RevealFailureLeavesTicketUnrevealed(t *testing.T) {
	t.Parallel()

	client, publisher, service := setupLotteryService()
	session := testSession()

	all := []entities.Ticket{unrevealedTicket(1), unrevealedTicket(2)}
	client.On("FetchTickets", mock.Anything, testAddress, (*bool)(nil)).Return(all, nil)
	client.On("FetchTickets", mock.Anything, testAddress, revealedFilter()).Return([]entities.Ticket{}, nil)
	_, err := service.LoadTickets(context.Background(), session)
	require.NoError(t, err)

	client.On("RevealTicket", mock.Anything, int64(1), testAddress).Return(nil, errors.New("rejected")).Once()

	ticket, view, err := service.Reveal(context.Background(), session, 1)

	require.Error(t, err)
	assert.NotEmpty(t, err.Error())
	assert.Nil(t, ticket)

	// Collection unchanged, flow back to awaiting the same ticket
	for _, tk := range view.Tickets {
		assert.False(t, tk.Revealed)
	}
	assert.Equal(t, FlowStateAwaitingReveal, view.Flow.State)
	require.NotNil(t, view.Flow.CurrentTicketID)
	assert.Equal(t, int64(1), *view.Flow.CurrentTicketID)

	// The same ticket can be retried
	settled := revealedTicket(1, "5.50")
	client.On("RevealTicket", mock.Anything, int64(1), testAddress).Return(&settled, nil)
	publisher.On("Emit", mock.Anything, mock.Anything).Return()

	ticket, _, err = service.Reveal(context.Background(), session, 1)
	require.NoError(t, err)
	assert.True(t, ticket.Revealed)
}

func TestLotteryService_RevealGuards(t *testing.T) {
	t.Parallel()

	client, _, service := setupLotteryService()
	session := testSession()

	t.Run("reveal before load", func(t *testing.T) {
		_, _, err := service.Reveal(context.Background(), session, 1)
		assert.ErrorIs(t, err, ErrTicketsNotLoaded)
	})

	t.Run("reveal wrong ticket", func(t *testing.T) {
		all := []entities.Ticket{unrevealedTicket(1), unrevealedTicket(2)}
		client.On("FetchTickets", mock.Anything, testAddress, (*bool)(nil)).Return(all, nil)
		client.On("FetchTickets", mock.Anything, testAddress, revealedFilter()).Return([]entities.Ticket{}, nil)
		_, err := service.LoadTickets(context.Background(), session)
		require.NoError(t, err)

		_, _, err = service.Reveal(context.Background(), session, 2)
		assert.ErrorIs(t, err, ErrWrongTicket)
	})
}

func TestLotteryService_RevealLastTicketEmitsAllRevealed(t *testing.T) {
	t.Parallel()

	client, publisher, service := setupLotteryService()
	session := testSession()

	all := []entities.Ticket{unrevealedTicket(1)}
	client.On("FetchTickets", mock.Anything, testAddress, (*bool)(nil)).Return(all, nil)
	client.On("FetchTickets", mock.Anything, testAddress, revealedFilter()).Return([]entities.Ticket{}, nil)
	_, err := service.LoadTickets(context.Background(), session)
	require.NoError(t, err)

	settled := revealedTicket(1, "5.50")
	client.On("RevealTicket", mock.Anything, int64(1), testAddress).Return(&settled, nil)
	publisher.On("Emit", mock.Anything, mock.AnythingOfType("events.TicketRevealedEvent")).Return()
	publisher.On("Emit", mock.Anything, mock.AnythingOfType("events.AllTicketsRevealedEvent")).Return()

	_, _, err = service.Reveal(context.Background(), session, 1)
	require.NoError(t, err)

	publisher.AssertExpectations(t)
}

func TestLotteryService_RevealAll(t *testing.T) {
	t.Parallel()

	client, publisher, service := setupLotteryService()
	session := testSession()

	all := []entities.Ticket{unrevealedTicket(1), unrevealedTicket(2)}
	client.On("FetchTickets", mock.Anything, testAddress, (*bool)(nil)).Return(all, nil)
	client.On("FetchTickets", mock.Anything, testAddress, revealedFilter()).Return([]entities.Ticket{}, nil)
	_, err := service.LoadTickets(context.Background(), session)
	require.NoError(t, err)

	client.On("RevealAllTickets", mock.Anything, testAddress).
		Return([]entities.Ticket{revealedTicket(1, "5.50"), revealedTicket(2, "12.75")}, nil)
	publisher.On("Emit", mock.Anything, mock.MatchedBy(func(e events.Event) bool {
		event, ok := e.(events.AllTicketsRevealedEvent)
		return ok && event.SessionWinnings.Equal(decimal.RequireFromString("18.25"))
	})).Return()

	view, err := service.RevealAll(context.Background(), session)

	require.NoError(t, err)
	assert.Equal(t, FlowStateAllRevealed, view.Flow.State)
	assert.Equal(t, 0, view.UnrevealedCount)
	for _, tk := range view.Tickets {
		assert.True(t, tk.Revealed)
	}
	publisher.AssertExpectations(t)
}

func TestLotteryService_RevealAllHoldsTheRevealGuard(t *testing.T) {
	t.Parallel()

	client, publisher, service := setupLotteryService()
	session := testSession()

	all := []entities.Ticket{unrevealedTicket(1), unrevealedTicket(2)}
	client.On("FetchTickets", mock.Anything, testAddress, (*bool)(nil)).Return(all, nil)
	client.On("FetchTickets", mock.Anything, testAddress, revealedFilter()).Return([]entities.Ticket{}, nil)
	_, err := service.LoadTickets(context.Background(), session)
	require.NoError(t, err)

	started := make(chan struct{})
	release := make(chan struct{})
	client.On("RevealAllTickets", mock.Anything, testAddress).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return([]entities.Ticket{revealedTicket(1, "5.50"), revealedTicket(2, "12.75")}, nil)
	publisher.On("Emit", mock.Anything, mock.Anything).Return()

	done := make(chan error, 1)
	go func() {
		_, err := service.RevealAll(context.Background(), session)
		done <- err
	}()
	<-started

	// While the bulk reveal is in flight, a single reveal is rejected
	_, _, err = service.Reveal(context.Background(), session, 1)
	assert.ErrorIs(t, err, ErrRevealInFlight)

	// and so is a second bulk reveal
	_, err = service.RevealAll(context.Background(), session)
	assert.ErrorIs(t, err, ErrRevealInFlight)

	close(release)
	require.NoError(t, <-done)

	// Each payout counted exactly once
	service.mu.Lock()
	winnings := service.states[session.Token].flow.Winnings()
	service.mu.Unlock()
	assert.True(t, decimal.RequireFromString("18.25").Equal(winnings), "winnings were %s", winnings)
}

func TestLotteryService_RevealAllSkipsAlreadySettledPayouts(t *testing.T) {
	t.Parallel()

	client, publisher, service := setupLotteryService()
	session := testSession()

	all := []entities.Ticket{unrevealedTicket(1), unrevealedTicket(2)}
	client.On("FetchTickets", mock.Anything, testAddress, (*bool)(nil)).Return(all, nil)
	client.On("FetchTickets", mock.Anything, testAddress, revealedFilter()).Return([]entities.Ticket{}, nil)
	_, err := service.LoadTickets(context.Background(), session)
	require.NoError(t, err)

	settled := revealedTicket(1, "5.50")
	client.On("RevealTicket", mock.Anything, int64(1), testAddress).Return(&settled, nil)
	publisher.On("Emit", mock.Anything, mock.Anything).Return()
	_, _, err = service.Reveal(context.Background(), session, 1)
	require.NoError(t, err)

	// The bulk result echoes ticket 1; its payout must not be credited again
	client.On("RevealAllTickets", mock.Anything, testAddress).
		Return([]entities.Ticket{revealedTicket(1, "5.50"), revealedTicket(2, "12.75")}, nil)

	view, err := service.RevealAll(context.Background(), session)

	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("18.25").Equal(view.Flow.SessionWinnings),
		"winnings were %s", view.Flow.SessionWinnings)
	assert.Equal(t, []int64{}, view.UnrevealedIDs)
}

func TestLotteryService_PruneIdle(t *testing.T) {
	t.Parallel()

	client, _, service := setupLotteryService()
	session := testSession()

	all := []entities.Ticket{unrevealedTicket(1)}
	client.On("FetchTickets", mock.Anything, testAddress, (*bool)(nil)).Return(all, nil)
	client.On("FetchTickets", mock.Anything, testAddress, revealedFilter()).Return([]entities.Ticket{}, nil)
	_, err := service.LoadTickets(context.Background(), session)
	require.NoError(t, err)

	// Freshly touched state survives
	assert.Equal(t, 0, service.PruneIdle(time.Hour))

	service.mu.Lock()
	service.states[session.Token].lastAccess = time.Now().Add(-2 * time.Hour)
	service.mu.Unlock()

	assert.Equal(t, 1, service.PruneIdle(time.Hour))

	_, _, err = service.Reveal(context.Background(), session, 1)
	assert.ErrorIs(t, err, ErrTicketsNotLoaded)
}

func TestLotteryService_SummaryPassThrough(t *testing.T) {
	t.Parallel()

	client, _, service := setupLotteryService()
	summary := &entities.LotterySummary{
		Address:           testAddress,
		TotalTickets:      8,
		TotalPayoutUsd:    decimal.RequireFromString("66.75"),
		UnrevealedTickets: 5,
	}
	client.On("FetchSummary", mock.Anything, testAddress, (*bool)(nil)).Return(summary, nil)

	got, err := service.Summary(context.Background(), testSession(), nil)

	require.NoError(t, err)
	assert.Equal(t, summary, got)
}

package services

import (
	"testing"

	"companion/domain/entities"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRevealFlow_NoTickets(t *testing.T) {
	t.Parallel()

	flow := NewRevealFlow(nil)

	assert.Equal(t, FlowStateNoTickets, flow.State())
	_, ok := flow.Current()
	assert.False(t, ok)
	assert.Equal(t, 0, flow.Remaining())

	err := flow.BeginReveal(1)
	assert.ErrorIs(t, err, ErrNoTicketToReveal)
}

func TestRevealFlow_WalksSequenceInOrder(t *testing.T) {
	t.Parallel()

	flow := NewRevealFlow([]entities.Ticket{unrevealedTicket(1), unrevealedTicket(2)})

	require.Equal(t, FlowStateAwaitingReveal, flow.State())
	current, ok := flow.Current()
	require.True(t, ok)
	assert.Equal(t, int64(1), current)
	assert.Equal(t, 2, flow.Remaining())

	require.NoError(t, flow.BeginReveal(1))
	assert.Equal(t, FlowStateRevealing, flow.State())

	flow.CompleteReveal(revealedTicket(1, "5.50"))
	assert.Equal(t, FlowStateRevealed, flow.State())
	assert.True(t, decimal.RequireFromString("5.50").Equal(flow.Winnings()))
	assert.Equal(t, 1, flow.Remaining())

	require.NoError(t, flow.Advance())
	assert.Equal(t, FlowStateAwaitingReveal, flow.State())
	current, ok = flow.Current()
	require.True(t, ok)
	assert.Equal(t, int64(2), current)

	require.NoError(t, flow.BeginReveal(2))
	flow.CompleteReveal(revealedTicket(2, "12.75"))
	assert.True(t, flow.IsLast())

	require.NoError(t, flow.Advance())
	assert.Equal(t, FlowStateAllRevealed, flow.State())
	assert.Equal(t, 0, flow.Remaining())
	assert.True(t, decimal.RequireFromString("18.25").Equal(flow.Winnings()))
}

func TestRevealFlow_GuardsConcurrentReveals(t *testing.T) {
	t.Parallel()

	flow := NewRevealFlow([]entities.Ticket{unrevealedTicket(1), unrevealedTicket(2)})

	require.NoError(t, flow.BeginReveal(1))

	// Second attempt while the first is in flight fails without transitioning
	err := flow.BeginReveal(1)
	assert.ErrorIs(t, err, ErrRevealInFlight)
	err = flow.BeginReveal(2)
	assert.ErrorIs(t, err, ErrRevealInFlight)
	assert.Equal(t, FlowStateRevealing, flow.State())
}

func TestRevealFlow_RejectsNonCurrentTicket(t *testing.T) {
	t.Parallel()

	flow := NewRevealFlow([]entities.Ticket{unrevealedTicket(1), unrevealedTicket(2)})

	err := flow.BeginReveal(2)
	assert.ErrorIs(t, err, ErrWrongTicket)
	assert.Equal(t, FlowStateAwaitingReveal, flow.State())
}

func TestRevealFlow_FailureReturnsToSameTicket(t *testing.T) {
	t.Parallel()

	flow := NewRevealFlow([]entities.Ticket{unrevealedTicket(1), unrevealedTicket(2)})

	require.NoError(t, flow.BeginReveal(1))
	flow.FailReveal()

	assert.Equal(t, FlowStateAwaitingReveal, flow.State())
	current, ok := flow.Current()
	require.True(t, ok)
	assert.Equal(t, int64(1), current)
	assert.True(t, flow.Winnings().IsZero())

	// The same ticket can be retried
	require.NoError(t, flow.BeginReveal(1))
}

func TestRevealFlow_AdvanceRequiresSettledReveal(t *testing.T) {
	t.Parallel()

	flow := NewRevealFlow([]entities.Ticket{unrevealedTicket(1)})

	err := flow.Advance()
	assert.ErrorIs(t, err, ErrNothingRevealed)

	require.NoError(t, flow.BeginReveal(1))
	err = flow.Advance()
	assert.ErrorIs(t, err, ErrNothingRevealed)
}

func TestRevealFlow_SettleAll(t *testing.T) {
	t.Parallel()

	flow := NewRevealFlow([]entities.Ticket{unrevealedTicket(1), unrevealedTicket(2), unrevealedTicket(3)})

	flow.SettleAll(decimal.RequireFromString("21.25"))

	assert.Equal(t, FlowStateAllRevealed, flow.State())
	assert.Equal(t, 0, flow.Remaining())
	assert.True(t, decimal.RequireFromString("21.25").Equal(flow.Winnings()))
}

func TestRevealFlow_SkipsAlreadyRevealed(t *testing.T) {
	t.Parallel()

	flow := NewRevealFlow([]entities.Ticket{unrevealedTicket(1), revealedTicket(2, "4.50"), unrevealedTicket(3)})

	assert.Equal(t, 2, flow.Remaining())
	current, ok := flow.Current()
	require.True(t, ok)
	assert.Equal(t, int64(1), current)
}

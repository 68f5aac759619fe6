package services

import (
	"errors"

	"companion/domain/entities"
	"companion/domain/interfaces"

	"github.com/shopspring/decimal"
)

// Reveal flow states. A flow walks the user through their unrevealed
// tickets one at a time, in the order the server returned them.
const (
	FlowStateNoTickets      = "no_tickets"
	FlowStateAwaitingReveal = "awaiting_reveal"
	FlowStateRevealing      = "revealing"
	FlowStateRevealed       = "revealed"
	FlowStateAllRevealed    = "all_revealed"
)

var (
	// ErrRevealInFlight is returned when a reveal is attempted while another
	// reveal is outstanding for the same session.
	ErrRevealInFlight = errors.New("a reveal is already in flight")

	// ErrNoTicketToReveal is returned when there is no current ticket to act on.
	ErrNoTicketToReveal = errors.New("no ticket awaiting reveal")

	// ErrWrongTicket is returned when the requested ticket is not the flow's
	// current ticket.
	ErrWrongTicket = errors.New("ticket is not the current ticket")

	// ErrNothingRevealed is returned when advancing before the current ticket
	// has been revealed.
	ErrNothingRevealed = errors.New("current ticket has not been revealed")
)

// RevealFlow tracks progress through a fixed sequence of unrevealed tickets.
// It is not safe for concurrent use; the owning service serializes access.
type RevealFlow struct {
	order    []int64
	pos      int
	state    string
	winnings decimal.Decimal
}

// NewRevealFlow builds a flow over the unrevealed tickets in the given
// order. An empty sequence yields a terminal no-tickets flow.
func NewRevealFlow(unrevealed []entities.Ticket) *RevealFlow {
	f := &RevealFlow{winnings: decimal.Zero}
	for _, t := range unrevealed {
		if !t.Revealed {
			f.order = append(f.order, t.ID)
		}
	}
	if len(f.order) == 0 {
		f.state = FlowStateNoTickets
	} else {
		f.state = FlowStateAwaitingReveal
	}
	return f
}

// State returns the current flow state.
func (f *RevealFlow) State() string {
	return f.state
}

// Current returns the id of the ticket the flow is positioned on.
func (f *RevealFlow) Current() (int64, bool) {
	if f.state == FlowStateNoTickets || f.state == FlowStateAllRevealed {
		return 0, false
	}
	return f.order[f.pos], true
}

// BeginReveal transitions the current ticket into the in-flight state.
// At most one reveal may be in flight; a second attempt fails without
// transitioning.
func (f *RevealFlow) BeginReveal(ticketID int64) error {
	switch f.state {
	case FlowStateRevealing:
		return ErrRevealInFlight
	case FlowStateAwaitingReveal:
	default:
		return ErrNoTicketToReveal
	}
	if f.order[f.pos] != ticketID {
		return ErrWrongTicket
	}
	f.state = FlowStateRevealing
	return nil
}

// CompleteReveal settles the in-flight reveal with the server-confirmed
// ticket, accumulating its payout into the session winnings.
func (f *RevealFlow) CompleteReveal(t entities.Ticket) {
	if f.state != FlowStateRevealing {
		return
	}
	f.winnings = f.winnings.Add(t.PayoutUsd)
	f.state = FlowStateRevealed
}

// FailReveal returns the flow to awaiting-reveal for the same ticket after
// an upstream failure. The user may retry.
func (f *RevealFlow) FailReveal() {
	if f.state == FlowStateRevealing {
		f.state = FlowStateAwaitingReveal
	}
}

// Advance moves to the next unrevealed ticket, or to the terminal state
// when none remains. Only valid after the current ticket was revealed.
func (f *RevealFlow) Advance() error {
	if f.state != FlowStateRevealed {
		return ErrNothingRevealed
	}
	if f.pos+1 >= len(f.order) {
		f.state = FlowStateAllRevealed
		return nil
	}
	f.pos++
	f.state = FlowStateAwaitingReveal
	return nil
}

// SettleAll marks the whole sequence revealed, crediting the given total.
// Used by the bulk reveal path.
func (f *RevealFlow) SettleAll(total decimal.Decimal) {
	if f.state == FlowStateNoTickets {
		return
	}
	f.winnings = f.winnings.Add(total)
	f.pos = len(f.order) - 1
	f.state = FlowStateAllRevealed
}

// IsLast reports whether the flow is positioned on the final ticket.
func (f *RevealFlow) IsLast() bool {
	return len(f.order) > 0 && f.pos == len(f.order)-1
}

// Remaining returns how many tickets are left to reveal, including the
// current one unless it has already settled.
func (f *RevealFlow) Remaining() int {
	switch f.state {
	case FlowStateNoTickets, FlowStateAllRevealed:
		return 0
	case FlowStateRevealed:
		return len(f.order) - f.pos - 1
	default:
		return len(f.order) - f.pos
	}
}

// Winnings returns the payouts accumulated during this session.
func (f *RevealFlow) Winnings() decimal.Decimal {
	return f.winnings
}

// Snapshot returns the externally visible flow state.
func (f *RevealFlow) Snapshot() interfaces.FlowSnapshot {
	snap := interfaces.FlowSnapshot{
		State:           f.state,
		Total:           len(f.order),
		SessionWinnings: f.winnings,
	}
	if id, ok := f.Current(); ok {
		snap.CurrentTicketID = &id
		snap.Position = f.pos + 1
	}
	if f.state == FlowStateAllRevealed {
		snap.Position = len(f.order)
	}
	return snap
}

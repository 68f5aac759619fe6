package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// Ticket represents a single lottery ticket granted for a qualifying deposit.
// The payout stays hidden until the ticket is revealed; once revealed, the
// payout and reveal timestamp never change for that id.
type Ticket struct {
	ID         int64           `json:"id"`
	DepositTx  string          `json:"depositTx"`
	PayoutUsd  decimal.Decimal `json:"payoutUsd"`
	Revealed   bool            `json:"revealed"`
	RevealedAt *time.Time      `json:"revealedAt"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// TicketCollection is the per-user view of all known tickets, keyed by id.
type TicketCollection map[int64]Ticket

// Revealed returns the revealed tickets in the collection.
func (c TicketCollection) Revealed() []Ticket {
	var out []Ticket
	for _, t := range c {
		if t.Revealed {
			out = append(out, t)
		}
	}
	return out
}

// UnrevealedCount returns the number of tickets not yet revealed.
func (c TicketCollection) UnrevealedCount() int {
	n := 0
	for _, t := range c {
		if !t.Revealed {
			n++
		}
	}
	return n
}

// TotalPayout sums the payouts of all revealed tickets.
func (c TicketCollection) TotalPayout() decimal.Decimal {
	total := decimal.Zero
	for _, t := range c {
		if t.Revealed {
			total = total.Add(t.PayoutUsd)
		}
	}
	return total
}

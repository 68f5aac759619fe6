package services

import (
	"companion/domain/entities"
)

// MergeTickets reconciles ticket records from any number of overlapping
// sources (server "all" list, server "revealed" list, locally revealed this
// session) into one id-keyed collection.
//
// Reveal is monotonic, so for any id a record with Revealed=true wins over
// one without, regardless of source order; the revealed record's payout and
// timestamp come with it. Fields a record leaves empty are filled from
// whichever source supplied them. The result is deterministic for fixed
// inputs and merging the output with itself yields the same output.
func MergeTickets(sources ...[]entities.Ticket) entities.TicketCollection {
	merged := make(entities.TicketCollection)
	for _, source := range sources {
		for _, t := range source {
			existing, ok := merged[t.ID]
			if !ok {
				merged[t.ID] = t
				continue
			}
			merged[t.ID] = mergeTicket(existing, t)
		}
	}
	return merged
}

// mergeTicket combines two records for the same ticket id.
func mergeTicket(a, b entities.Ticket) entities.Ticket {
	out := a
	if b.Revealed && !a.Revealed {
		// Once revealed, payout and timestamp are fixed server-side; the
		// revealed record carries the authoritative values.
		out.Revealed = true
		out.PayoutUsd = b.PayoutUsd
		out.RevealedAt = b.RevealedAt
	}
	if out.DepositTx == "" {
		out.DepositTx = b.DepositTx
	}
	if out.CreatedAt.IsZero() {
		out.CreatedAt = b.CreatedAt
	}
	if out.Revealed && out.RevealedAt == nil {
		out.RevealedAt = b.RevealedAt
	}
	return out
}

package entities

import "github.com/shopspring/decimal"

// LotterySummary aggregates a user's lottery activity: ticket counts, total
// USD winnings, and the KSTA deposited to earn them. Computed upstream by
// the lottery service and passed through untouched.
type LotterySummary struct {
	Address           string          `json:"address"`
	TotalTickets      int64           `json:"totalTickets"`
	TotalPayoutUsd    decimal.Decimal `json:"totalPayoutUsd"`
	TotalDepositsKsta decimal.Decimal `json:"totalDepositsKsta"`
	UnrevealedTickets int64           `json:"unrevealedTickets"`
}

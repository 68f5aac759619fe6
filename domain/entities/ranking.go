package entities

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// RankingUser is one entry of the raw game-balance user list. The game API
// makes no promises about the balance field: it may be absent, null, or
// non-numeric, and such entries rank below every numeric balance.
type RankingUser struct {
	Address    string
	Balance    decimal.Decimal
	HasBalance bool
}

// rankingUserWire matches the game API JSON shape.
type rankingUserWire struct {
	Address string          `json:"id"`
	Balance json.RawMessage `json:"balance"`
}

// UnmarshalJSON decodes a ranking user, treating a missing or malformed
// balance as "no balance" rather than failing the whole list.
func (u *RankingUser) UnmarshalJSON(data []byte) error {
	var wire rankingUserWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	u.Address = wire.Address
	u.Balance = decimal.Zero
	u.HasBalance = false
	if len(wire.Balance) == 0 || string(wire.Balance) == "null" {
		return nil
	}
	var balance decimal.Decimal
	if err := json.Unmarshal(wire.Balance, &balance); err == nil {
		u.Balance = balance
		u.HasBalance = true
	}
	return nil
}

// MarshalJSON writes the wire shape back out for the browser.
func (u RankingUser) MarshalJSON() ([]byte, error) {
	if !u.HasBalance {
		return json.Marshal(rankingUserWire{Address: u.Address})
	}
	balance, err := json.Marshal(u.Balance)
	if err != nil {
		return nil, err
	}
	return json.Marshal(rankingUserWire{Address: u.Address, Balance: balance})
}

// RankedUser is a ranking user with its 1-based position assigned.
type RankedUser struct {
	RankingUser
	Rank int `json:"rank"`
}

// MarshalJSON flattens the embedded user and rank into one object.
func (u RankedUser) MarshalJSON() ([]byte, error) {
	base, err := u.RankingUser.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(base, &fields); err != nil {
		return nil, err
	}
	rank, err := json.Marshal(u.Rank)
	if err != nil {
		return nil, err
	}
	fields["rank"] = rank
	return json.Marshal(fields)
}

// Ranking is the computed leaderboard view: the top entries plus the
// requesting user's own position if present.
type Ranking struct {
	Top  []RankedUser `json:"top"`
	Mine *RankedUser  `json:"mine,omitempty"`
}

// PayoutRankingEntry is one row of the lottery payout leaderboard, served
// as-is from the lottery API.
type PayoutRankingEntry struct {
	Address        string          `json:"address"`
	TotalPayoutUsd decimal.Decimal `json:"totalPayoutUsd"`
	TotalCount     int64           `json:"totalCount"`
}

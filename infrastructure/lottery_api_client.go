package infrastructure

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"companion/domain/entities"
)

// Lottery API endpoints.
const (
	ticketsPath       = "/lottery/tickets"
	revealAllPath     = "/lottery/tickets/reveal"
	summaryPath       = "/lottery/summary"
	payoutRankingPath = "/lottery/payouts/ranking"
)

// LotteryAPIClient fetches and reveals lottery tickets against the lottery
// API.
type LotteryAPIClient struct {
	api httpAPI
}

// NewLotteryAPIClient creates a client for the lottery API at the given
// base URL.
func NewLotteryAPIClient(baseURL string, client *http.Client) *LotteryAPIClient {
	return &LotteryAPIClient{api: newHTTPAPI("lottery api", baseURL, client)}
}

// ticketsEnvelope wraps every ticket list the lottery API returns.
type ticketsEnvelope struct {
	Tickets []entities.Ticket `json:"tickets"`
}

// addressBody is the request body for reveal operations.
type addressBody struct {
	Address string `json:"address"`
}

// FetchTickets returns tickets for an address, optionally filtered by
// revealed state. Server ordering is preserved.
func (c *LotteryAPIClient) FetchTickets(ctx context.Context, address string, revealed *bool) ([]entities.Ticket, error) {
	query := url.Values{"address": {address}}
	if revealed != nil {
		query.Set("revealed", strconv.FormatBool(*revealed))
	}

	var response ticketsEnvelope
	if err := c.api.get(ctx, ticketsPath, query, &response); err != nil {
		return nil, err
	}
	return response.Tickets, nil
}

// RevealTicket reveals a single ticket and returns the settled record.
func (c *LotteryAPIClient) RevealTicket(ctx context.Context, ticketID int64, address string) (*entities.Ticket, error) {
	path := fmt.Sprintf("%s/%d/reveal", ticketsPath, ticketID)

	var ticket entities.Ticket
	if err := c.api.post(ctx, path, addressBody{Address: address}, &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

// RevealAllTickets reveals every remaining ticket for an address and
// returns the settled records.
func (c *LotteryAPIClient) RevealAllTickets(ctx context.Context, address string) ([]entities.Ticket, error) {
	var response ticketsEnvelope
	if err := c.api.post(ctx, revealAllPath, addressBody{Address: address}, &response); err != nil {
		return nil, err
	}
	return response.Tickets, nil
}

// FetchSummary returns aggregate lottery stats for an address.
func (c *LotteryAPIClient) FetchSummary(ctx context.Context, address string, revealedOnly *bool) (*entities.LotterySummary, error) {
	query := url.Values{"address": {address}}
	if revealedOnly != nil {
		query.Set("revealedOnly", strconv.FormatBool(*revealedOnly))
	}

	var summary entities.LotterySummary
	if err := c.api.get(ctx, summaryPath, query, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// FetchPayoutRanking returns the payout leaderboard.
func (c *LotteryAPIClient) FetchPayoutRanking(ctx context.Context, limit int, revealedOnly *bool) ([]entities.PayoutRankingEntry, error) {
	query := url.Values{"limit": {strconv.Itoa(limit)}}
	if revealedOnly != nil {
		query.Set("revealedOnly", strconv.FormatBool(*revealedOnly))
	}

	var response struct {
		Users []entities.PayoutRankingEntry `json:"users"`
	}
	if err := c.api.get(ctx, payoutRankingPath, query, &response); err != nil {
		return nil, err
	}
	return response.Users, nil
}

package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"companion/domain/entities"
	"companion/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// topRankingSize is how many leaders the computed ranking exposes.
const topRankingSize = 10

// rankingService computes the game-balance leaderboard from the raw user
// list the game API returns.
type rankingService struct {
	client interfaces.GameAPIClient
}

// NewRankingService creates a new ranking service
func NewRankingService(client interfaces.GameAPIClient) interfaces.RankingService {
	return &rankingService{client: client}
}

// GameRanking fetches the raw user list and derives the leaderboard view.
func (s *rankingService) GameRanking(ctx context.Context, myAddress string) (*entities.Ranking, error) {
	users, err := s.client.FetchRankingUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch ranking users: %w", err)
	}

	ranking := ComputeRanking(users, myAddress)

	log.WithFields(log.Fields{
		"users":   len(users),
		"top":     len(ranking.Top),
		"hasMine": ranking.Mine != nil,
	}).Debug("Computed game ranking")

	return ranking, nil
}

// ComputeRanking sorts users by balance descending and assigns 1-based
// positional ranks. Users without a usable balance sort below every numeric
// balance; equal balances break ties by address ascending, case-insensitive,
// so the ordering is deterministic regardless of input order. The requesting
// address is matched case-insensitively anywhere in the full list.
func ComputeRanking(users []entities.RankingUser, myAddress string) *entities.Ranking {
	sorted := make([]entities.RankingUser, len(users))
	copy(sorted, users)

	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.HasBalance != b.HasBalance {
			return a.HasBalance
		}
		if a.HasBalance && !a.Balance.Equal(b.Balance) {
			return a.Balance.GreaterThan(b.Balance)
		}
		return strings.ToLower(a.Address) < strings.ToLower(b.Address)
	})

	ranking := &entities.Ranking{}
	for i, u := range sorted {
		if i >= topRankingSize {
			break
		}
		ranking.Top = append(ranking.Top, entities.RankedUser{RankingUser: u, Rank: i + 1})
	}

	if myAddress == "" {
		return ranking
	}
	lower := strings.ToLower(myAddress)
	for i, u := range sorted {
		if strings.ToLower(u.Address) == lower {
			mine := entities.RankedUser{RankingUser: u, Rank: i + 1}
			ranking.Mine = &mine
			break
		}
	}
	return ranking
}

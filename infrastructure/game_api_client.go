package infrastructure

import (
	"context"
	"net/http"

	"companion/domain/entities"
)

// pointsRankingPath serves the raw game-balance user list.
const pointsRankingPath = "/points/ranking"

// GameAPIClient fetches game data from the web game API.
type GameAPIClient struct {
	api httpAPI
}

// NewGameAPIClient creates a client for the game API at the given base URL.
func NewGameAPIClient(baseURL string, client *http.Client) *GameAPIClient {
	return &GameAPIClient{api: newHTTPAPI("game api", baseURL, client)}
}

// FetchRankingUsers returns the raw user list in server order. The game API
// does not rank; sorting and rank assignment happen in the ranking service.
func (c *GameAPIClient) FetchRankingUsers(ctx context.Context) ([]entities.RankingUser, error) {
	var response struct {
		Users []entities.RankingUser `json:"users"`
	}
	if err := c.api.get(ctx, pointsRankingPath, nil, &response); err != nil {
		return nil, err
	}
	return response.Users, nil
}

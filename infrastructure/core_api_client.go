package infrastructure

import (
	"context"
	"errors"
	"net/http"
)

// coreLoginPath is the external login exchange endpoint on the core API.
const coreLoginPath = "/kstadium/api/comm/external/dex/login"

// CoreAPIClient exchanges access keys for access tokens against the
// platform core API.
type CoreAPIClient struct {
	api httpAPI
}

// NewCoreAPIClient creates a client for the core API at the given base URL.
func NewCoreAPIClient(baseURL string, client *http.Client) *CoreAPIClient {
	return &CoreAPIClient{api: newHTTPAPI("core api", baseURL, client)}
}

// Login exchanges an access key for an access token.
func (c *CoreAPIClient) Login(ctx context.Context, accessKey string) (string, error) {
	request := struct {
		AccessKey string `json:"accessKey"`
	}{AccessKey: accessKey}

	var response struct {
		Data struct {
			AccessToken string `json:"accessToken"`
		} `json:"data"`
	}
	if err := c.api.post(ctx, coreLoginPath, request, &response); err != nil {
		return "", err
	}
	if response.Data.AccessToken == "" {
		return "", errors.New("core api: login response carried no access token")
	}
	return response.Data.AccessToken, nil
}

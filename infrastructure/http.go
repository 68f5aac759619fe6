package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// httpAPI is the shared JSON-over-HTTP plumbing for the upstream services.
// No client-side timeouts or retries: failure surfaces through the
// transport's own error signaling and retries are user-initiated.
type httpAPI struct {
	name    string
	baseURL string
	client  *http.Client
}

func newHTTPAPI(name, baseURL string, client *http.Client) httpAPI {
	if client == nil {
		client = http.DefaultClient
	}
	return httpAPI{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

// get issues a GET request and decodes the JSON response into out.
func (a *httpAPI) get(ctx context.Context, path string, query url.Values, out any) error {
	endpoint := a.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%s: failed to build request: %w", a.name, err)
	}
	req.Header.Set("Accept", "application/json")

	return a.do(req, out)
}

// post issues a POST request with a JSON body and decodes the response.
func (a *httpAPI) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%s: failed to encode request body: %w", a.name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%s: failed to build request: %w", a.name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	return a.do(req, out)
}

func (a *httpAPI) do(req *http.Request, out any) error {
	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: request to %s failed: %w", a.name, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain a bounded amount so the message stays useful without
		// echoing arbitrary response bodies.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("%s: %s %s returned status %d: %s", a.name, req.Method, req.URL.Path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: failed to decode response from %s: %w", a.name, req.URL.Path, err)
	}
	return nil
}

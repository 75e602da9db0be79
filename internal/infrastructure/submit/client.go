// Package submit provides an HTTP client for the coverage submission
// service. Jobs push their artifacts in parallel mode; a final webhook
// call tells the service the run is complete so it can close the report.
package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/felixgeelhaar/matrixctl/internal/pathutil"
)

// DefaultTokenEnv is consulted when the config names no token variable.
const DefaultTokenEnv = "COVERALLS_REPO_TOKEN"

// Client implements the Submitter interface over HTTP.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// NewClient creates a submission client. The token is read from the
// named environment variable.
func NewClient(baseURL, tokenEnv string) *Client {
	if tokenEnv == "" {
		tokenEnv = DefaultTokenEnv
	}
	return &Client{
		httpClient: &http.Client{},
		baseURL:    baseURL,
		token:      os.Getenv(tokenEnv),
	}
}

// NewClientWithHTTP creates a client with a custom HTTP client (for testing).
func NewClientWithHTTP(baseURL, token string, httpClient *http.Client) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		token:      token,
	}
}

// Submit uploads one job's coverage artifact. With parallel set, the
// service holds the run open until Finalize arrives.
func (c *Client) Submit(ctx context.Context, artifact string, parallel bool) error {
	cleanPath, err := pathutil.ValidatePath(artifact)
	if err != nil {
		return fmt.Errorf("invalid artifact path: %w", err)
	}
	raw, err := os.ReadFile(cleanPath) // #nosec G304 - path is validated above
	if err != nil {
		return fmt.Errorf("read artifact: %w", err)
	}

	payload := map[string]any{
		"lcov":     string(raw),
		"parallel": parallel,
	}
	return c.post(ctx, c.baseURL+"/jobs", payload, http.StatusCreated, http.StatusOK)
}

// Finalize closes a parallel run. All submitted jobs merge into one
// report on the service side.
func (c *Client) Finalize(ctx context.Context, runID string) error {
	payload := map[string]any{
		"run_id": runID,
		"status": "done",
	}
	return c.post(ctx, c.baseURL+"/webhook", payload, http.StatusOK)
}

func (c *Client) post(ctx context.Context, url string, payload map[string]any, okStatus ...int) error {
	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	for _, status := range okStatus {
		if resp.StatusCode == status {
			return nil
		}
	}
	body, _ := io.ReadAll(resp.Body)
	return fmt.Errorf("submission service error: %s - %s", resp.Status, string(body))
}

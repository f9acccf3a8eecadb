package control

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nhle/humhub-notify/internal/viewer"
)

// Client talks to a running daemon's control endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the endpoint at addr (host:port or URL).
func NewClient(addr string) *Client {
	base := addr
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return &Client{
		baseURL:    strings.TrimRight(base, "/"),
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

// RequestFetch asks the daemon to fetch now. It implements viewer.Trigger.
func (c *Client) RequestFetch(ctx context.Context) (viewer.FetchAck, error) {
	var ack viewer.FetchAck
	if err := c.do(ctx, http.MethodPost, "/fetch", http.StatusAccepted, &ack); err != nil {
		return viewer.FetchAck{}, err
	}
	return ack, nil
}

// Status returns the daemon's poller status.
func (c *Client) Status(ctx context.Context) (StatusResponse, error) {
	var resp StatusResponse
	if err := c.do(ctx, http.MethodGet, "/status", http.StatusOK, &resp); err != nil {
		return StatusResponse{}, err
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, want int, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("contacting daemon at %s (is it running?): %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("daemon returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding daemon response: %w", err)
	}
	return nil
}

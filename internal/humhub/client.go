package humhub

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nhle/humhub-notify/internal/model"
)

// Endpoint paths relative to the server URL.
const (
	sessionListPath    = "/notification"
	sessionMarkAllPath = "/notification/list/mark-as-seen"
	apiListPath        = "/api/v1/notification"
	apiMarkSeenPath    = "/api/v1/notification/list/mark-as-seen"
)

// maxBodySize caps how much of a response is read.
const maxBodySize = 4 << 20

// Client is a thin HTTP client for the HumHub notification endpoints.
// The request shape follows Settings.AuthMode: session mode uses the
// cookie-authenticated web routes, token and jwt modes use the
// versioned REST API with a Bearer header. It never retries.
type Client struct {
	settings   model.Settings
	httpClient *http.Client
	now        func() time.Time
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithClock replaces time.Now for JWT expiry checks.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// NewClient creates a client bound to one snapshot of the settings.
func NewClient(s model.Settings, opts ...Option) *Client {
	jar, _ := cookiejar.New(nil)
	c := &Client{
		settings: s,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Jar:     jar,
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.settings.ServerURL = strings.TrimRight(c.settings.ServerURL, "/")
	return c
}

// FetchNotifications retrieves and normalizes the notification list.
// Nothing is sent when the settings lack a URL or the mode's credential.
func (c *Client) FetchNotifications(ctx context.Context) ([]model.Notification, error) {
	return c.fetch(ctx, "fetch")
}

// Probe issues the same request as FetchNotifications and reports how
// many notifications the server returned. It is used to test settings.
func (c *Client) Probe(ctx context.Context) (int, error) {
	list, err := c.fetch(ctx, "probe")
	if err != nil {
		return 0, err
	}
	return len(list), nil
}

func (c *Client) fetch(ctx context.Context, op string) ([]model.Notification, error) {
	if err := c.preflight(op); err != nil {
		return nil, err
	}

	path := apiListPath
	if c.settings.AuthMode == model.AuthSession {
		path = sessionListPath
	}

	req, err := c.newRequest(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, newError(KindConfig, op, 0, err)
	}

	resp, body, ferr := c.do(op, req)
	if ferr != nil {
		return nil, ferr
	}

	if !isJSON(resp.Header.Get("Content-Type")) {
		return nil, newError(KindHTTP, op, resp.StatusCode,
			fmt.Errorf("unexpected content type %q", resp.Header.Get("Content-Type")))
	}

	list, err := Decode(body, c.settings.ResponseShape)
	if err != nil {
		var fe *FetchError
		if errors.As(err, &fe) {
			fe.Op = op
		}
		return nil, err
	}
	return list, nil
}

// MarkSeen marks the given ids as seen on the server and returns the ids
// the server acknowledged. In session mode each id is a separate request
// and the loop stops at the first failure, so a partial list may be
// returned together with an error.
func (c *Client) MarkSeen(ctx context.Context, ids []string) ([]string, error) {
	if err := c.preflight("mark-seen"); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	if c.settings.AuthMode == model.AuthSession {
		acked := make([]string, 0, len(ids))
		for _, id := range ids {
			q := url.Values{}
			q.Set("id", id)
			req, err := c.newRequest(ctx, http.MethodGet, sessionListPath, q, nil)
			if err != nil {
				return acked, newError(KindConfig, "mark-seen", 0, err)
			}
			if _, _, ferr := c.do("mark-seen", req); ferr != nil {
				return acked, ferr
			}
			acked = append(acked, id)
		}
		return acked, nil
	}

	body := markSeenRequest{NotificationIDs: make([]interface{}, 0, len(ids))}
	for _, id := range ids {
		if _, err := strconv.ParseInt(id, 10, 64); err == nil {
			body.NotificationIDs = append(body.NotificationIDs, json.Number(id))
		} else {
			body.NotificationIDs = append(body.NotificationIDs, id)
		}
	}

	req, err := c.newRequest(ctx, http.MethodPost, apiMarkSeenPath, nil, body)
	if err != nil {
		return nil, newError(KindConfig, "mark-seen", 0, err)
	}
	if _, _, ferr := c.do("mark-seen", req); ferr != nil {
		return nil, ferr
	}
	return ids, nil
}

// MarkAllSeen marks every notification as seen on the server.
func (c *Client) MarkAllSeen(ctx context.Context) error {
	if err := c.preflight("mark-all-seen"); err != nil {
		return err
	}

	method, path := http.MethodPost, apiMarkSeenPath
	if c.settings.AuthMode == model.AuthSession {
		method, path = http.MethodGet, sessionMarkAllPath
	}

	req, err := c.newRequest(ctx, method, path, nil, nil)
	if err != nil {
		return newError(KindConfig, "mark-all-seen", 0, err)
	}
	if _, _, ferr := c.do("mark-all-seen", req); ferr != nil {
		return ferr
	}
	return nil
}

// preflight rejects requests that cannot succeed before any I/O.
func (c *Client) preflight(op string) *FetchError {
	if err := c.settings.Validate(); err != nil {
		return newError(KindConfig, op, 0, err)
	}
	if c.settings.AuthMode == model.AuthJWT {
		if err := checkJWT(c.settings.JWTToken, c.now()); err != nil {
			return newError(KindConfig, op, 0, err)
		}
	}
	return nil
}

// newRequest builds a request with the auth headers for the current mode.
func (c *Client) newRequest(
	ctx context.Context,
	method string,
	path string,
	query url.Values,
	body interface{},
) (*http.Request, error) {
	target := c.settings.ServerURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	switch c.settings.AuthMode {
	case model.AuthToken, model.AuthJWT:
		req.Header.Set("Authorization", "Bearer "+c.settings.Credential())
		req.Header.Set("Content-Type", "application/json")
	default:
		if c.settings.SessionCookie != "" {
			req.Header.Set("Cookie", c.settings.SessionCookie)
		}
	}

	return req, nil
}

// do executes req and returns the response with its fully read body.
// Any non-2xx status is an error.
func (c *Client) do(op string, req *http.Request) (*http.Response, []byte, *FetchError) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, newError(KindNetwork, op, 0,
			fmt.Errorf("executing request %s %s: %w", req.Method, req.URL.Path, err))
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, nil, newError(KindNetwork, op, resp.StatusCode,
			fmt.Errorf("reading response body: %w", err))
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, nil, newError(KindHTTP, op, resp.StatusCode,
			fmt.Errorf("authentication failed: check your %s credentials for %s",
				c.settings.AuthMode, c.settings.ServerURL))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, nil, newError(KindHTTP, op, resp.StatusCode,
			fmt.Errorf("unexpected status on %s %s: %s",
				req.Method, req.URL.Path, truncate(string(body), 200)))
	}

	return resp, body, nil
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

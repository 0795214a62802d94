package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrUnauthorized is returned when the API rejects the session token.
var ErrUnauthorized = errors.New("feed: unauthorized")

const maxPayloadBytes = 4 << 20

// Client fetches the notification feed from the after-school REST API.
type Client struct {
	baseURL  string
	feedPath string
	token    func() string
	http     *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithFeedPath overrides the feed endpoint path (default "/notifications").
func WithFeedPath(p string) Option {
	return func(c *Client) {
		if p = strings.TrimSpace(p); p != "" {
			if !strings.HasPrefix(p, "/") {
				p = "/" + p
			}
			c.feedPath = p
		}
	}
}

// WithTokenSource sets the bearer token provider. It is consulted on every
// request so a refreshed session is picked up without rebuilding the client.
func WithTokenSource(fn func() string) Option {
	return func(c *Client) { c.token = fn }
}

func NewClient(baseURL string, httpClient *http.Client, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		feedPath: "/notifications",
		http:     httpClient,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Fetch requests one page of the feed and returns the raw payload; use
// Normalize to extract items. The body must be valid JSON.
func (c *Client) Fetch(ctx context.Context, q Query) (json.RawMessage, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = 10
	}

	v := make(url.Values)
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("pageSize", strconv.Itoa(q.PageSize))
	v.Set("unreadOnly", strconv.FormatBool(q.UnreadOnly))

	req, err := c.newRequest(ctx, http.MethodGet, c.feedPath+"?"+v.Encode())
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrUnauthorized
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("feed request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
	if err != nil {
		return nil, fmt.Errorf("read feed response: %w", err)
	}
	body = bytes.TrimSpace(body)
	if !json.Valid(body) {
		return nil, fmt.Errorf("decode feed response: invalid JSON")
	}
	return json.RawMessage(body), nil
}

func (c *Client) newRequest(ctx context.Context, method, path string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != nil {
		if tok := strings.TrimSpace(c.token()); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}
	return req, nil
}

// Package history implements the REST consumer for the agent event feed:
// cursor-paginated history pages and the day-bucketed timeline index.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/sablewing/agent-console/internal/timeline"
)

const defaultBaseURL = "http://localhost:8640"

// ClientOption configures the client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithAPIKey sets the bearer token sent with every request.
func WithAPIKey(apiKey string) ClientOption {
	return func(c *Client) {
		c.apiKey = apiKey
	}
}

// Client is an HTTP client for the console's event history API. It
// satisfies timeline.Loader and performs no caching; every call is a fresh
// round trip.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a history client for the backend at baseURL. An empty
// baseURL falls back to the local dev server address.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListEvents fetches one page of the history feed.
func (c *Client) ListEvents(ctx context.Context, q timeline.EventsQuery) (*timeline.EventPage, error) {
	if q.AgentID == "" {
		return nil, fmt.Errorf("agent id is required")
	}

	params := url.Values{}
	if q.Cursor != "" {
		params.Set("cursor", q.Cursor)
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Day != "" {
		params.Set("day", q.Day)
	}
	params.Set("tz_offset", strconv.Itoa(q.TZOffset))

	var page timeline.EventPage
	if err := c.getJSON(ctx, "/agents/"+url.PathEscape(q.AgentID)+"/events/", params, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// LoadTimeline fetches the day-bucketed index for the side navigation.
func (c *Client) LoadTimeline(ctx context.Context, agentID string, days int) (*timeline.Timeline, error) {
	if agentID == "" {
		return nil, fmt.Errorf("agent id is required")
	}

	params := url.Values{}
	if days > 0 {
		params.Set("days", strconv.Itoa(days))
	}

	var idx timeline.Timeline
	if err := c.getJSON(ctx, "/agents/"+url.PathEscape(agentID)+"/events/timeline/", params, &idx); err != nil {
		return nil, err
	}
	return &idx, nil
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return parseErrorResponse(resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

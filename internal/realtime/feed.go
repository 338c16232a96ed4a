// Package realtime consumes the console's push stream. A feed delivers raw
// frames; validation into typed payloads happens at the timeline package's
// decode boundary, so nothing loosely typed travels further.
package realtime

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Message is one frame from the push stream, or the terminal error that
// ended it.
type Message struct {
	// Event is the SSE event name, informational only; the payload's kind
	// field is authoritative.
	Event string
	Data  json.RawMessage
	Err   error
}

// Option configures the feed.
type Option func(*Feed)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(f *Feed) {
		f.httpClient = httpClient
	}
}

// WithAPIKey sets the bearer token sent when opening the stream.
func WithAPIKey(apiKey string) Option {
	return func(f *Feed) {
		f.apiKey = apiKey
	}
}

// Feed subscribes to an agent's push stream over server-sent events.
// Reconnection, backoff, and the auth handshake are the caller's transport
// policy: a feed runs until the stream ends or the context is canceled and
// reports a terminal error on its channel.
type Feed struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewFeed creates a feed for the backend at baseURL.
func NewFeed(baseURL string, opts ...Option) *Feed {
	f := &Feed{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Subscribe opens the stream for agentID and returns a channel of frames.
// The channel is closed when the stream ends; a read failure is delivered
// as the final frame unless the context was canceled.
func (f *Feed) Subscribe(ctx context.Context, agentID string) (<-chan Message, error) {
	if agentID == "" {
		return nil, fmt.Errorf("agent id is required")
	}

	u := f.baseURL + "/agents/" + url.PathEscape(agentID) + "/events/stream"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	if f.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.apiKey)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("stream rejected (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	out := make(chan Message)
	go f.streamReader(ctx, resp.Body, out)
	return out, nil
}

func (f *Feed) streamReader(ctx context.Context, body io.ReadCloser, out chan<- Message) {
	defer close(out)
	defer body.Close()

	scanner := bufio.NewScanner(body)
	// Push frames can carry full completion payloads
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	var currentEvent string

	for scanner.Scan() {
		line := scanner.Text()

		// Blank lines separate frames; lines starting with ":" are
		// keepalive comments.
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}

		if strings.HasPrefix(line, "event: ") {
			currentEvent = strings.TrimPrefix(line, "event: ")
			continue
		}

		if strings.HasPrefix(line, "data: ") {
			data := strings.TrimPrefix(line, "data: ")
			select {
			case out <- Message{Event: currentEvent, Data: json.RawMessage(data)}:
			case <-ctx.Done():
				return
			}
		}
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, context.Canceled) {
		out <- Message{Err: fmt.Errorf("stream read error: %w", err)}
	}
}

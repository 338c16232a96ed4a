// Package storage defines persistence for the dev backend's event history.
package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sablewing/agent-console/internal/timeline"
)

// ErrMalformedCursor marks pagination tokens that cannot be decoded.
var ErrMalformedCursor = errors.New("malformed cursor")

// ListQuery filters one page of an agent's history feed.
type ListQuery struct {
	AgentID string
	// Cursor is an opaque keyset token issued by a previous page.
	Cursor string
	Limit  int
	// Day restricts the page to one viewer-local calendar day.
	Day string
	// TZOffset is the viewer's UTC offset in minutes, east positive.
	TZOffset int
}

// Page is one keyset-paginated slice of an agent's history, newest first.
type Page struct {
	Events     []timeline.Event
	NextCursor string
	HasMore    bool
}

// EventStore persists agent timeline events. Appending an event whose
// identity key already exists replaces the stored payload.
type EventStore interface {
	AppendEvent(ctx context.Context, agentID string, ev timeline.Event) error
	ListEvents(ctx context.Context, q ListQuery) (*Page, error)
	TimelineIndex(ctx context.Context, agentID string, days, tzOffset int) (*timeline.Timeline, error)
	Close() error
}

// Cursor pins a keyset position in the feed's newest-first order. Clients
// treat the encoded form as a black box.
type Cursor struct {
	Timestamp string
	Kind      timeline.Kind
	ID        string
}

// EncodeCursor issues the token for the last row of a page.
func EncodeCursor(ev timeline.Event) string {
	raw := ev.Timestamp + "|" + string(ev.Kind) + "|" + ev.Key().ID
	return base64.StdEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses a token issued by EncodeCursor.
func DecodeCursor(token string) (Cursor, error) {
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, fmt.Errorf("%w: %v", ErrMalformedCursor, err)
	}
	parts := strings.SplitN(string(raw), "|", 3)
	if len(parts) != 3 {
		return Cursor{}, fmt.Errorf("%w: %q", ErrMalformedCursor, token)
	}
	return Cursor{Timestamp: parts[0], Kind: timeline.Kind(parts[1]), ID: parts[2]}, nil
}

// After reports whether ev sits strictly after the cursor position when the
// feed is scanned newest first.
func (c Cursor) After(ev timeline.Event) bool {
	key := ev.Key()
	if ev.Timestamp != c.Timestamp {
		return ev.Timestamp < c.Timestamp
	}
	if key.ID != c.ID {
		return key.ID < c.ID
	}
	return ev.Kind < c.Kind
}

// LocalDay returns the viewer-local calendar day of an RFC 3339 timestamp,
// or "" when the timestamp is absent or unparseable.
func LocalDay(ts string, tzOffset int) string {
	if ts == "" {
		return ""
	}
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ""
	}
	return t.In(time.FixedZone("", tzOffset*60)).Format("2006-01-02")
}

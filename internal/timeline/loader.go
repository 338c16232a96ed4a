package timeline

import "context"

// EventsQuery carries the parameters for one page of the history feed.
type EventsQuery struct {
	AgentID string
	// Cursor is the opaque token from the previous page, empty for the
	// first page. It is never parsed or constructed on the client.
	Cursor string
	Limit  int
	// Day optionally anchors the page at one calendar date (jump-to-time).
	Day string
	// TZOffset is the viewer's UTC offset in minutes, east positive, so the
	// backend buckets days in the viewer's locale.
	TZOffset int
}

// EventPage is the history feed's response shape.
type EventPage struct {
	Events           []Event `json:"events"`
	NextCursor       string  `json:"next_cursor"`
	HasMore          bool    `json:"has_more"`
	ProcessingActive bool    `json:"processing_active"`
}

// TimelineBucket is one calendar day's event count in the viewer's zone.
type TimelineBucket struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}

// Timeline is the day-bucketed index behind the side navigation. It is
// fetched once per initialization and never refreshed by pushes, so it may
// lag the live window; it is a coarse navigation aid, not a source of truth.
type Timeline struct {
	Buckets []TimelineBucket `json:"buckets"`
	Latest  string           `json:"latest"`
	Days    int              `json:"days"`
}

// Loader fetches history pages and the day index for the store.
// Implementations do not cache; every call is a fresh round trip.
type Loader interface {
	ListEvents(ctx context.Context, q EventsQuery) (*EventPage, error)
	LoadTimeline(ctx context.Context, agentID string, days int) (*Timeline, error)
}

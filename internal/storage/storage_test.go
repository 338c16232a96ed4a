package storage

import (
	"testing"

	"github.com/sablewing/agent-console/internal/timeline"
)

func TestCursorRoundTrip(t *testing.T) {
	ev := timeline.Event{Kind: timeline.KindCompletion, ID: "cmp_1", Timestamp: "2026-08-20T10:00:00Z"}

	token := EncodeCursor(ev)
	cursor, err := DecodeCursor(token)
	if err != nil {
		t.Fatalf("DecodeCursor() error = %v", err)
	}
	if cursor.Timestamp != ev.Timestamp || cursor.Kind != ev.Kind || cursor.ID != ev.ID {
		t.Errorf("cursor = %+v, want fields of %+v", cursor, ev)
	}
}

func TestEncodeCursorUsesRunIDForRunStarted(t *testing.T) {
	ev := timeline.Event{Kind: timeline.KindRunStarted, ID: "ignored", RunID: "run_1", Timestamp: "2026-08-20T10:00:00Z"}

	cursor, err := DecodeCursor(EncodeCursor(ev))
	if err != nil {
		t.Fatalf("DecodeCursor() error = %v", err)
	}
	if cursor.ID != "run_1" {
		t.Errorf("cursor.ID = %q, want run_1", cursor.ID)
	}
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{"not base64", "%%%"},
		{"too few fields", "b25seS1vbmU="}, // "only-one"
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeCursor(tt.token); err == nil {
				t.Errorf("DecodeCursor(%q) error = nil, want malformed cursor error", tt.token)
			}
		})
	}
}

func TestCursorAfter(t *testing.T) {
	cursor := Cursor{Timestamp: "2026-08-20T10:00:00Z", Kind: timeline.KindMessage, ID: "msg_5"}

	tests := []struct {
		name string
		ev   timeline.Event
		want bool
	}{
		{"older timestamp", timeline.Event{Kind: timeline.KindMessage, ID: "msg_9", Timestamp: "2026-08-20T09:00:00Z"}, true},
		{"newer timestamp", timeline.Event{Kind: timeline.KindMessage, ID: "msg_1", Timestamp: "2026-08-20T11:00:00Z"}, false},
		{"same row", timeline.Event{Kind: timeline.KindMessage, ID: "msg_5", Timestamp: "2026-08-20T10:00:00Z"}, false},
		{"tie broken by id", timeline.Event{Kind: timeline.KindMessage, ID: "msg_4", Timestamp: "2026-08-20T10:00:00Z"}, true},
		{"tie broken by kind", timeline.Event{Kind: timeline.KindCompletion, ID: "msg_5", Timestamp: "2026-08-20T10:00:00Z"}, true},
		{"missing timestamp sorts last", timeline.Event{Kind: timeline.KindMessage, ID: "msg_0", Timestamp: ""}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cursor.After(tt.ev); got != tt.want {
				t.Errorf("After(%s) = %v, want %v", tt.ev.ID, got, tt.want)
			}
		})
	}
}

func TestLocalDay(t *testing.T) {
	tests := []struct {
		name     string
		ts       string
		tzOffset int
		want     string
	}{
		{"utc viewer", "2026-08-20T23:30:00Z", 0, "2026-08-20"},
		{"east of utc rolls forward", "2026-08-20T23:30:00Z", 120, "2026-08-21"},
		{"west of utc rolls back", "2026-08-20T00:30:00Z", -300, "2026-08-19"},
		{"offset timestamp", "2026-08-20T01:30:00+05:00", 0, "2026-08-19"},
		{"empty timestamp", "", 0, ""},
		{"unparseable timestamp", "yesterday", 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LocalDay(tt.ts, tt.tzOffset); got != tt.want {
				t.Errorf("LocalDay(%q, %d) = %q, want %q", tt.ts, tt.tzOffset, got, tt.want)
			}
		})
	}
}

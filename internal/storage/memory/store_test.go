package memory

import (
	"context"
	"testing"

	"github.com/sablewing/agent-console/internal/storage"
	"github.com/sablewing/agent-console/internal/timeline"
)

func seedStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore()
	ctx := context.Background()
	events := []timeline.Event{
		{Kind: timeline.KindCompletion, ID: "cmp_1", Timestamp: "2026-08-20T10:00:00Z", Content: "morning"},
		{Kind: timeline.KindMessage, ID: "msg_1", Timestamp: "2026-08-20T10:05:00Z", Role: "user", Content: "hi"},
		{Kind: timeline.KindCompletion, ID: "cmp_2", Timestamp: "2026-08-21T09:00:00Z", Content: "next day"},
		{Kind: timeline.KindSystemMessage, ID: "sys_1", Timestamp: "2026-08-21T09:30:00Z", Content: "restart"},
		{Kind: timeline.KindStep, ID: "stp_1", Timestamp: "2026-08-22T08:00:00Z", Content: "plan"},
	}
	for _, ev := range events {
		if err := s.AppendEvent(ctx, "agent-1", ev); err != nil {
			t.Fatalf("AppendEvent() error = %v", err)
		}
	}
	return s
}

func TestStoreListEventsNewestFirst(t *testing.T) {
	s := seedStore(t)

	page, err := s.ListEvents(context.Background(), storage.ListQuery{AgentID: "agent-1", Limit: 10})
	if err != nil {
		t.Fatalf("ListEvents() error = %v", err)
	}
	if len(page.Events) != 5 {
		t.Fatalf("len(Events) = %d, want 5", len(page.Events))
	}
	if page.Events[0].ID != "stp_1" || page.Events[4].ID != "cmp_1" {
		t.Errorf("order = %s..%s, want stp_1..cmp_1", page.Events[0].ID, page.Events[4].ID)
	}
	if page.HasMore {
		t.Error("HasMore = true, want false")
	}
	if page.NextCursor != "" {
		t.Errorf("NextCursor = %q, want empty", page.NextCursor)
	}
}

func TestStoreListEventsPaginates(t *testing.T) {
	s := seedStore(t)
	ctx := context.Background()

	first, err := s.ListEvents(ctx, storage.ListQuery{AgentID: "agent-1", Limit: 2})
	if err != nil {
		t.Fatalf("ListEvents() error = %v", err)
	}
	if len(first.Events) != 2 || !first.HasMore || first.NextCursor == "" {
		t.Fatalf("first page = %d events, HasMore %v, cursor %q", len(first.Events), first.HasMore, first.NextCursor)
	}

	second, err := s.ListEvents(ctx, storage.ListQuery{AgentID: "agent-1", Limit: 2, Cursor: first.NextCursor})
	if err != nil {
		t.Fatalf("ListEvents() error = %v", err)
	}
	if len(second.Events) != 2 {
		t.Fatalf("len(second.Events) = %d, want 2", len(second.Events))
	}
	if second.Events[0].ID == first.Events[1].ID {
		t.Errorf("second page repeats %s", second.Events[0].ID)
	}

	third, err := s.ListEvents(ctx, storage.ListQuery{AgentID: "agent-1", Limit: 2, Cursor: second.NextCursor})
	if err != nil {
		t.Fatalf("ListEvents() error = %v", err)
	}
	if len(third.Events) != 1 || third.HasMore {
		t.Errorf("third page = %d events, HasMore %v, want 1 and false", len(third.Events), third.HasMore)
	}
	if third.Events[0].ID != "cmp_1" {
		t.Errorf("last event = %s, want cmp_1", third.Events[0].ID)
	}
}

func TestStoreListEventsRejectsBadCursor(t *testing.T) {
	s := seedStore(t)

	_, err := s.ListEvents(context.Background(), storage.ListQuery{AgentID: "agent-1", Cursor: "not-base64!"})
	if err == nil {
		t.Fatal("ListEvents() error = nil, want malformed cursor error")
	}
}

func TestStoreListEventsFiltersByDay(t *testing.T) {
	s := seedStore(t)

	page, err := s.ListEvents(context.Background(), storage.ListQuery{AgentID: "agent-1", Limit: 10, Day: "2026-08-21"})
	if err != nil {
		t.Fatalf("ListEvents() error = %v", err)
	}
	if len(page.Events) != 2 {
		t.Fatalf("len(Events) = %d, want 2", len(page.Events))
	}
	for _, ev := range page.Events {
		if storage.LocalDay(ev.Timestamp, 0) != "2026-08-21" {
			t.Errorf("event %s on day %s, want 2026-08-21", ev.ID, storage.LocalDay(ev.Timestamp, 0))
		}
	}
}

func TestStoreListEventsDayRespectsTZOffset(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	// 23:30 UTC lands on the next local day at +120 minutes.
	ev := timeline.Event{Kind: timeline.KindMessage, ID: "msg_late", Timestamp: "2026-08-20T23:30:00Z", Role: "user"}
	if err := s.AppendEvent(ctx, "agent-1", ev); err != nil {
		t.Fatalf("AppendEvent() error = %v", err)
	}

	page, err := s.ListEvents(ctx, storage.ListQuery{AgentID: "agent-1", Limit: 10, Day: "2026-08-21", TZOffset: 120})
	if err != nil {
		t.Fatalf("ListEvents() error = %v", err)
	}
	if len(page.Events) != 1 {
		t.Fatalf("len(Events) = %d, want 1", len(page.Events))
	}

	page, err = s.ListEvents(ctx, storage.ListQuery{AgentID: "agent-1", Limit: 10, Day: "2026-08-20", TZOffset: 120})
	if err != nil {
		t.Fatalf("ListEvents() error = %v", err)
	}
	if len(page.Events) != 0 {
		t.Errorf("len(Events) = %d, want 0 on the UTC day", len(page.Events))
	}
}

func TestStoreAppendEventUpserts(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	first := timeline.Event{Kind: timeline.KindCompletion, ID: "cmp_1", Timestamp: "2026-08-20T10:00:00Z", Status: "in_progress"}
	if err := s.AppendEvent(ctx, "agent-1", first); err != nil {
		t.Fatalf("AppendEvent() error = %v", err)
	}
	second := first
	second.Status = "complete"
	if err := s.AppendEvent(ctx, "agent-1", second); err != nil {
		t.Fatalf("AppendEvent() error = %v", err)
	}

	page, err := s.ListEvents(ctx, storage.ListQuery{AgentID: "agent-1", Limit: 10})
	if err != nil {
		t.Fatalf("ListEvents() error = %v", err)
	}
	if len(page.Events) != 1 {
		t.Fatalf("len(Events) = %d, want 1", len(page.Events))
	}
	if page.Events[0].Status != "complete" {
		t.Errorf("Status = %q, want complete", page.Events[0].Status)
	}
}

func TestStoreIsolatesAgents(t *testing.T) {
	s := seedStore(t)
	ctx := context.Background()

	other := timeline.Event{Kind: timeline.KindMessage, ID: "msg_other", Timestamp: "2026-08-22T12:00:00Z"}
	if err := s.AppendEvent(ctx, "agent-2", other); err != nil {
		t.Fatalf("AppendEvent() error = %v", err)
	}

	page, err := s.ListEvents(ctx, storage.ListQuery{AgentID: "agent-2", Limit: 10})
	if err != nil {
		t.Fatalf("ListEvents() error = %v", err)
	}
	if len(page.Events) != 1 || page.Events[0].ID != "msg_other" {
		t.Errorf("agent-2 page = %+v, want only msg_other", page.Events)
	}
}

func TestStoreTimelineIndex(t *testing.T) {
	s := seedStore(t)

	tl, err := s.TimelineIndex(context.Background(), "agent-1", 30, 0)
	if err != nil {
		t.Fatalf("TimelineIndex() error = %v", err)
	}
	if len(tl.Buckets) != 3 {
		t.Fatalf("len(Buckets) = %d, want 3", len(tl.Buckets))
	}
	wantDays := []string{"2026-08-22", "2026-08-21", "2026-08-20"}
	wantCounts := []int{1, 2, 2}
	for i, bucket := range tl.Buckets {
		if bucket.Day != wantDays[i] || bucket.Count != wantCounts[i] {
			t.Errorf("bucket[%d] = %s/%d, want %s/%d", i, bucket.Day, bucket.Count, wantDays[i], wantCounts[i])
		}
	}
	if tl.Latest != "2026-08-22T08:00:00Z" {
		t.Errorf("Latest = %q, want 2026-08-22T08:00:00Z", tl.Latest)
	}
}

func TestStoreTimelineIndexTruncatesToRequestedDays(t *testing.T) {
	s := seedStore(t)

	tl, err := s.TimelineIndex(context.Background(), "agent-1", 2, 0)
	if err != nil {
		t.Fatalf("TimelineIndex() error = %v", err)
	}
	if len(tl.Buckets) != 2 {
		t.Fatalf("len(Buckets) = %d, want 2", len(tl.Buckets))
	}
	if tl.Buckets[0].Day != "2026-08-22" || tl.Buckets[1].Day != "2026-08-21" {
		t.Errorf("buckets = %s, %s, want the two most recent days", tl.Buckets[0].Day, tl.Buckets[1].Day)
	}
}

func TestStoreTimelineIndexSkipsEmptyTimestamps(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	if err := s.AppendEvent(ctx, "agent-1", timeline.Event{Kind: timeline.KindMessage, ID: "msg_nots"}); err != nil {
		t.Fatalf("AppendEvent() error = %v", err)
	}

	tl, err := s.TimelineIndex(ctx, "agent-1", 30, 0)
	if err != nil {
		t.Fatalf("TimelineIndex() error = %v", err)
	}
	if len(tl.Buckets) != 0 {
		t.Errorf("len(Buckets) = %d, want 0", len(tl.Buckets))
	}
	if tl.Latest != "" {
		t.Errorf("Latest = %q, want empty", tl.Latest)
	}
}

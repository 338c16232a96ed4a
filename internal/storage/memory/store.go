// Package memory provides an in-memory EventStore for development and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/sablewing/agent-console/internal/storage"
	"github.com/sablewing/agent-console/internal/timeline"
)

// Store keeps every agent's events in process memory. Safe for concurrent
// use. Contents are lost on restart.
type Store struct {
	mu     sync.RWMutex
	agents map[string]map[timeline.Key]timeline.Event
}

// NewStore creates an empty in-memory event store.
func NewStore() *Store {
	return &Store{agents: make(map[string]map[timeline.Key]timeline.Event)}
}

// AppendEvent upserts ev into the agent's history by identity key.
func (s *Store) AppendEvent(_ context.Context, agentID string, ev timeline.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	events, ok := s.agents[agentID]
	if !ok {
		events = make(map[timeline.Key]timeline.Event)
		s.agents[agentID] = events
	}
	events[ev.Key()] = ev.Clone()
	return nil
}

// ListEvents returns one newest-first page of the agent's history.
func (s *Store) ListEvents(_ context.Context, q storage.ListQuery) (*storage.Page, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = timeline.DefaultPageLimit
	}

	var cursor storage.Cursor
	hasCursor := q.Cursor != ""
	if hasCursor {
		var err error
		cursor, err = storage.DecodeCursor(q.Cursor)
		if err != nil {
			return nil, err
		}
	}

	s.mu.RLock()
	collected := make([]timeline.Event, 0, len(s.agents[q.AgentID]))
	for _, ev := range s.agents[q.AgentID] {
		collected = append(collected, ev)
	}
	s.mu.RUnlock()

	ordered := timeline.Merge(nil, collected)

	page := &storage.Page{Events: []timeline.Event{}}
	for _, ev := range ordered {
		if q.Day != "" && storage.LocalDay(ev.Timestamp, q.TZOffset) != q.Day {
			continue
		}
		if hasCursor && !cursor.After(ev) {
			continue
		}
		if len(page.Events) == limit {
			page.HasMore = true
			page.NextCursor = storage.EncodeCursor(page.Events[limit-1])
			break
		}
		page.Events = append(page.Events, ev)
	}
	return page, nil
}

// TimelineIndex summarizes the agent's most recent event-bearing days.
func (s *Store) TimelineIndex(_ context.Context, agentID string, days, tzOffset int) (*timeline.Timeline, error) {
	if days <= 0 {
		days = timeline.DefaultTimelineDays
	}

	s.mu.RLock()
	counts := make(map[string]int)
	latest := ""
	for _, ev := range s.agents[agentID] {
		day := storage.LocalDay(ev.Timestamp, tzOffset)
		if day == "" {
			continue
		}
		counts[day]++
		if ev.Timestamp > latest {
			latest = ev.Timestamp
		}
	}
	s.mu.RUnlock()

	ordered := make([]string, 0, len(counts))
	for day := range counts {
		ordered = append(ordered, day)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] > ordered[j] })
	if len(ordered) > days {
		ordered = ordered[:days]
	}

	tl := &timeline.Timeline{Buckets: []timeline.TimelineBucket{}, Latest: latest, Days: days}
	for _, day := range ordered {
		tl.Buckets = append(tl.Buckets, timeline.TimelineBucket{Day: day, Count: counts[day]})
	}
	return tl, nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error { return nil }

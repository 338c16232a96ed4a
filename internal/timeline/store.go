package timeline

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// DefaultPageLimit is the history page size requested by Initialize,
	// LoadMore, and JumpToTime.
	DefaultPageLimit = 40
	// DefaultTimelineDays is how many day buckets the index fetch requests.
	DefaultTimelineDays = 30
)

// Option configures the store.
type Option func(*Store)

// WithLogger sets the store's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithPageLimit sets the history page size.
func WithPageLimit(n int) Option {
	return func(s *Store) {
		s.pageLimit = n
	}
}

// WithTimelineDays sets how many day buckets the index fetch requests.
func WithTimelineDays(n int) Option {
	return func(s *Store) {
		s.timelineDays = n
	}
}

// WithTZOffset fixes the UTC offset in minutes sent with history fetches.
// The default is the process-local zone's current offset.
func WithTZOffset(minutes int) Option {
	return func(s *Store) {
		s.tzOffset = minutes
	}
}

// State is a point-in-time copy of the store handed to the presentation
// layer. Events is the window, newest first; tool calls nested under a
// completion are oldest first.
type State struct {
	AgentID          string
	Events           []Event
	NextCursor       string
	HasMore          bool
	Loading          bool
	Error            string
	ProcessingActive bool
	Timeline         *Timeline
	TimelineLoading  bool
	TimelineError    string
	SelectedDay      string
}

// Store owns the materialized timeline window for one agent at a time: the
// single source of truth for what the UI currently sees, plus its derived
// flags. It reconciles the paginated history feed with the realtime push
// stream by running every mutation through Merge and Attach, which keeps the
// window deduplicated and ordered regardless of arrival order.
//
// A Store is safe for concurrent use. Fetches run outside the internal lock
// and their results are applied through Merge, so a push landing while a
// LoadMore is in flight converges either way. Initialize and JumpToTime
// replace the window wholesale; a push racing the replacing fetch can be
// dropped. Both are infrequent, user-initiated full resets, so that race is
// accepted rather than locked away.
type Store struct {
	loader       Loader
	logger       *slog.Logger
	pageLimit    int
	timelineDays int
	tzOffset     int

	dropped atomic.Int64

	mu               sync.Mutex
	agentID          string
	events           []Event
	nextCursor       string
	hasMore          bool
	loading          bool
	errMsg           string
	processingActive bool
	timeline         *Timeline
	timelineLoading  bool
	timelineErr      string
	selectedDay      string
}

// NewStore creates a store backed by loader.
func NewStore(loader Loader, opts ...Option) *Store {
	_, offset := time.Now().Zone()
	s := &Store{
		loader:       loader,
		logger:       slog.Default(),
		pageLimit:    DefaultPageLimit,
		timelineDays: DefaultTimelineDays,
		tzOffset:     offset / 60,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize points the store at agentID and seeds the window from the first
// history page, replacing any previous window wholesale. On a failed fetch
// the prior window is retained and the error is surfaced through the
// snapshot's Error field as well as returned. The day index is fetched
// afterwards under its own loading and error state; an index failure never
// fails initialization.
func (s *Store) Initialize(ctx context.Context, agentID string) error {
	s.mu.Lock()
	s.agentID = agentID
	s.selectedDay = ""
	s.loading = true
	s.errMsg = ""
	s.mu.Unlock()

	page, err := s.loader.ListEvents(ctx, EventsQuery{
		AgentID:  agentID,
		Limit:    s.pageLimit,
		TZOffset: s.tzOffset,
	})

	s.mu.Lock()
	s.loading = false
	if err != nil {
		lerr := &LoadError{Op: "initialize", Err: err}
		s.errMsg = lerr.Error()
		s.mu.Unlock()
		s.loadTimelineIndex(ctx, agentID)
		return lerr
	}
	s.events = Merge(nil, page.Events)
	s.nextCursor = page.NextCursor
	s.hasMore = page.HasMore
	s.processingActive = page.ProcessingActive
	s.mu.Unlock()

	s.loadTimelineIndex(ctx, agentID)
	return nil
}

// loadTimelineIndex runs the one-shot day index fetch. Its lifecycle is
// independent of the main window: pushes never refresh it and its failure
// only sets the timeline error fields.
func (s *Store) loadTimelineIndex(ctx context.Context, agentID string) {
	s.mu.Lock()
	s.timelineLoading = true
	s.timelineErr = ""
	s.mu.Unlock()

	idx, err := s.loader.LoadTimeline(ctx, agentID, s.timelineDays)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.timelineLoading = false
	if err != nil {
		s.timelineErr = (&LoadError{Op: "timeline", Err: err}).Error()
		s.logger.Warn("timeline index load failed", "agent_id", agentID, "error", err)
		return
	}
	s.timeline = idx
}

// LoadMore appends the next, older history page to the window. It is a
// no-op when the backend reported no further pages, when a fetch is already
// in flight, or before Initialize has run. The loading flag is the only
// guard against duplicate fetches: a second call while one is outstanding is
// dropped, not queued.
func (s *Store) LoadMore(ctx context.Context) error {
	s.mu.Lock()
	if !s.hasMore || s.loading || s.agentID == "" {
		s.mu.Unlock()
		return nil
	}
	s.loading = true
	s.errMsg = ""
	agentID := s.agentID
	cursor := s.nextCursor
	s.mu.Unlock()

	page, err := s.loader.ListEvents(ctx, EventsQuery{
		AgentID:  agentID,
		Cursor:   cursor,
		Limit:    s.pageLimit,
		TZOffset: s.tzOffset,
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		lerr := &LoadError{Op: "load more", Err: err}
		s.errMsg = lerr.Error()
		return lerr
	}
	s.events = Merge(s.events, page.Events)
	s.nextCursor = page.NextCursor
	s.hasMore = page.HasMore
	s.processingActive = page.ProcessingActive
	return nil
}

// JumpToTime anchors the window at the calendar day containing ts and
// replaces it wholesale with that day's first page; other-day rows from the
// prior window are discarded rather than stitched together. ts must parse
// as an RFC 3339 timestamp or a bare 2006-01-02 date, otherwise the call
// fails with InvalidTimestampError and mutates nothing beyond the surfaced
// error message.
func (s *Store) JumpToTime(ctx context.Context, ts string) error {
	day, err := anchorDay(ts, s.tzOffset)
	if err != nil {
		s.mu.Lock()
		s.errMsg = err.Error()
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	if s.agentID == "" {
		s.mu.Unlock()
		return nil
	}
	s.selectedDay = day
	s.loading = true
	s.errMsg = ""
	agentID := s.agentID
	s.mu.Unlock()

	page, err := s.loader.ListEvents(ctx, EventsQuery{
		AgentID:  agentID,
		Limit:    s.pageLimit,
		Day:      day,
		TZOffset: s.tzOffset,
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		lerr := &LoadError{Op: "jump to time", Err: err}
		s.errMsg = lerr.Error()
		return lerr
	}
	s.events = Merge(nil, page.Events)
	s.nextCursor = page.NextCursor
	s.hasMore = page.HasMore
	s.processingActive = page.ProcessingActive
	return nil
}

// anchorDay derives the calendar-day anchor for a jump. Full timestamps are
// shifted into the viewer's zone before the date is taken, matching the
// backend's local-day bucketing.
func anchorDay(ts string, tzOffset int) (string, error) {
	if _, err := time.Parse("2006-01-02", ts); err == nil {
		return ts, nil
	}
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return "", &InvalidTimestampError{Value: ts}
	}
	return t.In(time.FixedZone("", tzOffset*60)).Format("2006-01-02"), nil
}

// SetSelectedDay records which day the presentation layer is focused on.
// Pure navigation state, no network effect; scroll handlers use it to
// reflect position back into the day index.
func (s *Store) SetSelectedDay(day string) {
	s.mu.Lock()
	s.selectedDay = day
	s.mu.Unlock()
}

// ReceiveRealtimeEvent ingests one push message. Malformed or unrecognized
// payloads are dropped without surfacing an error, since push delivery is
// best-effort and unknown future kinds must not break the timeline. A
// processing_status payload only toggles the processing flag. run_started
// frames mark run boundaries for the grouped presentation and are skipped in
// this flattened window. Everything else is folded into its parent
// completion when attachable and merged as a top-level row otherwise;
// redelivering the same payload leaves the window unchanged.
func (s *Store) ReceiveRealtimeEvent(raw json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.agentID == "" {
		return
	}

	p, err := DecodePayload(raw)
	if err != nil {
		s.dropped.Add(1)
		s.logger.Debug("dropped realtime message", "error", err)
		return
	}

	switch p.Kind {
	case KindProcessingStatus:
		s.processingActive = *p.Active
	case KindRunStarted:
		// not a row in the flattened window
	default:
		ev := *p.Event
		if window, ok := Attach(s.events, ev); ok {
			s.events = window
			return
		}
		s.events = Merge(s.events, []Event{ev})
	}
}

// Snapshot returns a copy of the store's state for the presentation layer.
// The window slice is copied; events are immutable once published, so rows
// may be shared with earlier snapshots.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	events := make([]Event, len(s.events))
	copy(events, s.events)

	var tl *Timeline
	if s.timeline != nil {
		t := *s.timeline
		t.Buckets = make([]TimelineBucket, len(s.timeline.Buckets))
		copy(t.Buckets, s.timeline.Buckets)
		tl = &t
	}

	return State{
		AgentID:          s.agentID,
		Events:           events,
		NextCursor:       s.nextCursor,
		HasMore:          s.hasMore,
		Loading:          s.loading,
		Error:            s.errMsg,
		ProcessingActive: s.processingActive,
		Timeline:         tl,
		TimelineLoading:  s.timelineLoading,
		TimelineError:    s.timelineErr,
		SelectedDay:      s.selectedDay,
	}
}

// DroppedCount reports how many realtime messages were dropped at the
// decode boundary since the store was created.
func (s *Store) DroppedCount() int64 {
	return s.dropped.Load()
}

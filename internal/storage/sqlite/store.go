// Package sqlite provides a SQLite-backed EventStore for the dev backend.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/sablewing/agent-console/internal/storage"
	"github.com/sablewing/agent-console/internal/timeline"
)

// Store is a SQLite implementation of EventStore.
type Store struct {
	db *sql.DB
}

var _ storage.EventStore = (*Store)(nil)

// New opens or creates the database at dbPath.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS agent_events (
			agent_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			event_id TEXT NOT NULL,
			run_id TEXT,
			timestamp TEXT NOT NULL DEFAULT '',
			payload TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (agent_id, kind, event_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_agent_events_feed
			ON agent_events(agent_id, timestamp DESC, event_id DESC)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	return nil
}

// AppendEvent upserts ev into the agent's history by identity key.
func (s *Store) AppendEvent(ctx context.Context, agentID string, ev timeline.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	query := `INSERT INTO agent_events (agent_id, kind, event_id, run_id, timestamp, payload)
	          VALUES (?, ?, ?, ?, ?, ?)
	          ON CONFLICT(agent_id, kind, event_id) DO UPDATE SET
	            run_id=excluded.run_id, timestamp=excluded.timestamp, payload=excluded.payload`

	_, err = s.db.ExecContext(ctx, query,
		agentID, string(ev.Kind), ev.Key().ID, ev.RunID, ev.Timestamp, string(payload))
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}

	return nil
}

// ListEvents returns one newest-first page of the agent's history using
// keyset pagination over (timestamp, event_id, kind).
func (s *Store) ListEvents(ctx context.Context, q storage.ListQuery) (*storage.Page, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = timeline.DefaultPageLimit
	}

	query := `SELECT payload FROM agent_events WHERE agent_id = ?`
	args := []any{q.AgentID}

	if q.Day != "" {
		query += ` AND date(datetime(timestamp, ?)) = ?`
		args = append(args, fmt.Sprintf("%d minutes", q.TZOffset), q.Day)
	}

	if q.Cursor != "" {
		cursor, err := storage.DecodeCursor(q.Cursor)
		if err != nil {
			return nil, err
		}
		query += ` AND (timestamp, event_id, kind) < (?, ?, ?)`
		args = append(args, cursor.Timestamp, cursor.ID, string(cursor.Kind))
	}

	query += ` ORDER BY timestamp DESC, event_id DESC, kind DESC LIMIT ?`
	args = append(args, limit+1)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	events := []timeline.Event{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		var ev timeline.Event
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read events: %w", err)
	}

	page := &storage.Page{Events: events}
	if len(events) > limit {
		page.Events = events[:limit]
		page.HasMore = true
		page.NextCursor = storage.EncodeCursor(page.Events[limit-1])
	}
	return page, nil
}

// TimelineIndex summarizes the agent's most recent event-bearing days.
func (s *Store) TimelineIndex(ctx context.Context, agentID string, days, tzOffset int) (*timeline.Timeline, error) {
	if days <= 0 {
		days = timeline.DefaultTimelineDays
	}

	query := `SELECT date(datetime(timestamp, ?)) AS day, COUNT(*)
	          FROM agent_events WHERE agent_id = ?
	          GROUP BY day HAVING day IS NOT NULL
	          ORDER BY day DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, fmt.Sprintf("%d minutes", tzOffset), agentID, days)
	if err != nil {
		return nil, fmt.Errorf("failed to query timeline: %w", err)
	}
	defer rows.Close()

	tl := &timeline.Timeline{Buckets: []timeline.TimelineBucket{}, Days: days}
	for rows.Next() {
		var bucket timeline.TimelineBucket
		if err := rows.Scan(&bucket.Day, &bucket.Count); err != nil {
			return nil, fmt.Errorf("failed to scan timeline bucket: %w", err)
		}
		tl.Buckets = append(tl.Buckets, bucket)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read timeline: %w", err)
	}

	latestQuery := `SELECT COALESCE(MAX(timestamp), '') FROM agent_events WHERE agent_id = ?`
	if err := s.db.QueryRowContext(ctx, latestQuery, agentID).Scan(&tl.Latest); err != nil {
		return nil, fmt.Errorf("failed to query latest timestamp: %w", err)
	}

	return tl, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

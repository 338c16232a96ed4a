package devserver

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tiktoken-go/tokenizer"

	"github.com/sablewing/agent-console/internal/storage"
	"github.com/sablewing/agent-console/internal/timeline"
)

// timestampLayout keeps every generated timestamp at the same width so the
// feed's lexicographic ordering matches chronological order.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Blended per-token rates for the synthetic cost column.
const (
	inputTokenRate  = 2.5e-6
	outputTokenRate = 1e-5
)

// seedScript is one scripted agent run.
type seedScript struct {
	trigger  string
	model    string
	prompt   string
	reply    string
	toolName string
	toolArgs string
	toolOut  string
}

var seedScripts = []seedScript{
	{
		trigger:  "schedule",
		model:    "gpt-4o",
		prompt:   "Summarize yesterday's deploy failures and file issues for the flaky ones.",
		reply:    "Two deploys failed on the canary stage. I filed issues for the flaky smoke tests and linked the build logs.",
		toolName: "search_builds",
		toolArgs: `{"pipeline":"deploy","status":"failed","window":"24h"}`,
		toolOut:  `{"matches":2,"builds":["deploy-4812","deploy-4815"]}`,
	},
	{
		trigger:  "manual",
		model:    "gpt-4o-mini",
		prompt:   "Which services are still pinned to the old base image?",
		reply:    "Three services still build from base:1.18. The scheduler and billing workers migrated last week.",
		toolName: "list_images",
		toolArgs: `{"registry":"internal","tag":"base:1.18"}`,
		toolOut:  `{"services":["ingest","reports","webhooks"]}`,
	},
	{
		trigger:  "schedule",
		model:    "gpt-4o",
		prompt:   "Rotate the staging credentials that expire this week and confirm nothing broke.",
		reply:    "Rotated four credentials. Smoke checks passed on every dependent service, no alerts fired.",
		toolName: "rotate_credentials",
		toolArgs: `{"environment":"staging","expiring_within":"7d"}`,
		toolOut:  `{"rotated":4,"failures":0}`,
	},
}

// Seeder writes synthetic agent history so the console has something to
// browse against a fresh store.
type Seeder struct {
	store storage.EventStore
	codec tokenizer.Codec
	now   func() time.Time
}

// NewSeeder creates a seeder over store.
func NewSeeder(store storage.EventStore) (*Seeder, error) {
	codec, err := tokenizer.Get(tokenizer.O200kBase)
	if err != nil {
		return nil, fmt.Errorf("failed to get tokenizer encoding: %w", err)
	}
	return &Seeder{store: store, codec: codec, now: time.Now}, nil
}

// Seed writes days of scripted history for agentID, one run per day, and
// returns the number of events stored. The most recent day also gets an
// orphan tool call and a restart marker so those renderings have data.
func (s *Seeder) Seed(ctx context.Context, agentID string, days int) (int, error) {
	if days < 1 {
		days = 1
	}

	count := 0
	base := s.now().UTC()
	for day := 0; day < days; day++ {
		script := seedScripts[day%len(seedScripts)]
		runStart := base.AddDate(0, 0, -day).Add(-2 * time.Hour)

		events := s.scriptedRun(script, runStart, day%2 == 0)
		if day == 0 {
			events = append(events, edgeCaseEvents(runStart.Add(30*time.Minute))...)
		}

		for _, ev := range events {
			if err := s.store.AppendEvent(ctx, agentID, ev); err != nil {
				return count, fmt.Errorf("failed to seed event: %w", err)
			}
			count++
		}
	}
	return count, nil
}

// scriptedRun expands one script into the stored form of a finished run,
// with the tool call already nested under its completion.
func (s *Seeder) scriptedRun(script seedScript, start time.Time, withStep bool) []timeline.Event {
	runID := shortID("run")
	cmpID := shortID("cmp")

	at := func(offset time.Duration) string {
		return start.Add(offset).UTC().Format(timestampLayout)
	}

	inTokens := countTokens(s.codec, script.prompt)
	outTokens := countTokens(s.codec, script.reply)

	toolCall := timeline.Event{
		Kind:         timeline.KindToolCall,
		ID:           shortID("tc"),
		RunID:        runID,
		Timestamp:    at(5 * time.Second),
		CompletionID: cmpID,
		Name:         script.toolName,
		Arguments:    json.RawMessage(script.toolArgs),
		Result:       script.toolOut,
		Status:       "success",
	}

	events := []timeline.Event{
		{Kind: timeline.KindRunStarted, RunID: runID, Timestamp: at(0), Trigger: script.trigger},
		{Kind: timeline.KindMessage, ID: shortID("msg"), RunID: runID, Timestamp: at(time.Second), Role: "user", Content: script.prompt},
		{
			Kind:         timeline.KindCompletion,
			ID:           cmpID,
			RunID:        runID,
			Timestamp:    at(3 * time.Second),
			Model:        script.model,
			Status:       "complete",
			Content:      script.reply,
			InputTokens:  inTokens,
			OutputTokens: outTokens,
			CostUSD:      costUSD(inTokens, outTokens),
			ToolCalls:    []timeline.Event{toolCall},
		},
		{Kind: timeline.KindMessage, ID: shortID("msg"), RunID: runID, Timestamp: at(12 * time.Second), Role: "assistant", Content: script.reply},
	}

	if withStep {
		events = append(events, timeline.Event{
			Kind:      timeline.KindStep,
			ID:        shortID("stp"),
			RunID:     runID,
			Timestamp: at(2 * time.Second),
			Content:   "Collect the inputs before drafting a summary",
		})
	}
	return events
}

// edgeCaseEvents returns an orphan tool call whose parent completion is not
// in the store, plus a restart marker.
func edgeCaseEvents(start time.Time) []timeline.Event {
	at := func(offset time.Duration) string {
		return start.Add(offset).UTC().Format(timestampLayout)
	}
	return []timeline.Event{
		{
			Kind:         timeline.KindToolCall,
			ID:           shortID("tc"),
			Timestamp:    at(0),
			CompletionID: shortID("cmp"),
			Name:         "fetch_logs",
			Arguments:    json.RawMessage(`{"service":"scheduler","lines":200}`),
			Status:       "success",
		},
		{
			Kind:      timeline.KindSystemMessage,
			ID:        shortID("sys"),
			Timestamp: at(time.Minute),
			Content:   "Agent runtime restarted",
		},
	}
}

func shortID(prefix string) string {
	return prefix + "_" + uuid.NewString()[:8]
}

func countTokens(codec tokenizer.Codec, text string) int64 {
	ids, _, err := codec.Encode(text)
	if err != nil {
		return 0
	}
	return int64(len(ids))
}

func costUSD(in, out int64) float64 {
	return float64(in)*inputTokenRate + float64(out)*outputTokenRate
}

package devserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/tiktoken-go/tokenizer"
	"golang.org/x/sync/errgroup"

	"github.com/sablewing/agent-console/internal/storage"
	"github.com/sablewing/agent-console/internal/timeline"
)

// Simulator replays scripted runs against the store and hub, pacing frames
// out the way a live platform would.
type Simulator struct {
	store  storage.EventStore
	hub    *Hub
	logger *slog.Logger
	codec  tokenizer.Codec

	interval time.Duration
	pace     time.Duration
}

// NewSimulator creates a simulator that starts one run per agent every
// interval.
func NewSimulator(store storage.EventStore, hub *Hub, logger *slog.Logger, interval time.Duration) (*Simulator, error) {
	codec, err := tokenizer.Get(tokenizer.O200kBase)
	if err != nil {
		return nil, fmt.Errorf("failed to get tokenizer encoding: %w", err)
	}
	return &Simulator{
		store:    store,
		hub:      hub,
		logger:   logger,
		codec:    codec,
		interval: interval,
		pace:     400 * time.Millisecond,
	}, nil
}

// Run drives scripted runs for every agent until ctx is cancelled.
func (s *Simulator) Run(ctx context.Context, agentIDs []string) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, agentID := range agentIDs {
		g.Go(func() error {
			return s.loop(ctx, agentID)
		})
	}
	return g.Wait()
}

func (s *Simulator) loop(ctx context.Context, agentID string) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for seq := 0; ; seq++ {
		if err := s.emitRun(ctx, agentID, seq); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// emitRun stores and broadcasts one scripted run frame by frame. The tool
// call goes out as its own frame but is persisted nested under its parent
// completion, matching the platform's flattened feed.
func (s *Simulator) emitRun(ctx context.Context, agentID string, seq int) error {
	script := seedScripts[seq%len(seedScripts)]
	runID := shortID("run")
	cmpID := shortID("cmp")

	now := func() string { return time.Now().UTC().Format(timestampLayout) }

	s.hub.SetProcessing(agentID, true)
	defer s.hub.SetProcessing(agentID, false)

	if err := s.emit(ctx, agentID, timeline.Event{
		Kind:      timeline.KindRunStarted,
		RunID:     runID,
		Timestamp: now(),
		Trigger:   script.trigger,
	}); err != nil {
		return err
	}

	if err := s.emit(ctx, agentID, timeline.Event{
		Kind:      timeline.KindMessage,
		ID:        shortID("msg"),
		RunID:     runID,
		Timestamp: now(),
		Role:      "user",
		Content:   script.prompt,
	}); err != nil {
		return err
	}

	completion := timeline.Event{
		Kind:      timeline.KindCompletion,
		ID:        cmpID,
		RunID:     runID,
		Timestamp: now(),
		Model:     script.model,
		Status:    "in_progress",
	}
	if err := s.emit(ctx, agentID, completion); err != nil {
		return err
	}

	toolCall := timeline.Event{
		Kind:         timeline.KindToolCall,
		ID:           shortID("tc"),
		RunID:        runID,
		Timestamp:    now(),
		CompletionID: cmpID,
		Name:         script.toolName,
		Arguments:    json.RawMessage(script.toolArgs),
		Result:       script.toolOut,
		Status:       "success",
	}
	completion.ToolCalls = []timeline.Event{toolCall}
	if err := s.store.AppendEvent(ctx, agentID, completion); err != nil {
		return err
	}
	if err := s.broadcast(ctx, agentID, toolCall); err != nil {
		return err
	}

	inTokens := countTokens(s.codec, script.prompt)
	outTokens := countTokens(s.codec, script.reply)
	completion.Status = "complete"
	completion.Content = script.reply
	completion.InputTokens = inTokens
	completion.OutputTokens = outTokens
	completion.CostUSD = costUSD(inTokens, outTokens)
	if err := s.emit(ctx, agentID, completion); err != nil {
		return err
	}

	if err := s.emit(ctx, agentID, timeline.Event{
		Kind:      timeline.KindMessage,
		ID:        shortID("msg"),
		RunID:     runID,
		Timestamp: now(),
		Role:      "assistant",
		Content:   script.reply,
	}); err != nil {
		return err
	}

	s.logger.Debug("simulated run complete",
		slog.String("agent_id", agentID),
		slog.String("run_id", runID),
	)
	return nil
}

func (s *Simulator) emit(ctx context.Context, agentID string, ev timeline.Event) error {
	if err := s.store.AppendEvent(ctx, agentID, ev); err != nil {
		return err
	}
	return s.broadcast(ctx, agentID, ev)
}

func (s *Simulator) broadcast(ctx context.Context, agentID string, ev timeline.Event) error {
	frame, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	s.hub.Publish(agentID, frame)
	return s.sleep(ctx)
}

func (s *Simulator) sleep(ctx context.Context) error {
	if s.pace <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.pace):
		return nil
	}
}

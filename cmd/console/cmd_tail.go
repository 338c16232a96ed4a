package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/sablewing/agent-console/internal/config"
	"github.com/sablewing/agent-console/internal/realtime"
	"github.com/sablewing/agent-console/internal/timeline"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(tailCmd)
	tailCmd.Flags().String("from", "", "anchor the window at this day or RFC 3339 timestamp before following")
}

var tailCmd = &cobra.Command{
	Use:   "tail <agent-id>",
	Short: "Follow an agent's timeline live",
	Long: `Follow an agent's timeline live.

Tail seeds its window from recent history, prints it oldest first, then
subscribes to the realtime stream and applies each push through the same
window. A row that changes after the fact, such as a completion picking up
a tool call or flipping to complete, is printed again in its new form.`,
	Args: cobra.ExactArgs(1),
	RunE: runTail,
}

func runTail(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := setupLogging(cfg, os.Stderr)
	agentID := args[0]
	from, _ := cmd.Flags().GetString("from")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := timeline.NewStore(newHistoryClient(cfg),
		timeline.WithLogger(logger),
		timeline.WithPageLimit(cfg.Console.PageLimit),
		timeline.WithTimelineDays(cfg.Console.TimelineDays),
	)

	if err := store.Initialize(ctx, agentID); err != nil {
		return err
	}
	if from != "" {
		if err := store.JumpToTime(ctx, from); err != nil {
			return err
		}
	}

	snap := store.Snapshot()
	if snap.Timeline != nil && len(snap.Timeline.Buckets) > 0 {
		fmt.Printf("%d of the last %d days have events, latest %s\n\n",
			len(snap.Timeline.Buckets), snap.Timeline.Days, clockTime(snap.Timeline.Latest))
	}

	printed := make(map[timeline.Key]string)
	printWindow(os.Stdout, snap.Events, printed)
	processing := snap.ProcessingActive
	if processing {
		fmt.Println("· agent processing")
	}

	var feedOpts []realtime.Option
	if cfg.Console.APIKey != "" {
		feedOpts = append(feedOpts, realtime.WithAPIKey(cfg.Console.APIKey))
	}
	feed := realtime.NewFeed(cfg.Console.BaseURL, feedOpts...)
	msgs, err := feed.Subscribe(ctx, agentID)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	fmt.Println("--- following, ctrl-c to stop ---")
	for msg := range msgs {
		if msg.Err != nil {
			if errors.Is(msg.Err, context.Canceled) {
				break
			}
			return fmt.Errorf("stream: %w", msg.Err)
		}
		store.ReceiveRealtimeEvent(msg.Data)

		snap = store.Snapshot()
		printWindow(os.Stdout, snap.Events, printed)
		if snap.ProcessingActive != processing {
			processing = snap.ProcessingActive
			if processing {
				fmt.Println("· agent processing")
			} else {
				fmt.Println("· agent idle")
			}
		}
	}

	if n := store.DroppedCount(); n > 0 {
		logger.Warn("dropped malformed realtime messages", slog.Int64("count", n))
	}
	return nil
}

// printWindow walks the window oldest first and prints every row whose
// rendered line differs from the last one printed for that identity. New
// rows appear once; rows that changed, such as a completion that picked up
// a nested tool call, are printed again in their updated form.
func printWindow(w io.Writer, events []timeline.Event, printed map[timeline.Key]string) {
	for i := len(events) - 1; i >= 0; i-- {
		ev := events[i]
		line := tailLine(ev)
		if printed[ev.Key()] == line {
			continue
		}
		printed[ev.Key()] = line
		fmt.Fprintln(w, line)
	}
}

func tailLine(ev timeline.Event) string {
	return fmt.Sprintf("%s  %-14s  %-12s  %s", clockTime(ev.Timestamp), ev.Kind, ev.Key().ID, eventDetail(ev))
}

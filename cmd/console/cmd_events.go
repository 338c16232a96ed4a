package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/sablewing/agent-console/internal/config"
	"github.com/sablewing/agent-console/internal/timeline"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.Flags().Int("limit", 0, "page size (defaults to the configured page limit)")
	eventsCmd.Flags().Int("pages", 0, "extra older pages to pull after the first")
	eventsCmd.Flags().String("day", "", "anchor the window at one local day (2006-01-02)")
}

var eventsCmd = &cobra.Command{
	Use:   "events <agent-id>",
	Short: "Print an agent's event window, newest first",
	Args:  cobra.ExactArgs(1),
	RunE:  runEvents,
}

func runEvents(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := setupLogging(cfg, os.Stderr)
	agentID := args[0]
	limit, _ := cmd.Flags().GetInt("limit")
	pages, _ := cmd.Flags().GetInt("pages")
	day, _ := cmd.Flags().GetString("day")
	if limit <= 0 {
		limit = cfg.Console.PageLimit
	}

	store := timeline.NewStore(newHistoryClient(cfg),
		timeline.WithLogger(logger),
		timeline.WithPageLimit(limit),
		timeline.WithTimelineDays(cfg.Console.TimelineDays),
	)

	ctx := cmd.Context()
	if err := store.Initialize(ctx, agentID); err != nil {
		return err
	}
	if day != "" {
		if err := store.JumpToTime(ctx, day); err != nil {
			return err
		}
	}
	for i := 0; i < pages; i++ {
		if err := store.LoadMore(ctx); err != nil {
			return err
		}
		if !store.Snapshot().HasMore {
			break
		}
	}

	snap := store.Snapshot()
	if len(snap.Events) == 0 {
		fmt.Println("No events found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tKIND\tID\tDETAIL")
	for _, ev := range snap.Events {
		writeEventRow(w, ev, false)
		for _, tc := range ev.ToolCalls {
			writeEventRow(w, tc, true)
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if snap.ProcessingActive {
		fmt.Println("\nAgent is processing.")
	}
	if snap.HasMore {
		fmt.Printf("\nMore history available: rerun with --pages %d\n", pages+1)
	}
	return nil
}

func writeEventRow(w io.Writer, ev timeline.Event, nested bool) {
	kind := string(ev.Kind)
	if nested {
		kind = "  " + kind
	}
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", clockTime(ev.Timestamp), kind, ev.Key().ID, eventDetail(ev))
}

// eventDetail renders the kind-specific column of a timeline row.
func eventDetail(ev timeline.Event) string {
	switch ev.Kind {
	case timeline.KindCompletion:
		parts := make([]string, 0, 4)
		if ev.Model != "" {
			parts = append(parts, ev.Model)
		}
		if ev.Status != "" {
			parts = append(parts, ev.Status)
		}
		if ev.InputTokens > 0 || ev.OutputTokens > 0 {
			parts = append(parts, fmt.Sprintf("%d in / %d out", ev.InputTokens, ev.OutputTokens))
		}
		if ev.CostUSD > 0 {
			parts = append(parts, fmt.Sprintf("$%.4f", ev.CostUSD))
		}
		if ev.Error != "" {
			parts = append(parts, "error: "+truncate(ev.Error, 48))
		}
		if len(ev.ToolCalls) > 0 {
			names := make([]string, 0, len(ev.ToolCalls))
			for _, tc := range ev.ToolCalls {
				names = append(names, tc.Name)
			}
			parts = append(parts, "tools: "+strings.Join(names, ", "))
		}
		return strings.Join(parts, "  ")
	case timeline.KindToolCall:
		detail := ev.Name
		if ev.Status != "" {
			detail += " " + ev.Status
		}
		if ev.Result != "" {
			detail += "  " + truncate(ev.Result, 60)
		}
		return detail
	case timeline.KindMessage:
		if ev.Role != "" {
			return ev.Role + ": " + truncate(ev.Content, 72)
		}
		return truncate(ev.Content, 72)
	case timeline.KindSystemMessage:
		return truncate(ev.Content, 72)
	case timeline.KindRunStarted:
		if ev.Trigger != "" {
			return "trigger: " + ev.Trigger
		}
		return "run started"
	case timeline.KindStep:
		return truncate(ev.Content, 72)
	default:
		return ""
	}
}

// clockTime renders a wire timestamp in the viewer's local zone. Events
// whose time is not yet resolved render as pending.
func clockTime(ts string) string {
	if ts == "" {
		return "pending"
	}
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ts
	}
	return t.Local().Format("Jan 02 15:04:05")
}

func truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/sablewing/agent-console/internal/config"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(timelineCmd)
	timelineCmd.Flags().Int("days", 0, "how many day buckets to fetch (defaults to the configured window)")
}

var timelineCmd = &cobra.Command{
	Use:   "timeline <agent-id>",
	Short: "Show which days hold events for an agent",
	Args:  cobra.ExactArgs(1),
	RunE:  runTimeline,
}

func runTimeline(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	agentID := args[0]
	days, _ := cmd.Flags().GetInt("days")
	if days <= 0 {
		days = cfg.Console.TimelineDays
	}

	client := newHistoryClient(cfg)
	idx, err := client.LoadTimeline(cmd.Context(), agentID, days)
	if err != nil {
		return fmt.Errorf("load timeline: %w", err)
	}

	if len(idx.Buckets) == 0 {
		fmt.Println("No events found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DAY\tEVENTS")
	for _, b := range idx.Buckets {
		fmt.Fprintf(w, "%s\t%d\n", b.Day, b.Count)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if idx.Latest != "" {
		fmt.Printf("\nLatest event: %s\n", clockTime(idx.Latest))
	}
	return nil
}

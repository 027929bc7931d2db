package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/arihq/ari/internal/config"
	"github.com/arihq/ari/internal/memory"
)

var historyLimit int
var historyShowRun string

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse past runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		path := cfg.Memory.Path
		if path == "" {
			path = memory.DefaultPath()
		}
		store, err := memory.Open(path)
		if err != nil {
			return fmt.Errorf("open history store: %w", err)
		}
		defer store.Close()

		if historyShowRun != "" {
			return printRun(store, historyShowRun)
		}
		return printRecentRuns(store, historyLimit)
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of runs to show")
	historyCmd.Flags().StringVar(&historyShowRun, "run", "", "Show all messages of one run id")
}

func printRecentRuns(store *memory.Store, limit int) error {
	runs, err := store.RecentRuns(limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no recorded runs")
		return nil
	}

	statusColor := map[string]*color.Color{
		"done":   color.New(color.FgGreen),
		"error":  color.New(color.FgRed),
		"active": color.New(color.FgYellow),
	}
	for _, r := range runs {
		c, ok := statusColor[r.Status]
		if !ok {
			c = color.New(color.Faint)
		}
		fmt.Printf("%s  %s  %s  %s\n",
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			c.Sprintf("%-6s", r.Status),
			color.New(color.Faint).Sprint(r.ID[:8]),
			truncateInput(r.Input, 60),
		)
	}
	return nil
}

func printRun(store *memory.Store, prefix string) error {
	runs, err := store.RecentRuns(1000)
	if err != nil {
		return err
	}
	for _, r := range runs {
		if len(prefix) > len(r.ID) || r.ID[:len(prefix)] != prefix {
			continue
		}
		msgs, err := store.Messages(r.ID)
		if err != nil {
			return err
		}
		agentStyle := color.New(color.FgCyan, color.Bold)
		for _, m := range msgs {
			agentStyle.Printf("%s:\n", m.Agent)
			fmt.Println(m.Content)
			fmt.Println()
		}
		return nil
	}
	return fmt.Errorf("no run matching id %q", prefix)
}

func truncateInput(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}

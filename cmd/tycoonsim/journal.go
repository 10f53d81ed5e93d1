package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/talgya/tycoon-sim/internal/config"
	"github.com/talgya/tycoon-sim/internal/engine"
	"github.com/talgya/tycoon-sim/internal/journal"
)

func newJournalCmd() *cobra.Command {
	var (
		year     uint64
		category string
		limit    int
	)
	cmd := &cobra.Command{
		Use:   "journal [file]",
		Short: "Print events from a compressed yearly journal",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			} else {
				cfg, err := config.Load(configPath)
				if err != nil {
					return err
				}
				if cfg.Paths.Journal == "" {
					return fmt.Errorf("journal disabled in config; pass a file")
				}
				path = journal.NewWriter(cfg.Paths.Journal, "events").Path(year)
			}
			return printJournal(path, category, limit)
		},
	}
	cmd.Flags().Uint64VarP(&year, "year", "y", 1, "Sim year to read when no file is given")
	cmd.Flags().StringVar(&category, "category", "", "Only show events of this category")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show only the last N events")
	return cmd
}

func printJournal(path, category string, limit int) error {
	entries, err := journal.ReadFile(path)
	if err != nil {
		return err
	}

	var events []engine.Event
	for _, e := range entries {
		var ev engine.Event
		if err := json.Unmarshal(e.Data, &ev); err != nil {
			return fmt.Errorf("tick %d: %w", e.Tick, err)
		}
		if category != "" && ev.Category != category {
			continue
		}
		events = append(events, ev)
	}
	if limit > 0 && len(events) > limit {
		events = events[len(events)-limit:]
	}

	color.New(color.FgCyan, color.Bold).Printf("📜 %s: %d events\n", path, len(events))
	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Tick", "Date", "Category", "Description"}),
	)
	for _, ev := range events {
		_ = table.Append([]string{
			strconv.FormatUint(ev.Tick, 10),
			engine.SimDate(ev.Tick),
			ev.Category,
			ev.Description,
		})
	}
	return table.Render()
}

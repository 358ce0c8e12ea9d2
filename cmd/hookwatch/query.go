package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:     "stats",
	Short:   "Show entry counts, live state and the last 24 hours of activity",
	GroupID: "query",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		stats, err := apiClient.Stats(context.Background())
		if err != nil {
			return fmt.Errorf("fetching stats: %w", err)
		}
		if jsonOutput {
			printJSON(stats)
		} else {
			printStatsTable(stats)
		}
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:     "search <query>",
	Short:   "Search entry content (case-insensitive substring)",
	GroupID: "query",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		entries, err := apiClient.Search(context.Background(), query)
		if err != nil {
			return fmt.Errorf("searching entries: %w", err)
		}
		if jsonOutput {
			printJSON(entries)
		} else {
			printEntryTable(entries)
		}
		return nil
	},
}

var sourcesCmd = &cobra.Command{
	Use:     "sources",
	Short:   "List webhook sources and when they were last heard from",
	GroupID: "query",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		roster, err := apiClient.Sources(context.Background())
		if err != nil {
			return fmt.Errorf("fetching sources: %w", err)
		}
		if jsonOutput {
			printJSON(roster)
		} else {
			printRosterTable(roster)
		}
		return nil
	},
}

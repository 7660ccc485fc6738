package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:     "stats",
	Short:   "Show facility occupancy and revenue",
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		stats, err := parkdClient.Stats(context.Background())
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		if jsonOutput {
			printJSON(stats)
			return nil
		}

		fmt.Println("Facility Status")
		fmt.Printf("  Parked:          %d / %d\n", stats.Parked, stats.Capacity)
		fmt.Printf("  Available:       %d\n", stats.AvailableSpaces)
		fmt.Printf("  Unpaid Sessions: %d\n", stats.UnpaidSessions)
		fmt.Printf("  Revenue Today:   %s\n", formatCents(stats.TodayRevenueCents))
		return nil
	},
}

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var blockCmd = &cobra.Command{
	Use:     "block <plate>",
	Short:   "Toggle a plate on or off the blocklist",
	GroupID: "sessions",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := parkdClient.ToggleBlock(context.Background(), args[0], actor)
		if err != nil {
			return fmt.Errorf("toggling blocklist: %w", err)
		}

		if jsonOutput {
			printJSON(res)
			return nil
		}

		if res.Blocked {
			fmt.Printf("Blocked %s\n", res.Plate)
		} else {
			fmt.Printf("Unblocked %s\n", res.Plate)
		}
		return nil
	},
}

var blockedCmd = &cobra.Command{
	Use:     "blocked",
	Aliases: []string{"blocklist"},
	Short:   "List blocked plates",
	GroupID: "sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		plates, err := parkdClient.ListBlocked(context.Background())
		if err != nil {
			return fmt.Errorf("listing blocklist: %w", err)
		}

		if jsonOutput {
			printJSON(plates)
			return nil
		}

		if len(plates) == 0 {
			fmt.Println("No blocked plates")
			return nil
		}
		for _, p := range plates {
			fmt.Println(p)
		}
		return nil
	},
}

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var entryCmd = &cobra.Command{
	Use:     "entry <plate>",
	Short:   "Request entry for a vehicle",
	GroupID: "lifecycle",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := parkdClient.RequestEntry(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("requesting entry: %w", err)
		}

		if jsonOutput {
			printJSON(res)
			return nil
		}

		if !res.Admitted {
			fmt.Printf("Entry denied: %s\n", res.Reason)
			return fmt.Errorf("entry denied (%s)", res.Reason)
		}

		fmt.Println("Admitted, entry gate is opening")
		printSessionTable(res.Session)
		return nil
	},
}

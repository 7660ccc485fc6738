package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:     "show <session-id>",
	Short:   "Show details and audit trail for a session",
	GroupID: "sessions",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		id := args[0]

		session, err := parkdClient.GetSession(ctx, id)
		if err != nil {
			return fmt.Errorf("getting session %s: %w", id, err)
		}

		events, err := parkdClient.GetSessionEvents(ctx, id)
		if err != nil {
			return fmt.Errorf("getting events for %s: %w", id, err)
		}

		if jsonOutput {
			printJSON(map[string]any{
				"session": session,
				"events":  events,
			})
			return nil
		}

		printSessionTable(session)
		if len(events) > 0 {
			fmt.Println()
			fmt.Println("Events:")
			printEventListTable(events)
		}
		return nil
	},
}

package main

import (
	"context"
	"fmt"

	"github.com/kerbside/parkd/internal/client"
	"github.com/spf13/cobra"
)

var sessionsCmd = &cobra.Command{
	Use:     "sessions",
	Short:   "List parking sessions",
	GroupID: "sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		openOnly, _ := cmd.Flags().GetBool("open")
		closedOnly, _ := cmd.Flags().GetBool("closed")
		unpaid, _ := cmd.Flags().GetBool("unpaid")
		plate, _ := cmd.Flags().GetString("plate")
		search, _ := cmd.Flags().GetString("search")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		if openOnly && closedOnly {
			return fmt.Errorf("--open and --closed are mutually exclusive")
		}

		req := &client.ListSessionsRequest{
			Unpaid: unpaid,
			Plate:  plate,
			Search: search,
			Limit:  limit,
			Offset: offset,
		}
		if openOnly {
			v := true
			req.Open = &v
		}
		if closedOnly {
			v := false
			req.Open = &v
		}

		resp, err := parkdClient.ListSessions(context.Background(), req)
		if err != nil {
			return fmt.Errorf("listing sessions: %w", err)
		}

		if jsonOutput {
			printJSON(resp.Sessions)
		} else {
			printSessionListTable(resp.Sessions, resp.Total)
		}
		return nil
	},
}

func init() {
	sessionsCmd.Flags().Bool("open", false, "only sessions still in the facility")
	sessionsCmd.Flags().Bool("closed", false, "only completed sessions")
	sessionsCmd.Flags().Bool("unpaid", false, "only open sessions with no payment")
	sessionsCmd.Flags().String("plate", "", "filter by exact plate")
	sessionsCmd.Flags().String("search", "", "substring match on plate")
	sessionsCmd.Flags().Int("limit", 20, "maximum number of sessions to return")
	sessionsCmd.Flags().Int("offset", 0, "offset for pagination")
}

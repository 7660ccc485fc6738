package main

import (
	"context"
	"fmt"

	"github.com/kerbside/parkd/internal/facility"
	"github.com/spf13/cobra"
)

var exitCmd = &cobra.Command{
	Use:     "exit <plate>",
	Short:   "Request exit for a vehicle",
	GroupID: "lifecycle",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := parkdClient.RequestExit(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("requesting exit: %w", err)
		}

		if jsonOutput {
			printJSON(res)
			return nil
		}

		switch res.Status {
		case facility.StatusCompleted:
			fmt.Println("Exit complete, gate is opening")
			printSessionTable(res.Session)
		case facility.StatusPaymentRequired:
			fmt.Printf("Payment required: %s\n", formatCents(res.FeeCents))
			fmt.Printf("Pay with: pd pay %s\n", res.Session.ID)
		case facility.StatusDenied:
			fmt.Printf("Exit denied: %s\n", res.Reason)
			return fmt.Errorf("exit denied (%s)", res.Reason)
		default:
			fmt.Printf("Exit status: %s\n", res.Status)
		}
		return nil
	},
}

package main

import (
	"context"
	"fmt"

	"github.com/kerbside/parkd/internal/facility"
	"github.com/spf13/cobra"
)

var payCmd = &cobra.Command{
	Use:     "pay <session-id>",
	Short:   "Settle payment for a session",
	GroupID: "lifecycle",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := parkdClient.SettlePayment(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("settling payment: %w", err)
		}

		if jsonOutput {
			printJSON(res)
			return nil
		}

		switch res.Status {
		case facility.StatusCompleted:
			fmt.Printf("Paid %s, exit gate is opening\n", formatCents(res.AmountCents))
			printSessionTable(res.Session)
		case facility.StatusAlreadyPaid:
			fmt.Println("Session already paid")
			printSessionTable(res.Session)
		case facility.StatusSettledExitPending:
			fmt.Printf("Paid %s, but the exit could not be completed yet.\n", formatCents(res.AmountCents))
			fmt.Println("Drive to the exit gate and request exit again.")
		default:
			fmt.Printf("Payment status: %s\n", res.Status)
		}
		return nil
	},
}

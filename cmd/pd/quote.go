package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var quoteCmd = &cobra.Command{
	Use:     "quote <session-id>",
	Short:   "Quote the fee owed for a session",
	GroupID: "lifecycle",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		atFlag, _ := cmd.Flags().GetString("at")

		var at *time.Time
		if atFlag != "" {
			t, err := time.Parse(time.RFC3339, atFlag)
			if err != nil {
				return fmt.Errorf("invalid --at value %q: %w", atFlag, err)
			}
			at = &t
		}

		quote, err := parkdClient.QuoteFee(context.Background(), args[0], at)
		if err != nil {
			return fmt.Errorf("quoting fee: %w", err)
		}

		if jsonOutput {
			printJSON(quote)
			return nil
		}

		fmt.Printf("Fee: %s\n", formatCents(quote.AmountCents))
		if quote.Session != nil {
			fmt.Printf("Parked since: %s (%s)\n",
				quote.Session.EntryTime.Local().Format(timeFormat),
				time.Since(quote.Session.EntryTime).Round(time.Minute),
			)
		}
		return nil
	},
}

func init() {
	quoteCmd.Flags().String("at", "", "quote as of this RFC3339 time instead of now")
}

package main

import (
	"context"
	"fmt"

	"github.com/kerbside/parkd/internal/model"
	"github.com/spf13/cobra"
)

var gateCmd = &cobra.Command{
	Use:     "gate",
	Aliases: []string{"gates"},
	Short:   "Inspect and operate the entry and exit gates",
	GroupID: "gates",
}

func parseGateID(arg string) (model.GateID, error) {
	id := model.GateID(arg)
	if !id.IsValid() {
		return "", fmt.Errorf("unknown gate %q (must be entry or exit)", arg)
	}
	return id, nil
}

var gateListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the state of both gates",
	RunE: func(cmd *cobra.Command, args []string) error {
		gates, err := parkdClient.ListGates(context.Background())
		if err != nil {
			return fmt.Errorf("listing gates: %w", err)
		}

		if jsonOutput {
			printJSON(gates)
		} else {
			printGateListTable(gates)
		}
		return nil
	},
}

var gateOpenCmd = &cobra.Command{
	Use:   "open <entry|exit>",
	Short: "Manually open a gate (attendant override)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseGateID(args[0])
		if err != nil {
			return err
		}
		plate, _ := cmd.Flags().GetString("plate")

		res, err := parkdClient.OpenGate(context.Background(), id, plate)
		if err != nil {
			return fmt.Errorf("opening gate: %w", err)
		}

		if jsonOutput {
			printJSON(res)
			return nil
		}

		if !res.Opened {
			fmt.Printf("Refused: %s\n", res.Reason)
			return fmt.Errorf("gate open refused (%s)", res.Reason)
		}
		printGateStatus(*res.Gate)
		return nil
	},
}

var gateCloseCmd = &cobra.Command{
	Use:   "close <entry|exit>",
	Short: "Close a gate immediately",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseGateID(args[0])
		if err != nil {
			return err
		}

		status, err := parkdClient.CloseGate(context.Background(), id)
		if err != nil {
			return fmt.Errorf("closing gate: %w", err)
		}

		if jsonOutput {
			printJSON(status)
		} else {
			printGateStatus(*status)
		}
		return nil
	},
}

var gateHoldCmd = &cobra.Command{
	Use:   "hold <entry|exit>",
	Short: "Hold a gate open (suspends the auto-close timer)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseGateID(args[0])
		if err != nil {
			return err
		}
		release, _ := cmd.Flags().GetBool("release")

		status, err := parkdClient.HoldGate(context.Background(), id, !release)
		if err != nil {
			return fmt.Errorf("setting gate hold: %w", err)
		}

		if jsonOutput {
			printJSON(status)
			return nil
		}

		if release {
			fmt.Printf("Hold released on %s gate\n", id)
		} else {
			fmt.Printf("Holding %s gate open\n", id)
		}
		printGateStatus(*status)
		return nil
	},
}

func init() {
	gateOpenCmd.Flags().String("plate", "", "plate at the gate, used for blocklist and payment checks")
	gateHoldCmd.Flags().Bool("release", false, "release an existing hold instead of setting one")

	gateCmd.AddCommand(gateListCmd)
	gateCmd.AddCommand(gateOpenCmd)
	gateCmd.AddCommand(gateCloseCmd)
	gateCmd.AddCommand(gateHoldCmd)
}

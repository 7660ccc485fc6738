package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/kerbside/parkd/internal/model"
	"github.com/kerbside/parkd/internal/ui"
)

const timeFormat = "2006-01-02 15:04:05"

// formatCents renders an amount in cents as dollars, e.g. 1250 -> "$12.50".
func formatCents(cents int64) string {
	return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling JSON: %v\n", err)
		return
	}
	fmt.Println(string(data))
}

func sessionStatus(s *model.Session) string {
	switch {
	case s.ExitTime != nil:
		return "closed"
	case s.Paid:
		return "paid"
	default:
		return "open"
	}
}

func printSessionTable(s *model.Session) {
	fmt.Printf("ID:         %s\n", s.ID)
	fmt.Printf("Plate:      %s\n", s.Plate)
	fmt.Printf("Status:     %s\n", sessionStatus(s))
	fmt.Printf("Entered At: %s\n", s.EntryTime.Local().Format(timeFormat))
	if s.ExitTime != nil {
		fmt.Printf("Exited At:  %s\n", s.ExitTime.Local().Format(timeFormat))
		fmt.Printf("Duration:   %s\n", s.ExitTime.Sub(s.EntryTime).Round(time.Minute))
	} else {
		fmt.Printf("Duration:   %s (so far)\n", time.Since(s.EntryTime).Round(time.Minute))
	}
	if s.AmountCents != nil {
		fmt.Printf("Amount:     %s\n", formatCents(*s.AmountCents))
	}
	if s.PaidAt != nil {
		fmt.Printf("Paid At:    %s\n", s.PaidAt.Local().Format(timeFormat))
	}
	if s.BlockedAtEntry {
		fmt.Printf("Blocked:    yes (at entry)\n")
	}
}

func printSessionListTable(sessions []*model.Session, total int) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPLATE\tSTATUS\tENTERED\tEXITED\tAMOUNT")
	for _, s := range sessions {
		exited := "-"
		if s.ExitTime != nil {
			exited = s.ExitTime.Local().Format(timeFormat)
		}
		amount := "-"
		if s.AmountCents != nil {
			amount = formatCents(*s.AmountCents)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			s.ID,
			s.Plate,
			sessionStatus(s),
			s.EntryTime.Local().Format(timeFormat),
			exited,
			amount,
		)
	}
	w.Flush()
	fmt.Printf("\n%d sessions (%d total)\n", len(sessions), total)
}

func printGateListTable(gates []model.GateStatus) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "GATE\tSTATE\tCLOSES AT")
	for _, g := range gates {
		closes := "-"
		if g.ClosesAt != nil {
			closes = g.ClosesAt.Local().Format(timeFormat)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", g.ID, ui.RenderGateState(string(g.State)), closes)
	}
	w.Flush()
}

func printGateStatus(g model.GateStatus) {
	fmt.Printf("Gate:      %s\n", g.ID)
	fmt.Printf("State:     %s\n", ui.RenderGateState(string(g.State)))
	if g.ClosesAt != nil {
		fmt.Printf("Closes At: %s\n", g.ClosesAt.Local().Format(timeFormat))
	}
}

func printEventListTable(events []*model.Event) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tTOPIC\tACTOR")
	for _, e := range events {
		fmt.Fprintf(w, "%s\t%s\t%s\n",
			e.CreatedAt.Local().Format(timeFormat),
			e.Topic,
			e.Actor,
		)
	}
	w.Flush()
}

package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newRiskCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "risk",
		Short: "Evaluate hijacking risk at the subject's home from stored incidents",
		RunE: func(cmd *cobra.Command, _ []string) error {
			orch, err := ctx.orchestrator()
			if err != nil {
				return err
			}
			r, err := orch.HijackingRisk(ctx.logContext(cmd.Context()))
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), r)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Hijacking risk: %d (%s)  vehicle=%s  home=%.4f,%.4f\n",
				r.Score, r.Level, r.VehicleType, r.Latitude, r.Longitude)
			if len(r.Contributions) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No matching incidents in range.")
				return nil
			}
			rows := make([][]string, len(r.Contributions))
			for i, c := range r.Contributions {
				rows[i] = []string{
					c.Incident.Name,
					strconv.Itoa(c.Incident.Severity),
					fmt.Sprintf("%.0f", c.DistanceMeters),
					fmt.Sprintf("%.0f", c.Incident.RadiusMeters),
					fmt.Sprintf("%.2f", c.Proximity),
					fmt.Sprintf("%.1f", c.Score),
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Incident", "Severity", "Distance m", "Radius m", "Proximity", "Score"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight},
			))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

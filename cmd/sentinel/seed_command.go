package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSeedCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the baseline countries and hotspots into an empty database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			eng, err := ctx.engine()
			if err != nil {
				return err
			}
			res, err := st.Seed(eng.OverallScore)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d countries, %d hotspots\n", res.Countries, res.Hotspots)
			return nil
		},
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/safety-sentinel/go-controller/internal/intel"
	"github.com/danielpatrickdp/safety-sentinel/go-controller/internal/orchestrator"
	"github.com/danielpatrickdp/safety-sentinel/go-controller/internal/progress"
	"github.com/danielpatrickdp/safety-sentinel/go-controller/internal/stream"
)

func newBriefCommand(ctx *commandContext) *cobra.Command {
	var quick, quiet bool
	cmd := &cobra.Command{
		Use:   "brief",
		Short: "Generate an intelligence brief now",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cfg.LLM.APIKey == "" {
				return fmt.Errorf("%w: set SENTINEL_API_KEY or ANTHROPIC_API_KEY", intel.ErrNotConfigured)
			}
			orch, err := ctx.orchestrator()
			if err != nil {
				return err
			}

			runCtx := ctx.logContext(cmd.Context())
			if d := cfg.RequestTimeout(); d > 0 {
				var cancel context.CancelFunc
				runCtx, cancel = context.WithTimeout(runCtx, d)
				defer cancel()
			}

			trigger := orchestrator.TriggerManual
			if quick {
				trigger = orchestrator.TriggerQuickScan
			}

			var text stream.TextSink
			if !quiet {
				text = stream.TextSinkFunc(func(s string) { fmt.Fprint(cmd.OutOrStdout(), s) })
			}
			sink := progress.SinkFunc(func(s progress.Snapshot) {
				fmt.Fprintf(os.Stderr, "\r\033[K[%3d%%] %s", s.Percent, s.Label)
				if s.Terminal() {
					fmt.Fprintln(os.Stderr)
				}
			})

			out, err := orch.RunBrief(runCtx, trigger, text, sink)
			if quiet && out.Brief.Content != "" {
				fmt.Fprintln(cmd.OutOrStdout(), out.Brief.Content)
			}
			if err != nil && !errors.Is(err, stream.ErrPartial) {
				return err
			}

			fmt.Fprintln(os.Stderr)
			fmt.Fprintf(os.Stderr, "brief %s  level=%s  hijacking=%d (%s)\n",
				out.BriefID, out.Brief.ThreatLevel, out.HijackRisk, out.HijackLevel)
			if out.Scored {
				fmt.Fprintf(os.Stderr, "assessment %s  overall=%d  tier=%s\n",
					out.CountryCode, out.Assessment.OverallScore, out.Assessment.Tier)
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&quick, "quick", false, "Run a quick scan instead of the full daily brief")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Print the brief only when finished")
	return cmd
}

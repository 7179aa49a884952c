package main

import (
	"context"

	"github.com/spf13/cobra"
	"goa.design/clue/log"

	"github.com/danielpatrickdp/safety-sentinel/go-controller/internal/daemon"
	"github.com/danielpatrickdp/safety-sentinel/go-controller/internal/orchestrator"
	"github.com/danielpatrickdp/safety-sentinel/go-controller/internal/schedule"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var noQuick bool
	var healthAddr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler daemon with a gRPC health endpoint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			orch, err := ctx.orchestrator()
			if err != nil {
				return err
			}
			loc, err := cfg.Location()
			if err != nil {
				return err
			}
			runCtx := ctx.logContext(cmd.Context())

			hour, minute := cfg.DailyClock()
			schedCfg := schedule.Config{
				QuickScanInterval: cfg.QuickScanInterval(),
				DailyHour:         hour,
				DailyMinute:       minute,
				Location:          loc,
			}
			if noQuick {
				schedCfg.QuickScanInterval = 0
			}

			timeout := cfg.RequestTimeout()
			sched, err := schedule.NewScheduler(schedCfg,
				func(ctx context.Context, trigger string) error {
					if timeout > 0 {
						var cancel context.CancelFunc
						ctx, cancel = context.WithTimeout(ctx, timeout)
						defer cancel()
					}
					_, err := orch.RunBrief(ctx, orchestrator.Trigger(trigger), nil, nil)
					return err
				},
				func(st schedule.Status) {
					log.Info(runCtx,
						log.KV{K: "msg", V: "[SCHED] run finished"},
						log.KV{K: "trigger", V: st.Trigger},
						log.KV{K: "skipped", V: st.Skipped},
						log.KV{K: "duration", V: st.Finished.Sub(st.Started).String()},
						log.KV{K: "ok", V: st.Err == nil},
					)
				})
			if err != nil {
				return err
			}

			addr := cfg.Daemon.HealthAddr
			if cmd.Flags().Changed("health-addr") {
				addr = healthAddr
			}
			d, err := daemon.New(daemon.Config{LockPath: cfg.Daemon.LockFile, HealthAddr: addr}, sched)
			if err != nil {
				return err
			}
			return d.Run(runCtx)
		},
	}
	cmd.Flags().BoolVar(&noQuick, "no-quick-scan", false, "Disable the periodic quick scan")
	cmd.Flags().StringVar(&healthAddr, "health-addr", "", "Health listener address (empty disables)")
	return cmd
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"estimate-revision-model/internal/logger"
	"estimate-revision-model/internal/report"
	"estimate-revision-model/internal/research/revision"
	"estimate-revision-model/internal/scheduler"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := execute(ctx, newRootCmd(), shutdown)
	cancel()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// execute runs root and then cleanup, also when a command fails
func execute(ctx context.Context, root *cobra.Command, cleanup func()) error {
	defer cleanup()
	return root.ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		topN       int
		a          *app
	)

	root := &cobra.Command{
		Use:           "revision",
		Short:         "Earnings estimate revision candidate model",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			a, err = initializeSystem(cmd.Context(), configPath)
			return err
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the yaml config file")
	root.PersistentFlags().IntVar(&topN, "top", 20, "number of candidates to print")

	root.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Track estimates, analyze revisions and write ranked candidates",
			RunE: func(cmd *cobra.Command, args []string) error {
				result, err := a.finder.RunOnce(cmd.Context())
				if err != nil {
					return err
				}
				report.PrintSummary(cmd.OutOrStdout(), result, topN)
				return nil
			},
		},
		&cobra.Command{
			Use:   "track",
			Short: "Only refresh the quarterly and annual estimate logs",
			RunE: func(cmd *cobra.Command, args []string) error {
				summary, err := a.finder.Track(cmd.Context())
				if err != nil {
					return err
				}
				report.PrintTrackSummary(cmd.OutOrStdout(), summary)
				return nil
			},
		},
		newScheduleCmd(&a, &topN),
	)
	return root
}

func newScheduleCmd(a **app, topN *int) *cobra.Command {
	var runNow bool

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run on the configured cron schedule until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := (*a).cfg
			out := cmd.OutOrStdout()

			sched, err := scheduler.New((*a).finder, cfg.Schedule.Cron, cfg.Schedule.Timezone, logger.Default(),
				scheduler.WithResultHandler(func(result *revision.RunResult) {
					report.PrintSummary(out, result, *topN)
				}),
			)
			if err != nil {
				return err
			}

			if runNow {
				result, err := sched.RunNow(ctx)
				if err != nil {
					logger.ErrorWithErr(ctx, "Initial run failed", err)
				} else {
					report.PrintSummary(out, result, *topN)
				}
			}

			if err := sched.Start(ctx); err != nil {
				return err
			}
			<-ctx.Done()

			logger.Info(context.Background(), "Shutdown requested, waiting for running job")
			<-sched.Stop().Done()
			return nil
		},
	}
	cmd.Flags().BoolVar(&runNow, "run-now", false, "execute one run immediately before waiting for the schedule")
	return cmd
}

package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/daladno/upcoming/internal/scheduler"
)

func newWatchCommand(flags *globalFlags) *cobra.Command {
	var (
		schedule string
		quiet    bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print the agenda on a cron schedule, and send it to Telegram if configured",
		Long: `watch rebuilds the agenda on a cron schedule (standard five-field syntax or
descriptors such as @daily), evaluated in the display timezone. Each run is
printed and, when a Telegram bot token and chat id are configured, sent to
that chat.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, flags)
			if err != nil {
				return err
			}
			if schedule == "" {
				schedule = a.cfg.Watch.Schedule
			}

			out := cmd.OutOrStdout()
			if quiet {
				out = nil
			}
			sched, err := scheduler.New(schedule, a.cfg.Display.Timezone, a.agenda, a.template, out, a.logger)
			if err != nil {
				return err
			}
			if a.cfg.Telegram.Enabled() {
				tg, err := a.telegram()
				if err != nil {
					return err
				}
				sched.SetSender(tg)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := sched.Start(ctx); err != nil {
				return err
			}
			sched.Stop()
			return nil
		},
	}

	cmd.Flags().StringVar(&schedule, "schedule", "", "cron schedule (default: watch.schedule from config)")
	cmd.Flags().BoolVar(&quiet, "quiet", false, "do not print the agenda, only send it")

	return cmd
}

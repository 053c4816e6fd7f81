package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

type globalFlags struct {
	configPath string
	logLevel   string
	logFormat  string
}

// Execute runs the root command. This is called by main.main().
func Execute() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	flags := &globalFlags{}
	var notify bool

	rootCmd := &cobra.Command{
		Use:   "upcoming",
		Short: "upcoming - print upcoming calendar events",
		Long: `upcoming prints the events of your CalDAV calendars and ICS feeds that
fall in a window of days around today, one line per event, in the
timezone and format set in the config file.

Run without a subcommand to print the agenda once.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, flags)
			if err != nil {
				return err
			}
			return a.printAgenda(cmd.Context(), cmd.OutOrStdout(), notify)
		},
	}

	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "conf.json", "config file path (JSON or YAML)")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level (debug, info, warn, error) (default: from config)")
	rootCmd.PersistentFlags().StringVar(&flags.logFormat, "log-format", "", "log format (json, console) (default: from config)")
	rootCmd.Flags().BoolVar(&notify, "notify", false, "also send the agenda to the configured Telegram chat")

	rootCmd.AddCommand(newCalendarsCommand(flags))
	rootCmd.AddCommand(newWatchCommand(flags))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

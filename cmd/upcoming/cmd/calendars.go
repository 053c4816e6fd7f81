package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCalendarsCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "calendars",
		Aliases: []string{"ls"},
		Short:   "List the calendars the configured sources expose",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, flags)
			if err != nil {
				return err
			}

			cals, err := a.agenda.Calendars(cmd.Context())
			if err != nil {
				return describe(err)
			}

			out := cmd.OutOrStdout()
			if len(cals) == 0 {
				fmt.Fprintln(out, "No calendars")
				return nil
			}
			for _, c := range cals {
				fmt.Fprintln(out, c.String())
			}
			return nil
		},
	}
}

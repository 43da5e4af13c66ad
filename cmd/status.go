package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/rsg-workblocks/internal/timecalc"
)

func newStatusCmd(a *app) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show whether workblocks were already submitted for a day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runStatus(cmd, date)
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "day to check, YYYY-MM-DD (default today)")
	return cmd
}

func (a *app) runStatus(cmd *cobra.Command, date string) error {
	if date == "" {
		date = timecalc.Today()
	}
	d, err := timecalc.ParseDate(date)
	if err != nil {
		return err
	}
	date = timecalc.FormatDate(d)

	s, err := a.submitter(cmd, false)
	if err != nil {
		return err
	}
	records, err := s.Workblocks(cmd.Context(), date, date)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(records) == 0 {
		fmt.Fprintf(out, "No workblocks submitted for %s.\n", date)
		return nil
	}
	fmt.Fprintf(out, "Workblocks already submitted for %s: %d.\n", date, len(records))
	return nil
}

package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/rsg-workblocks/internal/model"
	"github.com/Tiliavir/rsg-workblocks/internal/timecalc"
)

func newListCmd(a *app) *cobra.Command {
	var from, to string
	var week bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List submitted workblocks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runList(cmd, from, to, week)
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first day, YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&to, "to", "", "last day, YYYY-MM-DD (default --from)")
	cmd.Flags().BoolVar(&week, "week", false, "show this week's workblocks")
	cmd.MarkFlagsMutuallyExclusive("week", "from")
	cmd.MarkFlagsMutuallyExclusive("week", "to")
	return cmd
}

func (a *app) runList(cmd *cobra.Command, from, to string, week bool) error {
	switch {
	case week:
		monday, sunday := timecalc.WeekRange(time.Now())
		from, to = timecalc.FormatDate(monday), timecalc.FormatDate(sunday)
	case from == "":
		from = timecalc.Today()
	}
	from, to, err := timecalc.DateRange(from, to)
	if err != nil {
		return err
	}

	s, err := a.submitter(cmd, false)
	if err != nil {
		return err
	}
	records, err := s.Workblocks(cmd.Context(), from, to)
	if err != nil {
		return err
	}

	printList(cmd.OutOrStdout(), records)
	return nil
}

// printList prints one workblock per line.
func printList(w io.Writer, records []model.Record) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No workblocks found.")
		return
	}

	fmt.Fprintf(w, "%-10s  %-10s  %-8s  %-6s  %s\n", "START", "END", "PROJECT", "EFFORT", "TYPE")
	for _, r := range records {
		fmt.Fprintf(w, "%-10v  %-10v  %-8v  %-6v  %v\n",
			field(r, "start_date"), field(r, "end_date"), field(r, "project"), field(r, "effort_rate"), field(r, "type"))
	}
}

func field(r model.Record, key string) any {
	if v, ok := r[key]; ok && v != nil {
		return v
	}
	return "-"
}

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/rsg-workblocks/internal/model"
	"github.com/Tiliavir/rsg-workblocks/internal/timecalc"
)

func newReportCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show this week's submitted effort per project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runReport(cmd, format)
		},
	}
	cmd.Flags().StringVar(&format, "format", "md", "Output format: md, csv, json")
	return cmd
}

// projectTotal is the summed effort rate of one project, in person-days.
type projectTotal struct {
	Project string  `json:"project"`
	Effort  float64 `json:"effort_days"`
}

func (a *app) runReport(cmd *cobra.Command, format string) error {
	now := time.Now()
	monday, sunday := timecalc.WeekRange(now)
	label := timecalc.ISOWeekLabel(now)

	s, err := a.submitter(cmd, false)
	if err != nil {
		return err
	}
	records, err := s.Workblocks(cmd.Context(), timecalc.FormatDate(monday), timecalc.FormatDate(sunday))
	if err != nil {
		return err
	}

	totals, grand, err := aggregate(records)
	if err != nil {
		return err
	}
	return printReport(cmd.OutOrStdout(), format, label, totals, grand)
}

// aggregate sums effort_rate per project, sorted by project.
func aggregate(records []model.Record) ([]projectTotal, float64, error) {
	byProject := map[string]float64{}
	for _, r := range records {
		project := fmt.Sprint(field(r, "project"))
		// Decimal fields may arrive as strings ("0.50") or numbers.
		effort, err := strconv.ParseFloat(fmt.Sprint(field(r, "effort_rate")), 64)
		if err != nil {
			return nil, 0, fmt.Errorf("workblock for project %s has invalid effort_rate %v", project, r["effort_rate"])
		}
		byProject[project] += effort
	}

	totals := make([]projectTotal, 0, len(byProject))
	var grand float64
	for p, e := range byProject {
		totals = append(totals, projectTotal{Project: p, Effort: e})
		grand += e
	}
	sort.Slice(totals, func(i, j int) bool { return totals[i].Project < totals[j].Project })
	return totals, grand, nil
}

func printReport(w io.Writer, format, label string, totals []projectTotal, grand float64) error {
	switch format {
	case "csv":
		fmt.Fprintln(w, "project,effort_days")
		for _, t := range totals {
			fmt.Fprintf(w, "%s,%s\n", t.Project, strconv.FormatFloat(t.Effort, 'f', -1, 64))
		}
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Week     string         `json:"week"`
			Projects []projectTotal `json:"projects"`
			Total    float64        `json:"total_days"`
		}{label, totals, grand})
	case "md":
		fmt.Fprintf(w, "Week %s\n", label)
		fmt.Fprintln(w, "--------------------------------")
		for _, t := range totals {
			fmt.Fprintf(w, "%-20s%.2f\n", t.Project, t.Effort)
		}
		fmt.Fprintln(w, "--------------------------------")
		fmt.Fprintf(w, "%-20s%.2f\n", "Total", grand)
	default:
		return fmt.Errorf("unknown format %q (want md, csv or json)", format)
	}
	return nil
}

package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var statusJSON bool

func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <project-id> [day]",
		Short: "Show a project's progress or one day's report",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runStatus,
	}
	cmd.Flags().BoolVar(&statusJSON, "json", false, "print the raw snapshot as JSON")
	return cmd
}

func runStatus(cmd *cobra.Command, args []string) error {
	projectID, err := parseProjectID(args[0])
	if err != nil {
		return err
	}
	a, err := openApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.Close()
	engine := a.Services.Engine

	if len(args) == 2 {
		n, err := parseDayNumber(args[1])
		if err != nil {
			return err
		}
		report, err := engine.DayStatus(cmd.Context(), projectID, n)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), report)
	}

	snap, err := engine.Snapshot(cmd.Context(), projectID)
	if err != nil {
		return err
	}
	if statusJSON {
		return printJSON(cmd.OutOrStdout(), snap)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "project %s: %.1f%% (%d/%d tasks), current day %d, streak %d\n\n",
		snap.ProjectID, snap.ProgressPercentage, snap.CompletedTasks, snap.TotalTasks, snap.CurrentDay, snap.Streak)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DAY\tUNLOCKED\tCOMPLETED\tGENERATED\tTASKS\tPROGRESS")
	for _, d := range snap.Days {
		fmt.Fprintf(tw, "%d\t%t\t%t\t%t\t%d/%d\t%.0f%%\n",
			d.DayNumber, d.IsUnlocked, d.IsCompleted, d.ContentGenerated, d.CompletedTasks, d.TotalTasks, d.ProgressRatio*100)
	}
	return tw.Flush()
}

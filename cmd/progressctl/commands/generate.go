package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yungbote/gitguide-backend/internal/modules/progression"
)

var (
	generateForce   bool
	generateRelease bool
)

func NewGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate <project-id> <day>",
		Short: "Request content generation for a day",
		Long: `Request content generation for a regular day. Without Temporal the
content is generated in-process and the command waits for it.

--release clears a stuck generation claim instead of generating.
--force discards the day's existing content first.`,
		Args: cobra.ExactArgs(2),
		RunE: runGenerate,
	}
	cmd.Flags().BoolVar(&generateForce, "force", false, "discard existing content and regenerate")
	cmd.Flags().BoolVar(&generateRelease, "release", false, "clear a stuck generation claim")
	return cmd
}

func runGenerate(cmd *cobra.Command, args []string) error {
	projectID, err := parseProjectID(args[0])
	if err != nil {
		return err
	}
	n, err := parseDayNumber(args[1])
	if err != nil {
		return err
	}
	if generateForce && generateRelease {
		return fmt.Errorf("--force and --release are exclusive")
	}
	a, err := openApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.Close()
	engine := a.Services.Engine
	out := cmd.OutOrStdout()

	if generateRelease {
		released, err := engine.ReleaseGeneration(cmd.Context(), projectID, n)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "day %d claim released: %t\n", n, released)
		return nil
	}

	var outcome progression.GenerationOutcome
	if generateForce {
		outcome, err = engine.RegenerateDay(cmd.Context(), projectID, n)
	} else {
		outcome, err = engine.EnsureGenerated(cmd.Context(), projectID, n)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "day %d: %s\n", n, outcome)
	if outcome == progression.GenerationTriggered && a.Services.LocalDispatcher != nil {
		a.Services.LocalDispatcher.Wait()
		report, err := engine.DayStatus(cmd.Context(), projectID, n)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "day %d generated: %t (%d tasks)\n", n, report.Day.ContentGenerated, report.Day.TotalTasks)
	}
	return nil
}

package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewUnlockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unlock <project-id> <day>",
		Short: "Evaluate a day's gate and open the next day when it holds",
		Args:  cobra.ExactArgs(2),
		RunE:  runUnlock,
	}
}

func runUnlock(cmd *cobra.Command, args []string) error {
	projectID, err := parseProjectID(args[0])
	if err != nil {
		return err
	}
	n, err := parseDayNumber(args[1])
	if err != nil {
		return err
	}
	a, err := openApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.Services.Engine.TryUnlockDay(cmd.Context(), projectID, n)
	if err != nil {
		return err
	}
	if a.Services.LocalDispatcher != nil {
		a.Services.LocalDispatcher.Wait()
	}
	out := cmd.OutOrStdout()
	switch {
	case res.Terminal:
		fmt.Fprintf(out, "day %d is the last day\n", n)
	case res.Unlocked:
		fmt.Fprintf(out, "day %d unlocked\n", res.TargetDay)
	case res.AlreadyUnlocked:
		fmt.Fprintf(out, "day %d was already unlocked\n", res.TargetDay)
	case res.DayLocked:
		fmt.Fprintf(out, "day %d is still locked itself; unlock it first\n", n)
	default:
		fmt.Fprintf(out, "day %d stays locked: %s\n", res.TargetDay, res.Gate.Message())
	}
	return nil
}

package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yungbote/gitguide-backend/internal/modules/progression"
)

func NewWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <project-id>",
		Short: "Stream a project's progress events from Redis",
		Args:  cobra.ExactArgs(1),
		RunE:  runWatch,
	}
}

func runWatch(cmd *cobra.Command, args []string) error {
	projectID, err := parseProjectID(args[0])
	if err != nil {
		return err
	}
	a, err := openApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.Close()
	if strings.TrimSpace(a.Cfg.Redis.Addr) == "" {
		return fmt.Errorf("REDIS_ADDR is not set")
	}

	out := cmd.OutOrStdout()
	err = a.Clients.Bus.Subscribe(cmd.Context(), projectID, func(ev progression.ProgressEvent) {
		line := fmt.Sprintf("%s %s", ev.At.Format("15:04:05"), ev.Type)
		if ev.DayNumber != nil {
			line += fmt.Sprintf(" day=%d", *ev.DayNumber)
		}
		if ev.TaskID != nil {
			line += " task=" + ev.TaskID.String()
		}
		fmt.Fprintln(out, line)
	})
	if err != nil {
		return err
	}
	<-cmd.Context().Done()
	return nil
}

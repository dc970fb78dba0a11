package commands

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/gitguide-backend/internal/platform/dbctx"
)

var (
	refreshParallel int
	refreshAll      bool
)

func NewRefreshCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refresh [<project-id>...]",
		Short: "Recompute every ratio and frontier from task state",
		Long: `Recompute every completion flag, ratio and unlock frontier of each
project from its tasks' completion state, repairing drift left by an
interrupted writer. Safe to run repeatedly.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if refreshAll {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.MinimumNArgs(1)(cmd, args)
		},
		RunE: runRefresh,
	}
	cmd.Flags().IntVar(&refreshParallel, "parallel", 4, "projects to recompute at once")
	cmd.Flags().BoolVar(&refreshAll, "all", false, "recompute every project")
	return cmd
}

func runRefresh(cmd *cobra.Command, args []string) error {
	ids := make([]uuid.UUID, 0, len(args))
	for _, raw := range args {
		id, err := parseProjectID(raw)
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}
	a, err := openApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.Close()
	if refreshAll {
		ids, err = a.Repos.Project.ListIDs(dbctx.New(cmd.Context()))
		if err != nil {
			return fmt.Errorf("list projects: %w", err)
		}
	}

	var mu sync.Mutex
	out := cmd.OutOrStdout()
	g, ctx := errgroup.WithContext(cmd.Context())
	if refreshParallel > 0 {
		g.SetLimit(refreshParallel)
	}
	for _, id := range ids {
		g.Go(func() error {
			snap, err := a.Services.Engine.RecomputeAll(ctx, id)
			if err != nil {
				return fmt.Errorf("refresh %s: %w", id, err)
			}
			mu.Lock()
			defer mu.Unlock()
			fmt.Fprintf(out, "%s: %.1f%% current day %d\n", id, snap.ProgressPercentage, snap.CurrentDay)
			return nil
		})
	}
	return g.Wait()
}

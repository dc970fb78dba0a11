package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/yungbote/gitguide-backend/internal/app"
	"github.com/yungbote/gitguide-backend/internal/platform/logger"
)

var (
	envFile string
	logMode string
)

// NewRootCmd builds the operator CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "progressctl",
		Short: "Operate the GitGuide progression engine",
		Long: `progressctl inspects and repairs project progression.

It talks to the same database, Temporal namespace and Redis bus as the
server, configured through the same environment variables.

Examples:
  progressctl status <project-id>
  progressctl refresh <project-id> [<project-id>...]
  progressctl unlock <project-id> 3
  progressctl generate <project-id> 4 --force
  progressctl watch <project-id>`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load(envFile)
		},
	}
	cmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before connecting")
	cmd.PersistentFlags().StringVar(&logMode, "log-mode", "production", "logger mode (production or development)")

	cmd.AddCommand(
		NewStatusCmd(),
		NewRefreshCmd(),
		NewUnlockCmd(),
		NewGenerateCmd(),
		NewWorkerCmd(),
		NewWatchCmd(),
	)
	return cmd
}

// Execute runs the CLI; SIGINT and SIGTERM cancel the command's context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}

// openApp wires the application without serving HTTP. Temporal workers are
// only started by the worker command.
func openApp(ctx context.Context, runWorker bool) (*app.App, error) {
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	cfg := app.LoadConfig()
	cfg.RunServer = false
	cfg.RunWorker = runWorker
	cfg.Progression.PrefetchFirstDay = false
	return app.NewWithConfig(ctx, log, cfg)
}

func parseProjectID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("invalid project id %q", raw)
	}
	return id, nil
}

func parseDayNumber(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid day number %q", raw)
	}
	return n, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the Temporal day generation worker",
		Args:  cobra.NoArgs,
		RunE:  runWorker,
	}
}

func runWorker(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer a.Close()
	if a.Services.TemporalWorker == nil {
		return fmt.Errorf("TEMPORAL_ADDRESS is not set")
	}
	return a.Run(cmd.Context())
}

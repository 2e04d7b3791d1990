package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// CreateRestartCmd creates the restart command.
func CreateRestartCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "restart [camera-id]",
		Short: "Record a camera restart",
		Long: `Writes the current time into the shared restart record for the camera (0 for all cameras). ` +
			`Viewers in every process sharing the record reconnect with a fresh session key.`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if env.Daemon.RecordFile == "" {
				return errors.New("no restart record file configured (restart.record_file)")
			}

			coord := env.Daemon.restarts(nil)
			at, err := coord.Restart(args[0])
			if err != nil {
				return fmt.Errorf("failed to write restart record: %w", err)
			}
			fmt.Printf("Recorded restart of camera %s at %s\n", args[0], time.UnixMilli(at).Format(time.RFC3339))
			return nil
		},
	}
}

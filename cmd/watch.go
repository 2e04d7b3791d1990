package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/smazurov/camview/internal/events"
	"github.com/smazurov/camview/internal/logging"
	"github.com/smazurov/camview/internal/stream"
	"github.com/spf13/cobra"
)

// CreateWatchCmd creates the watch command.
func CreateWatchCmd(env *Env) *cobra.Command {
	var duration time.Duration

	cmd := &cobra.Command{
		Use:   "watch [camera-id]",
		Short: "Stream one camera in the foreground",
		Long: `Opens a live stream session for the camera and logs state changes and the measured frame rate. ` +
			`Reconnects after failures and when the shared restart record changes, until interrupted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			cameraID := args[0]
			logger := logging.GetLogger("stream").With("camera_id", cameraID)

			stack, err := env.Daemon.Connect(events.New())
			if err != nil {
				return err
			}
			cfg, err := stack.ViewerConfig(cameraID)
			if err != nil {
				return err
			}

			fpsHook := cfg.Hooks.FPS
			cfg.Hooks.FPS = func(id string, key int64, fps int) {
				fpsHook(id, key, fps)
				logger.Info("Frame rate", "key", key, "fps", fps)
			}
			cfg.Hooks.State = func(s stream.Snapshot) {
				logger.Info("Stream state", "state", s.State, "key", s.Key, "connected", s.Connected, "error", s.LastError)
			}

			if err := stack.Restarts.StartWatching(); err != nil {
				logger.Debug("Restart record not watched, polling only", "error", err)
			}
			defer stack.Restarts.StopWatching()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, duration)
				defer cancel()
			}

			viewer := stream.NewViewer(cfg)
			viewer.Start()
			<-ctx.Done()
			viewer.Stop()

			snap := viewer.Snapshot()
			fmt.Printf("camera %s: %d reconnects, last key %d\n", cameraID, snap.Reconnects, snap.Key)
			return nil
		},
	}

	cmd.Flags().DurationVarP(&duration, "duration", "d", 0, "Stop after this long (0 runs until interrupted)")
	return cmd
}

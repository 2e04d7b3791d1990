package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/smazurov/camview/internal/logging"
	"github.com/smazurov/camview/internal/restart"
	"github.com/smazurov/camview/internal/stream"
	"github.com/spf13/cobra"
)

// CreateSnapshotCmd creates the snapshot command.
func CreateSnapshotCmd(env *Env) *cobra.Command {
	var (
		output  string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "snapshot [camera-id]",
		Short: "Save one frame from a camera",
		Long:  `Connects to the camera stream, waits for the first displayable JPEG frame, writes it to a file and exits.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			cameraID := args[0]
			if cameraID == restart.AllCameras {
				return fmt.Errorf("camera id %s addresses all cameras", cameraID)
			}
			if output == "" {
				output = fmt.Sprintf("camera-%s.jpg", cameraID)
			}

			data, err := captureFrame(env.Daemon, cameraID, timeout)
			if err != nil {
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("failed to write snapshot: %w", err)
			}
			fmt.Printf("Saved %d bytes from camera %s to %s\n", len(data), cameraID, output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default camera-<id>.jpg)")
	cmd.Flags().DurationVarP(&timeout, "timeout", "t", 10*time.Second, "How long to wait for a frame")
	return cmd
}

// captureFrame runs a single session until it delivers a displayable frame.
func captureFrame(d Daemon, cameraID string, timeout time.Duration) ([]byte, error) {
	client, err := d.client()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	got := make(chan struct{}, 1)
	session := stream.NewSession(stream.SessionConfig{
		CameraID:       cameraID,
		Key:            time.Now().UnixMilli(),
		Opener:         client,
		Tokens:         d.tokens(),
		ReadBufferSize: d.ReadBuffer,
		Logger:         logging.GetLogger("stream"),
		Hooks: stream.Hooks{
			Frame: func(_ string, _ int64, info stream.FrameInfo) {
				if info.Displayable {
					select {
					case got <- struct{}{}:
					default:
					}
				}
			},
		},
	})

	runErr := make(chan error, 1)
	go func() { runErr <- session.Run(ctx) }()

	var data []byte
	select {
	case <-got:
		session.View(func(h *stream.Handle) {
			if h.Displayable() {
				data = bytes.Clone(h.Bytes())
			}
		})
		cancel()
		<-runErr
	case err := <-runErr:
		if err == nil {
			err = ctx.Err()
		}
		return nil, fmt.Errorf("camera %s: no frame received: %w", cameraID, err)
	}

	if data == nil {
		return nil, errors.New("frame was replaced before it could be saved")
	}
	return data, nil
}

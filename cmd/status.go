package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/smazurov/camview/internal/api/models"
	"github.com/spf13/cobra"
)

// CreateStatusCmd creates the status command.
func CreateStatusCmd(env *Env) *cobra.Command {
	var serverURL string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the cameras of a running camview server",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			if serverURL == "" {
				serverURL = env.ServerURL
			}
			ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
			defer cancel()

			list, err := fetchCameras(ctx, serverURL, env.Username, env.Password)
			if err != nil {
				return err
			}
			fmt.Println(renderCameraTable(list))
			return nil
		},
	}

	cmd.Flags().StringVar(&serverURL, "server", "", "camview server URL (default from --port)")
	return cmd
}

func fetchCameras(ctx context.Context, serverURL, username, password string) (*models.CameraListData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(serverURL, "/")+"/api/cameras", nil)
	if err != nil {
		return nil, err
	}
	if username != "" && password != "" {
		req.SetBasicAuth(username, password)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("camview server unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("camview server returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var list models.CameraListData
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("invalid camera list: %w", err)
	}
	return &list, nil
}

func renderCameraTable(list *models.CameraListData) string {
	if list.Count == 0 {
		return "No cameras configured"
	}

	rows := make([][]string, 0, len(list.Cameras))
	for _, c := range list.Cameras {
		size := "-"
		if c.Frame != nil && c.Frame.Width > 0 {
			size = fmt.Sprintf("%dx%d", c.Frame.Width, c.Frame.Height)
		}
		rows = append(rows, []string{
			c.CameraID,
			c.State,
			strconv.Itoa(c.FPS),
			size,
			strconv.FormatUint(c.FramesTotal, 10),
			strconv.FormatUint(c.Reconnects, 10),
			c.LastError,
		})
	}
	return renderTable(
		[]string{"Camera", "State", "FPS", "Size", "Frames", "Reconnects", "Last error"},
		rows, 2, 4, 5,
	)
}

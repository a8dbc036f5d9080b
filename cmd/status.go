package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/Marenz/spacebot-dash/pkg/api"
	"github.com/Marenz/spacebot-dash/pkg/config"
)

var statusOkStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("#90EE90")). // Light green
	Bold(true)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	RunE: func(cmd *cobra.Command, args []string) error {
		settings := config.Get()
		client := api.NewClientWithTimeout(settings.Server.URL, settings.Server.Timeout)

		status, err := client.Status(context.Background())
		if err != nil {
			return fmt.Errorf("daemon unreachable at %s: %w", settings.Server.URL, err)
		}

		uptime := time.Duration(status.UptimeSeconds * float64(time.Second)).Round(time.Second)
		fmt.Printf("%s pid=%d uptime=%s\n", statusOkStyle.Render(status.Status), status.PID, uptime)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

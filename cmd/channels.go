package cmd

import (
	"context"
	"fmt"
	"sort"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/Marenz/spacebot-dash/pkg/api"
	"github.com/Marenz/spacebot-dash/pkg/config"
)

var (
	channelNameStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#DA70D6")). // Orchid
				Bold(true)

	platformStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#B0E0E6")) // Powder blue

	activityStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A9A9A9")) // Dark gray

	inactiveStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#696969")).
			Strikethrough(true)
)

var channelsCmd = &cobra.Command{
	Use:   "channels",
	Short: "List the agent's channels",
	RunE: func(cmd *cobra.Command, args []string) error {
		settings := config.Get()
		client := api.NewClientWithTimeout(settings.Server.URL, settings.Server.Timeout)

		channels, err := client.Channels(context.Background())
		if err != nil {
			return fmt.Errorf("failed to list channels: %w", err)
		}

		sort.Slice(channels, func(i, j int) bool {
			return channels[i].LastActivityAt.After(channels[j].LastActivityAt)
		})

		for _, ch := range channels {
			name := ch.ID
			if ch.DisplayName != nil && *ch.DisplayName != "" {
				name = *ch.DisplayName
			}

			nameOut := channelNameStyle.Render(name)
			if !ch.IsActive {
				nameOut = inactiveStyle.Render(name)
			}

			fmt.Printf("%s %s %s\n",
				platformStyle.Render(fmt.Sprintf("[%s]", ch.Platform)),
				nameOut,
				activityStyle.Render(ch.LastActivityAt.Format("2006-01-02 15:04:05")))
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(channelsCmd)
}

package cmd

import (
	"fmt"

	"github.com/Marenz/spacebot-dash/pkg/api"
	"github.com/Marenz/spacebot-dash/pkg/config"
	"github.com/Marenz/spacebot-dash/pkg/dashboard"
	"github.com/Marenz/spacebot-dash/pkg/events"
	"github.com/Marenz/spacebot-dash/pkg/livestate"
	"github.com/Marenz/spacebot-dash/pkg/logger"
	"github.com/Marenz/spacebot-dash/pkg/tui"
)

// runDashboard wires the session together and blocks in the TUI until quit
func runDashboard() error {
	log := logger.WithComponent("app")
	settings := config.Get()

	apiClient := api.NewClientWithTimeout(settings.Server.URL, settings.Server.Timeout)
	streamClient := events.NewClient(settings.Server.URL+"/api/events", settings.Stream.ReconnectDelay)
	store := livestate.NewStore()

	orch := dashboard.New(apiClient, streamClient, store,
		settings.History.Limit, settings.Dashboard.RefreshInterval)

	log.Info("Dashboard starting", "server", settings.Server.URL)
	orch.Start()
	defer orch.Close()

	view := tui.NewView(orch)
	if err := view.Run(); err != nil {
		return fmt.Errorf("dashboard failed: %w", err)
	}

	log.Info("Dashboard shutting down")
	return nil
}

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Marenz/spacebot-dash/pkg/config"
	"github.com/Marenz/spacebot-dash/pkg/logger"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "spacebot-dash",
	Short: "Live dashboard for spacebot channels",
	Long: `Terminal dashboard that follows every channel a spacebot agent
participates in: merged conversation history, live message stream, and
typing indicators.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDashboard()
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is .spacebot-dash/settings.yaml)")

	// The flag default matches the config default: an unchanged bound flag
	// still shadows viper's SetDefault value
	rootCmd.PersistentFlags().StringP("server", "s", "http://127.0.0.1:3900", "spacebot daemon base URL")
	viper.BindPFlag("server.url", rootCmd.PersistentFlags().Lookup("server"))

	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level")
	viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	if _, err := config.Load(cfgFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}
}

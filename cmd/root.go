package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/gainguard/cmd/monitor"
	"github.com/tphakala/gainguard/cmd/presets"
	"github.com/tphakala/gainguard/cmd/serve"
	"github.com/tphakala/gainguard/cmd/simulate"
	"github.com/tphakala/gainguard/cmd/version"
	"github.com/tphakala/gainguard/internal/conf"
	"github.com/tphakala/gainguard/internal/logger"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings) *cobra.Command {
	var (
		configFile string
		debug      bool
	)

	rootCmd := &cobra.Command{
		Use:           "gainguard",
		Short:         "GainGuard gain coordination controller",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to config file (default: search ./, ~/.config/gainguard, /etc/gainguard)")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable debug output")

	versionCmd := version.Command()

	rootCmd.AddCommand(
		serve.Command(settings),
		simulate.Command(settings),
		presets.Command(settings),
		monitor.Command(settings),
		versionCmd,
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// Version needs neither config nor logging
		if cmd.Name() == versionCmd.Name() {
			return nil
		}
		return initialize(settings, configFile, debug)
	}

	return rootCmd
}

// initialize loads configuration into settings and installs the global
// logger. Flags take precedence over the config file.
func initialize(settings *conf.Settings, configFile string, debug bool) error {
	loaded, err := conf.Load(configFile)
	if err != nil {
		return err
	}
	*settings = *loaded

	if debug {
		settings.Debug = true
	}
	if settings.Debug {
		settings.Logging.DefaultLevel = "debug"
		if settings.Logging.Console != nil {
			settings.Logging.Console.Level = "debug"
		}
	}

	central, err := logger.NewCentralLogger(&settings.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	logger.SetGlobal(central)
	return nil
}

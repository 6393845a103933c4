package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/synthex/internal/cli"
	"github.com/aretw0/synthex/internal/config"
	"github.com/aretw0/synthex/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "synthex",
	Short: "Synthex turns chemical procedures into numbered protocol steps",
	Long: `Synthex forwards free-text synthesis procedures to IBM RXN for Chemistry
and shows the extracted actions as numbered steps, from a web UI, a JSON API,
an MCP server or the command line.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML or JSON configuration file")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging on stderr")
}

// loadConfig reads .env, the config file and the environment.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if err := config.LoadDotEnv(".env"); err != nil {
		return nil, err
	}
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path)
}

// loadApp builds the application. Quiet commands only log in debug mode.
func loadApp(cmd *cobra.Command, quiet bool, opts cli.AppOptions) (*cli.App, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	debug, _ := cmd.Flags().GetBool("debug")
	logger := logging.NewNop()
	if !quiet || debug {
		logger, err = cli.NewLogger(cfg, debug)
		if err != nil {
			return nil, err
		}
	}

	return cli.NewApp(cfg, logger, opts)
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the resolved configuration",
	Long:  `Prints the configuration after merging defaults, the config file, .env and the environment. Secrets are redacted.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(cmd)
		if err != nil {
			fmt.Printf("Error loading configuration: %v\n", err)
			os.Exit(1)
		}

		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		if err := enc.Encode(cfg.Redacted()); err != nil {
			fmt.Printf("Error encoding configuration: %v\n", err)
			os.Exit(1)
		}
		_ = enc.Close()
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}

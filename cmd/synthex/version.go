package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/synthex"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of synthex",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("synthex version %s\n", strings.TrimSpace(synthex.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

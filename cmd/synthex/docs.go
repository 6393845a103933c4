package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/synthex/internal/cli"
	"github.com/aretw0/synthex/internal/pages"
	"github.com/aretw0/synthex/internal/presentation/tui"
	"github.com/aretw0/synthex/pkg/domain"
)

var docsCmd = &cobra.Command{
	Use:       "docs [about|contact|docs]",
	Short:     "Show the About, Contact or Documentation page",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{string(domain.PageAbout), string(domain.PageContact), string(domain.PageDocs)},
	Run: func(cmd *cobra.Command, args []string) {
		page := domain.PageDocs
		if len(args) == 1 {
			page = domain.Page(args[0])
		}

		src, err := pages.Markdown(page)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		if !cli.IsTerminal(os.Stdout) {
			fmt.Print(string(src))
			return
		}

		render, err := tui.NewRenderer(terminalWidth())
		if err != nil {
			fmt.Print(string(src))
			return
		}
		out, err := render(string(src))
		if err != nil {
			fmt.Print(string(src))
			return
		}
		fmt.Print(strings.TrimLeft(out, "\n"))
	},
}

func init() {
	rootCmd.AddCommand(docsCmd)
}

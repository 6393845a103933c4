package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aretw0/synthex/internal/cli"
	"github.com/aretw0/synthex/pkg/adapters/mcp"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Starts Synthex as an MCP Server exposing the extract_actions tool
and the documentation pages as resources.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	Run: func(cmd *cobra.Command, args []string) {
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")

		// Logs go to stderr so they never corrupt JSON-RPC on stdout.
		app, err := loadApp(cmd, false, cli.AppOptions{})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error initializing synthex: %v\n", err)
			os.Exit(1)
		}
		defer app.Close()

		srv := mcp.NewServer(app.Engine, mcp.WithLogger(app.Logger))

		switch transport {
		case "stdio":
			log.SetOutput(os.Stderr)
			app.Logger.Info("Starting Synthex MCP Server (Stdio)")
			if err := srv.ServeStdio(); err != nil {
				app.Logger.Error("MCP Server execution failed", "error", err)
				app.Exit(1)
			}
		case "sse":
			app.Logger.Info("Starting Synthex MCP Server (SSE)", "port", port)

			// Create a context that cancels on interrupt signal
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := srv.ServeSSE(ctx, port); err != nil {
				app.Logger.Error("MCP Server execution failed", "error", err)
				app.Exit(1)
			}
			app.Logger.Info("MCP Server stopped gracefully")
		default:
			fmt.Fprintf(os.Stderr, "Unknown transport: %s. Supported: stdio, sse\n", transport)
			app.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("port", 8081, "Port to listen on (only for SSE)")
}

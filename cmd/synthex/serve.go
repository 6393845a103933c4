package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/aretw0/synthex"
	"github.com/aretw0/synthex/internal/cli"
	"github.com/aretw0/synthex/internal/presentation/tui"
	httpAdapter "github.com/aretw0/synthex/pkg/adapters/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web UI and JSON API",
	Long:  `Starts the Synthex HTTP server: the extractor form, the static pages, the settings page and the JSON API.`,
	Run: func(cmd *cobra.Command, args []string) {
		app, err := loadApp(cmd, false, cli.AppOptions{})
		if err != nil {
			fmt.Printf("Error initializing synthex: %v\n", err)
			os.Exit(1)
		}
		defer app.Close()

		cfg := app.Config
		if cmd.Flags().Changed("port") {
			cfg.Server.Port, _ = cmd.Flags().GetInt("port")
		}

		handlerOpts := []httpAdapter.Option{
			httpAdapter.WithLogger(app.Logger),
			httpAdapter.WithSecureCookies(cfg.Server.SecureCookies),
		}
		if cfg.Server.Metrics {
			handlerOpts = append(handlerOpts, httpAdapter.WithMetricsHandler(
				promhttp.HandlerFor(app.Registry, promhttp.HandlerOpts{}),
			))
		}

		handler, err := httpAdapter.NewHandler(app.Engine, app.Sessions, handlerOpts...)
		if err != nil {
			fmt.Printf("Error initializing HTTP handler: %v\n", err)
			app.Exit(1)
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		if cli.IsTerminal(os.Stdout) {
			tui.PrintBanner(os.Stdout, synthex.Version)
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)

		go func() {
			app.Logger.Info("Starting Synthex Server", "address", srv.Addr, "store", cfg.Store.Driver, "metrics", cfg.Server.Metrics)
			serverErrors <- srv.ListenAndServe()
		}()

		// Channel to listen for interrupt or terminate signals.
		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		// Blocking main and waiting for shutdown.
		select {
		case err := <-serverErrors:
			// Error when starting HTTP server.
			fmt.Printf("Server error: %v\n", err)
			app.Exit(1)

		case sig := <-shutdown:
			app.Logger.Info("Start shutdown", "signal", sig.String())

			// Give outstanding requests a deadline for completion.
			ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()

			// Asking listener to shut down and shed load.
			if err := srv.Shutdown(ctx); err != nil {
				app.Logger.Error("Graceful shutdown did not complete", "timeout", cfg.Server.ShutdownTimeout, "error", err)
				if err := srv.Close(); err != nil {
					app.Logger.Error("Error killing server", "error", err)
				}
			}
			app.Logger.Info("Synthex Server stopped gracefully")
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on (overrides config)")
}

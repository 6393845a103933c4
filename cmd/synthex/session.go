package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/synthex/internal/cli"
	"github.com/aretw0/synthex/internal/config"
	httpAdapter "github.com/aretw0/synthex/pkg/adapters/http"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage UI sessions in the configured store",
	Long: `List, inspect, and remove the per-user sessions kept by the web UI.
Only meaningful with a shared store (store.driver: redis); the memory store
belongs to the running server process.`,
}

func openSessions(cmd *cobra.Command) *cli.App {
	app, err := loadApp(cmd, true, cli.AppOptions{})
	if err != nil {
		fmt.Printf("Error opening session store: %v\n", err)
		os.Exit(1)
	}
	if app.Config.Store.Driver == config.StoreMemory {
		fmt.Fprintln(os.Stderr, "Note: the memory store is empty outside the server process.")
	}
	return app
}

var sessionLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List all active sessions",
	Run: func(cmd *cobra.Command, args []string) {
		app := openSessions(cmd)
		defer app.Close()

		ids, err := app.Sessions.List(cmd.Context())
		if err != nil {
			fmt.Printf("Error listing sessions: %v\n", err)
			app.Exit(1)
		}

		if len(ids) == 0 {
			fmt.Println("No active sessions found.")
			return
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tPAGE\tTHEME\tSTATUS\tKEY\tUPDATED")
		for _, id := range ids {
			sess, err := app.Sessions.Peek(cmd.Context(), id)
			if err != nil {
				fmt.Fprintf(tw, "%s\t-\t-\t-\t-\t%v\n", id, err)
				continue
			}
			key := "server"
			if !sess.Credential.IsZero() {
				key = "session"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
				id, sess.Page, sess.Theme, sess.Status, key, sess.UpdatedAt.Format(time.RFC3339))
		}
		_ = tw.Flush()
	},
}

var sessionInspectCmd = &cobra.Command{
	Use:   "inspect <session-id>",
	Short: "Inspect the state of a session",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		sessionID := args[0]
		app := openSessions(cmd)
		defer app.Close()

		sess, err := app.Sessions.Peek(cmd.Context(), sessionID)
		if err != nil {
			fmt.Printf("Error loading session '%s': %v\n", sessionID, err)
			app.Exit(1)
		}

		// The view never contains the credential itself.
		data, err := json.MarshalIndent(httpAdapter.NewSessionView(sess), "", "  ")
		if err != nil {
			fmt.Printf("Error marshaling session: %v\n", err)
			app.Exit(1)
		}

		fmt.Println(string(data))
	},
}

var sessionRmCmd = &cobra.Command{
	Use:   "rm <session-id>...",
	Short: "Remove one or more sessions",
	Args: func(cmd *cobra.Command, args []string) error {
		if all, _ := cmd.Flags().GetBool("all"); all {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.MinimumNArgs(1)(cmd, args)
	},
	Run: func(cmd *cobra.Command, args []string) {
		app := openSessions(cmd)
		defer app.Close()

		if all, _ := cmd.Flags().GetBool("all"); all {
			ids, err := app.Sessions.List(cmd.Context())
			if err != nil {
				fmt.Printf("Error listing sessions: %v\n", err)
				app.Exit(1)
			}
			args = ids
		}

		hasError := false
		for _, sessionID := range args {
			if err := app.Sessions.Delete(cmd.Context(), sessionID); err != nil {
				fmt.Printf("Error removing '%s': %v\n", sessionID, err)
				hasError = true
			} else {
				fmt.Printf("Removed session '%s'\n", sessionID)
			}
		}

		if hasError {
			app.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionLsCmd)
	sessionCmd.AddCommand(sessionInspectCmd)
	sessionCmd.AddCommand(sessionRmCmd)

	sessionRmCmd.Flags().Bool("all", false, "Remove every session")
}

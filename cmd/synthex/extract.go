package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/aretw0/synthex/internal/cli"
)

var extractCmd = &cobra.Command{
	Use:   "extract [procedure text]",
	Short: "Extract numbered protocol steps from a procedure",
	Long: `Sends a procedure to IBM RXN for Chemistry and prints the extracted steps.

The text is taken from the arguments, from --file, or from stdin when it is
piped. It is sent exactly as given. The command exits with status 1 when the
text is empty or the service call fails.`,
	Example: `  synthex extract "The mixture was stirred for 1 h."
  synthex extract --file procedure.txt --json
  cat procedure.txt | synthex extract --plain
  synthex extract -f procedure.txt --mermaid > protocol.mmd`,
	Run: func(cmd *cobra.Command, args []string) {
		file, _ := cmd.Flags().GetString("file")
		jsonOut, _ := cmd.Flags().GetBool("json")
		plain, _ := cmd.Flags().GetBool("plain")
		mermaid, _ := cmd.Flags().GetBool("mermaid")
		promptKey, _ := cmd.Flags().GetBool("prompt-key")

		text, err := cli.ReadProcedure(args, file, os.Stdin, cli.IsTerminal(os.Stdin))
		if err != nil && !errors.Is(err, cli.ErrNoInput) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		var opts cli.AppOptions
		if promptKey {
			opts.Credential, err = cli.PromptCredential(os.Stdin, os.Stderr)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
		}

		app, err := loadApp(cmd, true, opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error initializing synthex: %v\n", err)
			os.Exit(1)
		}
		defer app.Close()

		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		// An empty text still goes through the engine to get the warning outcome.
		outcome := app.Engine.Submit(sigCtx, text, "")

		format := cli.FormatRich
		switch {
		case jsonOut:
			format = cli.FormatJSON
		case mermaid:
			format = cli.FormatMermaid
		case plain || !cli.IsTerminal(os.Stdout):
			format = cli.FormatPlain
		}

		if err := cli.WriteOutcome(os.Stdout, outcome, format, terminalWidth()); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			app.Exit(1)
		}

		if sig := sigCtx.Signal(); sig != nil {
			cli.PrintSystemMessage(os.Stderr, "Interrupted (%s).", sig)
		}
		if outcome.Failed() {
			app.Exit(1)
		}
	},
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	return width
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringP("file", "f", "", "Read the procedure from a file ('-' for stdin)")
	extractCmd.Flags().Bool("json", false, "Print the outcome as JSON")
	extractCmd.Flags().Bool("plain", false, "Print plain text without Markdown rendering")
	extractCmd.Flags().Bool("mermaid", false, "Print the steps as a Mermaid flowchart")
	extractCmd.MarkFlagsMutuallyExclusive("json", "plain", "mermaid")
	extractCmd.Flags().Bool("prompt-key", false, "Ask for the IBM RXN API key without echoing it")
}


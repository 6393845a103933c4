package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/muesli/termenv"

	"github.com/aretw0/synthex/internal/presentation/graph"
	"github.com/aretw0/synthex/internal/presentation/tui"
	"github.com/aretw0/synthex/pkg/domain"
)

// OutputFormat selects how an outcome is written.
type OutputFormat int

const (
	// FormatRich renders Markdown with glamour.
	FormatRich OutputFormat = iota
	// FormatPlain writes the message and numbered steps as plain text.
	FormatPlain
	// FormatJSON writes the Outcome as JSON.
	FormatJSON
	// FormatMermaid writes the steps as a Mermaid flowchart.
	FormatMermaid
)

// WriteOutcome writes o to w in the given format.
func WriteOutcome(w io.Writer, o domain.Outcome, format OutputFormat, width int) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(o)
	case FormatMermaid:
		if _, err := fmt.Fprintf(w, "%%%% %s\n", tui.Sanitize(o.Message)); err != nil {
			return err
		}
		_, err := io.WriteString(w, graph.GenerateMermaid(o.Steps))
		return err
	case FormatPlain:
		_, err := io.WriteString(w, tui.PlainOutcome(o))
		return err
	default:
		render, err := tui.NewRenderer(width)
		if err != nil {
			return err
		}
		out, err := render(tui.OutcomeMarkdown(o))
		if err != nil {
			// Fall back to a colored status line.
			fmt.Fprintln(w, tui.StatusLine(termenv.ColorProfile(), o))
			_, werr := io.WriteString(w, tui.PlainOutcome(domain.Outcome{Steps: o.Steps}))
			return werr
		}
		_, err = io.WriteString(w, out)
		return err
	}
}

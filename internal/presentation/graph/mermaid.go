// Package graph renders extracted protocols as Mermaid flowcharts.
package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/synthex/internal/presentation/tui"
	"github.com/aretw0/synthex/pkg/domain"
)

// GenerateMermaid produces a Mermaid flowchart of the steps in order.
// It applies semantic shapes based on the leading action verb:
//   - Additions (ADD, MAKESOLUTION): [/Parallelogram/]
//   - Work-up (FILTER, COLLECTLAYER, WASH, ...): [[Subroutine]]
//   - YIELD: ([Stadium])
//   - Default: [Rectangle]
func GenerateMermaid(steps []domain.Step) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	if len(steps) == 0 {
		sb.WriteString("    empty[\"No protocol steps\"]\n")
		return sb.String()
	}

	for i, step := range steps {
		id := nodeID(step.Number)
		opener, closer := shape(step.Text)
		fmt.Fprintf(&sb, "    %s%s\"%d. %s\"%s\n", id, opener, step.Number, escapeLabel(step.Text), closer)
		if i > 0 {
			fmt.Fprintf(&sb, "    %s --> %s\n", nodeID(steps[i-1].Number), id)
		}
	}

	return sb.String()
}

func nodeID(n int) string {
	return fmt.Sprintf("step%d", n)
}

var workUp = map[string]bool{
	"FILTER":          true,
	"COLLECTLAYER":    true,
	"WASH":            true,
	"EXTRACT":         true,
	"DRYSOLUTION":     true,
	"CONCENTRATE":     true,
	"PHASESEPARATION": true,
	"PURIFY":          true,
	"RECRYSTALLIZE":   true,
	"QUENCH":          true,
}

func shape(text string) (string, string) {
	verb, _, _ := strings.Cut(strings.TrimSpace(text), " ")
	verb = strings.ToUpper(strings.TrimRight(verb, ".:;,"))
	switch {
	case verb == "ADD" || verb == "MAKESOLUTION":
		return "[/", "/]"
	case verb == "YIELD":
		return "([", "])"
	case workUp[verb]:
		return "[[", "]]"
	default:
		return "[", "]"
	}
}

var labelEscaper = strings.NewReplacer(
	`"`, "#quot;",
	"\n", " ",
	"\t", " ",
)

// escapeLabel keeps step text inside a quoted Mermaid label. Control
// characters are dropped since the chart is often printed to a terminal.
func escapeLabel(s string) string {
	return labelEscaper.Replace(tui.Sanitize(s))
}

package tui

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/aretw0/synthex/pkg/domain"
)

// NewRenderer returns a function that renders markdown using glamour.
// Style follows the terminal background; width 0 disables wrapping.
func NewRenderer(width int) (func(string) (string, error), error) {
	opts := []glamour.TermRendererOption{glamour.WithAutoStyle()}
	if width > 0 {
		opts = append(opts, glamour.WithWordWrap(width))
	}

	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create markdown renderer: %w", err)
	}

	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}, nil
}

var kindIcons = map[domain.OutcomeKind]string{
	domain.OutcomeWarning: "⚠️",
	domain.OutcomeInfo:    "ℹ️",
	domain.OutcomeSuccess: "✅",
	domain.OutcomeError:   "❌",
}

// OutcomeMarkdown formats an outcome as Markdown: a heading with a numbered
// list for success, a quoted banner otherwise.
func OutcomeMarkdown(o domain.Outcome) string {
	var b strings.Builder
	icon := kindIcons[o.Kind]

	if o.Kind != domain.OutcomeSuccess {
		fmt.Fprintf(&b, "> %s %s\n", icon, escape(o.Message))
		return b.String()
	}

	fmt.Fprintf(&b, "### %s %s\n\n", icon, escape(o.Message))
	for _, step := range o.Steps {
		fmt.Fprintf(&b, "%d. %s\n", step.Number, escape(step.Text))
	}
	return b.String()
}

// PlainOutcome formats an outcome without markup, one step per line.
func PlainOutcome(o domain.Outcome) string {
	var b strings.Builder
	b.WriteString(Sanitize(o.Message))
	b.WriteByte('\n')
	for _, step := range o.Steps {
		fmt.Fprintf(&b, "%d. %s\n", step.Number, Sanitize(step.Text))
	}
	return b.String()
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"*", `\*`,
	"_", `\_`,
	"`", "\\`",
	"[", `\[`,
	"]", `\]`,
	"<", `\<`,
	"#", `\#`,
)

var lineBreaks = strings.NewReplacer("\n", " ", "\t", " ")

var orderedMarker = regexp.MustCompile(`^\d{1,9}[.)]`)

// escape keeps service text from being interpreted as Markdown. The text is
// always placed on a single line after a list or quote marker.
func escape(s string) string {
	s = lineBreaks.Replace(Sanitize(s))
	s = strings.TrimLeft(s, " ")
	s = markdownEscaper.Replace(s)

	if s == "" {
		return s
	}
	switch s[0] {
	case '-', '+', '>':
		return `\` + s
	}
	if loc := orderedMarker.FindStringIndex(s); loc != nil {
		return s[:loc[1]-1] + `\` + s[loc[1]-1:]
	}
	return s
}

package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"

	"github.com/aretw0/synthex/pkg/domain"
)

// PrintBanner writes the Synthex banner followed by the version.
func PrintBanner(w io.Writer, version string) {
	p := termenv.ColorProfile()
	lines := []struct {
		text  string
		color string
	}{
		{"  ___              _   _             ", "#34d399"},
		{" / __|_  _ _ _  __| |_| |_  _____ __ ", "#2dd4bf"},
		{" \\__ \\ || | ' \\/ _|  _| ' \\/ -_) \\ / ", "#22d3ee"},
		{" |___/\\_, |_||_\\__|\\__|_||_\\___/_\\_\\ ", "#38bdf8"},
		{"      |__/                           ", "#60a5fa"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w, termenv.String("  v"+strings.TrimSpace(version)).Faint())
	fmt.Fprintln(w)
}

var kindColors = map[domain.OutcomeKind]string{
	domain.OutcomeWarning: "#f59e0b",
	domain.OutcomeInfo:    "#38bdf8",
	domain.OutcomeSuccess: "#22c55e",
	domain.OutcomeError:   "#ef4444",
}

// StatusLine colors the outcome message by kind using the profile p.
// termenv.Ascii yields plain text.
func StatusLine(p termenv.Profile, o domain.Outcome) string {
	msg := Sanitize(o.Message)
	if p == termenv.Ascii {
		return msg
	}
	s := termenv.String(msg).Foreground(p.Color(kindColors[o.Kind]))
	if o.Kind == domain.OutcomeSuccess || o.Kind == domain.OutcomeError {
		s = s.Bold()
	}
	return s.String()
}

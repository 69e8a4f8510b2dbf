package tui

import (
	"os"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

// NewRenderer returns a function that renders markdown using glamour.
// When stdout is a terminal the renderer picks a style from the detected
// background and wraps to the terminal width; otherwise it falls back to
// plain output so piped text stays clean.
func NewRenderer() func(string) (string, error) {
	opts := []glamour.TermRendererOption{glamour.WithStandardStyle("notty")}
	if term.IsTerminal(int(os.Stdout.Fd())) {
		opts = []glamour.TermRendererOption{glamour.WithAutoStyle()}
		if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 0 {
			opts = append(opts, glamour.WithWordWrap(width))
		}
	}

	r, _ := glamour.NewTermRenderer(opts...)
	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}

package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

var (
	colorHeader = lipgloss.Color("#fe8019")
	colorDim    = lipgloss.Color("#928374")
	colorBar    = lipgloss.Color("#83a598")

	styleHeader = lipgloss.NewStyle().Foreground(colorHeader).Bold(true)
	styleDim    = lipgloss.NewStyle().Foreground(colorDim)
	styleBar    = lipgloss.NewStyle().Foreground(colorBar)
)

// New creates a new formatter based on configuration.
//
// Parameters:
//   - cfg: Formatter configuration
//
// Returns a configured Formatter.
func New(cfg Config) Formatter {
	// Set defaults.
	if cfg.Format == "" {
		cfg.Format = FormatTable
	}

	switch cfg.Format {
	case FormatJSON:
		return &jsonFormatter{config: cfg}
	case FormatSimple:
		return &simpleFormatter{config: cfg}
	case FormatTable:
		fallthrough
	default:
		return &tableFormatter{config: cfg}
	}
}

// formatNumber formats a number with thousand separators.
func formatNumber(n int) string {
	return humanize.Comma(int64(n))
}

// formatShare formats part as a percentage of total.
func formatShare(part, total int) string {
	if total == 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", float64(part)*100/float64(total))
}

// render applies style when color output is enabled.
func render(cfg Config, style lipgloss.Style, text string) string {
	if !cfg.Color {
		return text
	}
	return style.Render(text)
}

// writeHeader writes a section header.
func writeHeader(w io.Writer, cfg Config, title string) error {
	if cfg.Compact {
		_, err := fmt.Fprintf(w, "%s\n", title)
		return err
	}

	separator := strings.Repeat("=", lipgloss.Width(title))

	_, err := fmt.Fprintf(w, "\n%s\n%s\n\n",
		render(cfg, styleHeader, title),
		render(cfg, styleDim, separator))
	return err
}

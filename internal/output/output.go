// Package output renders a finished run as a table, JSON, CSV or Markdown.
package output

import (
	"fmt"
	"strings"

	"github.com/marklens/marklens/internal/core"
)

// Format represents an output format.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
)

// Report is a completed run and everything it emitted, in emission order.
type Report struct {
	Summary core.RunSummary       `json:"summary"`
	Records []core.ConflictRecord `json:"records"`
}

// Formatter renders a run report.
type Formatter interface {
	FormatReport(report *Report) (string, error)
}

// ParseFormat validates and normalizes a format string.
func ParseFormat(value string) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "", string(FormatTable):
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	case string(FormatCSV):
		return FormatCSV, nil
	case string(FormatMarkdown):
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// NewFormatter returns a formatter for the requested format.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatCSV:
		return &CSVFormatter{}
	case FormatMarkdown:
		return &MarkdownFormatter{}
	default:
		return &TableFormatter{}
	}
}

// sanitizeCell strips the C0 control characters that registry markup
// occasionally leaks into scraped text. Tab, newline and carriage return
// survive; spreadsheet importers choke on the rest.
func sanitizeCell(value string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 0x00 && r <= 0x08:
			return -1
		case r == 0x0b || r == 0x0c:
			return -1
		case r >= 0x0e && r <= 0x1f:
			return -1
		}
		return r
	}, value)
}

func summaryLine(s core.RunSummary) string {
	line := fmt.Sprintf("%d approved, %d rejected of %d names", s.Approved, s.Rejected, s.Names)
	if s.Errors > 0 {
		line += fmt.Sprintf(", %d errors", s.Errors)
	}
	if s.Cancelled {
		line += " (cancelled)"
	}
	return line
}

func statusLabel(status core.Status) string {
	switch status {
	case core.StatusClean:
		return "✅ clean"
	case core.StatusConflict:
		return "❌ conflict"
	case core.StatusError:
		return "⚠️ error"
	default:
		return string(status)
	}
}

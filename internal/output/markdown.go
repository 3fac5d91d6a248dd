package output

import (
	"fmt"
	"strconv"
	"strings"
)

// MarkdownFormatter renders a run report as a markdown table.
type MarkdownFormatter struct{}

// FormatReport renders the records as a Markdown table with a verdict line.
func (f *MarkdownFormatter) FormatReport(report *Report) (string, error) {
	if report == nil {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString("## Screening results\n\n")
	sb.WriteString("| Name | Variant | Status | Brand | Reg No | Owner | Goods | Page |\n")
	sb.WriteString("|------|---------|--------|-------|--------|-------|-------|------|\n")

	for i := range report.Records {
		r := &report.Records[i]
		page := ""
		if r.Page > 0 {
			page = strconv.Itoa(r.Page)
		}
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %s | %s | %s |\n",
			escapeMarkdownCell(sanitizeCell(r.SearchTerm)),
			escapeMarkdownCell(sanitizeCell(r.Variant)),
			statusLabel(r.Status),
			escapeMarkdownCell(sanitizeCell(r.BrandTitle)),
			escapeMarkdownCell(sanitizeCell(r.RegistrationNumber)),
			escapeMarkdownCell(sanitizeCell(r.Owner)),
			escapeMarkdownCell(sanitizeCell(r.GoodsDescription)),
			page,
		))
	}

	sb.WriteString(fmt.Sprintf("\n**Verdict**: %s\n", summaryLine(report.Summary)))
	return sb.String(), nil
}

func escapeMarkdownCell(value string) string {
	return strings.ReplaceAll(strings.ReplaceAll(value, "|", "\\|"), "\n", " ")
}

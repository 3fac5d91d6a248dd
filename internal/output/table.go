package output

import (
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
)

// TableFormatter renders a run report as an ASCII table.
type TableFormatter struct{}

// FormatReport renders the records with a verdict footer.
func (f *TableFormatter) FormatReport(report *Report) (string, error) {
	if report == nil {
		return "", nil
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Name", "Variant", "Status", "Brand", "Reg No", "Owner", "Goods", "Page"})

	for i := range report.Records {
		r := &report.Records[i]
		page := ""
		if r.Page > 0 {
			page = strconv.Itoa(r.Page)
		}
		t.AppendRow(table.Row{
			sanitizeCell(r.SearchTerm),
			sanitizeCell(r.Variant),
			statusLabel(r.Status),
			sanitizeCell(r.BrandTitle),
			sanitizeCell(r.RegistrationNumber),
			sanitizeCell(r.Owner),
			sanitizeCell(r.GoodsDescription),
			page,
		})
	}

	t.AppendFooter(table.Row{"", "", summaryLine(report.Summary), "", "", "", "", ""})
	return t.Render(), nil
}

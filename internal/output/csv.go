package output

import (
	"encoding/csv"
	"strconv"
	"strings"
	"time"
)

// CSVFormatter renders a run report as RFC 4180 CSV, one row per record.
// Cells are sanitized so the file survives spreadsheet import.
type CSVFormatter struct{}

var csvHeader = []string{
	"record_id", "search_term", "variant", "status",
	"brand_title", "registration_number", "owner", "goods_description",
	"page", "observed_at",
}

// FormatReport renders the records as CSV. The run summary is not part of
// the CSV body; callers print it separately.
func (f *CSVFormatter) FormatReport(report *Report) (string, error) {
	if report == nil {
		return "", nil
	}

	var sb strings.Builder
	w := csv.NewWriter(&sb)
	if err := w.Write(csvHeader); err != nil {
		return "", err
	}

	for i := range report.Records {
		r := &report.Records[i]
		page := ""
		if r.Page > 0 {
			page = strconv.Itoa(r.Page)
		}
		row := []string{
			r.RecordID,
			sanitizeCell(r.SearchTerm),
			sanitizeCell(r.Variant),
			string(r.Status),
			sanitizeCell(r.BrandTitle),
			sanitizeCell(r.RegistrationNumber),
			sanitizeCell(r.Owner),
			sanitizeCell(r.GoodsDescription),
			page,
			r.ObservedAt.Format(time.RFC3339),
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return sb.String(), nil
}

package output

import (
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marklens/marklens/internal/core"
)

func sampleReport() *Report {
	observed := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	return &Report{
		Summary: core.RunSummary{
			RunID:    "run-1",
			Names:    2,
			Approved: 1,
			Rejected: 1,
		},
		Records: []core.ConflictRecord{
			{
				RecordID:           "rec-1",
				SearchTerm:         "تک نان",
				Variant:            "تک نان",
				Status:             core.StatusConflict,
				BrandTitle:         "تک نان طلایی",
				RegistrationNumber: "140212345",
				Owner:              "شرکت نمونه",
				GoodsDescription:   "نان و شیرینی",
				Page:               1,
				ObservedAt:         observed,
			},
			{
				RecordID:   "rec-2",
				SearchTerm: "Nova",
				Variant:    core.SummaryVariant,
				Status:     core.StatusClean,
				ObservedAt: observed,
			},
		},
	}
}

func TestParseFormat(t *testing.T) {
	for input, want := range map[string]Format{
		"":      FormatTable,
		"table": FormatTable,
		"JSON":  FormatJSON,
		" csv ": FormatCSV,
	} {
		got, err := ParseFormat(input)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestTableFormat(t *testing.T) {
	out, err := (&TableFormatter{}).FormatReport(sampleReport())
	require.NoError(t, err)

	assert.Contains(t, out, "تک نان طلایی")
	assert.Contains(t, out, "140212345")
	assert.Contains(t, out, "1 approved, 1 rejected of 2 names")
}

func TestJSONFormatRoundTrips(t *testing.T) {
	out, err := (&JSONFormatter{Indent: true}).FormatReport(sampleReport())
	require.NoError(t, err)

	var decoded Report
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "run-1", decoded.Summary.RunID)
	require.Len(t, decoded.Records, 2)
	assert.Equal(t, core.StatusConflict, decoded.Records[0].Status)
}

func TestCSVFormat(t *testing.T) {
	out, err := (&CSVFormatter{}).FormatReport(sampleReport())
	require.NoError(t, err)

	rows, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3, "header plus two records")
	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, "rec-1", rows[1][0])
	assert.Equal(t, "conflict", rows[1][3])
	assert.Equal(t, "2026-03-14T09:30:00Z", rows[1][9])
}

func TestCSVStripsControlCharacters(t *testing.T) {
	report := sampleReport()
	report.Records[0].Owner = "شرکت\x00\x07 نمونه\x1f"
	report.Records[0].GoodsDescription = "سطر اول\nسطر دوم"

	out, err := (&CSVFormatter{}).FormatReport(report)
	require.NoError(t, err)

	rows, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, "شرکت نمونه", rows[1][6])
	assert.Equal(t, "سطر اول\nسطر دوم", rows[1][7], "newlines survive sanitization")
}

func TestMarkdownEscapesPipes(t *testing.T) {
	report := sampleReport()
	report.Records[0].BrandTitle = "alpha|beta"

	out, err := (&MarkdownFormatter{}).FormatReport(report)
	require.NoError(t, err)
	assert.Contains(t, out, `alpha\|beta`)
	assert.Contains(t, out, "**Verdict**: 1 approved, 1 rejected of 2 names")
}

func TestCancelledSummaryLine(t *testing.T) {
	s := core.RunSummary{Names: 5, Approved: 1, Rejected: 1, Errors: 2, Cancelled: true}
	assert.Equal(t, "1 approved, 1 rejected of 5 names, 2 errors (cancelled)", summaryLine(s))
}

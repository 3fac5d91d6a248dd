package output

import (
	"encoding/json"
)

// JSONFormatter renders a run report as JSON.
type JSONFormatter struct {
	Indent bool
}

// FormatReport renders the summary and records as one JSON document.
func (f *JSONFormatter) FormatReport(report *Report) (string, error) {
	if report == nil {
		return "", nil
	}

	var (
		data []byte
		err  error
	)

	if f.Indent {
		data, err = json.MarshalIndent(report, "", "  ")
	} else {
		data, err = json.Marshal(report)
	}
	if err != nil {
		return "", err
	}

	return string(data), nil
}

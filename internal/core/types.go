package core

import (
	"regexp"
	"strings"
	"time"
)

// Status classifies the terminal outcome of a conflict check.
type Status string

const (
	StatusClean    Status = "clean"
	StatusConflict Status = "conflict"
	StatusError    Status = "error"
)

// NameQuery is one proposed name parsed from an input line. A parenthesised
// suffix is treated as an explicit translation, e.g. "سیب (Apple)".
type NameQuery struct {
	RawText     string `json:"raw_text"`
	BaseText    string `json:"base_text"`
	Translation string `json:"translation,omitempty"`
}

var translationRe = regexp.MustCompile(`\((.*?)\)`)

// ParseNameQuery splits an input line into its base text and optional
// parenthesised translation. The query is immutable after parsing.
func ParseNameQuery(line string) NameQuery {
	raw := strings.TrimSpace(line)
	q := NameQuery{RawText: raw, BaseText: raw}
	if m := translationRe.FindStringSubmatch(raw); m != nil {
		q.Translation = m[1]
		q.BaseText = strings.TrimSpace(strings.Replace(raw, "("+m[1]+")", "", 1))
	}
	return q
}

// AnalysisReport is the diagnostic output of variant analysis, attached to
// log output only.
type AnalysisReport struct {
	CoreRoot    string `json:"core_root"`
	Fingilish   string `json:"fingilish"`
	Translation string `json:"translation,omitempty"`
}

// ConflictRecord is one row per matched registry entry, or one synthetic
// clean summary row per name when every variant for that name came back
// empty.
type ConflictRecord struct {
	RecordID           string    `json:"record_id"`
	SearchTerm         string    `json:"search_term"`
	Variant            string    `json:"variant"`
	Status             Status    `json:"status"`
	BrandTitle         string    `json:"brand_title,omitempty"`
	RegistrationNumber string    `json:"registration_number,omitempty"`
	Owner              string    `json:"owner,omitempty"`
	GoodsDescription   string    `json:"goods_description,omitempty"`
	Page               int       `json:"page,omitempty"`
	ObservedAt         time.Time `json:"observed_at"`
}

// SummaryVariant marks the synthetic per-name clean summary row.
const SummaryVariant = "all variants"

// IsSummary reports whether the record is a per-name verdict rather than a
// single registry match.
func (r *ConflictRecord) IsSummary() bool {
	return r.Variant == SummaryVariant
}

// Progress reports how far through the input list a run is.
type Progress struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

// RunSummary aggregates a finished (or cancelled) run.
type RunSummary struct {
	RunID       string    `json:"run_id"`
	Names       int       `json:"names"`
	Approved    int       `json:"approved"`
	Rejected    int       `json:"rejected"`
	Errors      int       `json:"errors"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	Cancelled   bool      `json:"cancelled"`
}

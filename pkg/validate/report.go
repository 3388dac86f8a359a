package validate

import (
	"encoding/json"
	"fmt"
	"io"
)

// Report is the JSON-serializable validation report.
type Report struct {
	Source        string                 `json:"source,omitempty"`
	Objects       int                    `json:"objects"`
	TotalFindings int                    `json:"total_findings"`
	Errors        int                    `json:"errors"`
	Warnings      int                    `json:"warnings"`
	Categories    map[string]CategorySum `json:"categories"`
	Findings      []Finding              `json:"findings"`
}

// CategorySum counts the findings of one category.
type CategorySum struct {
	Label   string `json:"label"`
	Total   int    `json:"total"`
	Fixable int    `json:"fixable"`
	Fixed   int    `json:"fixed"`
}

// reportOrder is the order categories print in.
var reportOrder = []Category{CatDump, CatIntegrityError, CatIntegrityWarn, CatCatalog}

var categoryLabels = map[Category]string{
	CatDump:           "Dump completeness",
	CatIntegrityError: "Broken references",
	CatIntegrityWarn:  "Suspicious references",
	CatCatalog:        "Catalog mismatches",
}

// GenerateReport summarizes the validator's current findings.
func GenerateReport(v *Validator) *Report {
	r := &Report{
		Objects:       len(v.db.Objects),
		TotalFindings: len(v.findings),
		Categories:    make(map[string]CategorySum),
		Findings:      v.findings,
	}
	for _, f := range v.findings {
		if !f.Fixed {
			switch f.Severity {
			case SevError:
				r.Errors++
			case SevWarning:
				r.Warnings++
			}
		}

		key := f.Category.String()
		sum := r.Categories[key]
		sum.Label = categoryLabels[f.Category]
		sum.Total++
		if f.Fixable {
			sum.Fixable++
		}
		if f.Fixed {
			sum.Fixed++
		}
		r.Categories[key] = sum
	}
	return r
}

// WriteJSON writes the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteText writes one line per finding followed by per-category totals.
func (r *Report) WriteText(w io.Writer) error {
	tw := &textWriter{w: w}
	tw.printf("=== VALIDATION: %s ===\n", r.Source)
	for _, f := range r.Findings {
		mark := ""
		switch {
		case f.Fixed:
			mark = " (fixed)"
		case f.Fixable:
			mark = " (fixable)"
		}
		tw.printf("%-7s %-8s %s%s\n", f.Severity, f.ObjectRef, f.Description, mark)
	}
	tw.printf("\n")
	for _, cat := range reportOrder {
		sum, ok := r.Categories[cat.String()]
		if !ok {
			continue
		}
		tw.printf("  %-24s %d (%d fixable, %d fixed)\n", sum.Label, sum.Total, sum.Fixable, sum.Fixed)
	}
	tw.printf("\nObjects: %d  Findings: %d  Errors: %d  Warnings: %d\n",
		r.Objects, r.TotalFindings, r.Errors, r.Warnings)
	return tw.err
}

// textWriter keeps the first write error.
type textWriter struct {
	w   io.Writer
	err error
}

func (t *textWriter) printf(format string, args ...any) {
	if t.err == nil {
		_, t.err = fmt.Fprintf(t.w, format, args...)
	}
}

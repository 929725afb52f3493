/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
)

// Output formats of the submit command.
const (
	OutputFormatTable = "table"
	OutputFormatJSON  = "json"
)

const maxDetailsWidth = 60

type batchReport struct {
	Results  []submissionOutcome `json:"results"`
	Accepted int                 `json:"accepted"`
	Total    int                 `json:"total"`
}

func newBatchReport(outcomes []submissionOutcome) *batchReport {
	report := &batchReport{Results: outcomes, Total: len(outcomes)}
	for _, o := range outcomes {
		if o.accepted() {
			report.Accepted++
		}
	}
	return report
}

func writeReport(w io.Writer, report *batchReport, format string) error {
	switch format {
	case OutputFormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case OutputFormatTable, "":
		_, err := io.WriteString(w, renderTable(report)+"\n")
		return err
	}
	return fmt.Errorf("unknown output format %q", format)
}

func renderTable(report *batchReport) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"File", "Doc ID", "Outcome", "Status", "Details"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Details", WidthMax: maxDetailsWidth},
	})

	for _, r := range report.Results {
		status := ""
		if r.StatusCode != 0 {
			status = strconv.Itoa(r.StatusCode)
		}
		details := r.Error
		if details == "" && !r.accepted() {
			details = r.Response
		}
		t.AppendRow(table.Row{r.File, r.DocID, r.Outcome, status, details})
	}
	t.AppendFooter(table.Row{"", "", fmt.Sprintf("%d/%d accepted", report.Accepted, report.Total), "", ""})
	return t.Render()
}

package summary

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"
)

// Report is the rendered form of a batch run.
type Report struct {
	RunID       string  `json:"run_id"`
	ModelID     string  `json:"model_id"`
	GeneratedAt string  `json:"generated_at"`
	Labels      []Tally `json:"labels"`
	Failed      int     `json:"failed"`
}

// NewReport snapshots the aggregator.
func NewReport(runID, modelID string, a *Aggregator) Report {
	return Report{
		RunID:       runID,
		ModelID:     modelID,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Labels:      a.Tallies(),
		Failed:      a.Failed(),
	}
}

// WriteText renders the report as an aligned table.
func WriteText(w io.Writer, r Report) error {
	fmt.Fprintln(w, "Summary report:")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "LABEL\tTOTAL\tALLOWED\tBLOCKED\tERRORS")
	for _, t := range r.Labels {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\n", t.Label, t.Total, t.Allowed, t.Blocked, t.Errors)
	}
	return tw.Flush()
}

// BuildMarkdown renders the report as a markdown document.
func BuildMarkdown(r Report) string {
	var b strings.Builder
	b.WriteString("# Guardrail Batch Summary\n\n")
	b.WriteString(fmt.Sprintf("- Run: `%s`\n", r.RunID))
	b.WriteString(fmt.Sprintf("- Model: `%s`\n", r.ModelID))
	b.WriteString(fmt.Sprintf("- Failed invocations: `%d`\n\n", r.Failed))

	b.WriteString("| Label | Total | Allowed | Blocked | Errors |\n")
	b.WriteString("|---|---:|---:|---:|---:|\n")
	for _, t := range r.Labels {
		label := strings.ReplaceAll(t.Label, "|", "\\|")
		if label == "" {
			label = "-"
		}
		b.WriteString(fmt.Sprintf("| %s | %d | %d | %d | %d |\n", label, t.Total, t.Allowed, t.Blocked, t.Errors))
	}
	return b.String()
}

// WriteMarkdown writes BuildMarkdown output to w.
func WriteMarkdown(w io.Writer, r Report) error {
	_, err := io.WriteString(w, BuildMarkdown(r))
	return err
}

// WriteJSON writes the report as indented JSON.
func WriteJSON(w io.Writer, r Report) error {
	raw, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	raw = append(raw, '\n')
	_, err = w.Write(raw)
	return err
}

package session

import (
	"context"
	"fmt"
	"io"

	"github.com/pennsieve/promptcheck/internal/config"
	"github.com/pennsieve/promptcheck/internal/corpus"
	"github.com/pennsieve/promptcheck/internal/summary"
)

// BatchOptions configures a batch run.
type BatchOptions struct {
	PromptsFile   string
	RunID         string
	SummaryReport bool
	SummaryFormat string
}

// RunBatch invokes every record of the corpus in order and returns the
// aggregated tallies. A missing corpus aborts before any invocation with an
// error wrapping corpus.ErrNotFound. Cancelling ctx stops the run after the
// current prompt and returns ctx.Err() with the partial tallies.
func (s *Runner) RunBatch(ctx context.Context, opts BatchOptions) (*summary.Aggregator, error) {
	records, err := corpus.Load(opts.PromptsFile)
	if err != nil {
		return nil, err
	}

	agg := summary.NewAggregator()
	s.log.Info("Batch run %s started with %d prompts from %s", opts.RunID, len(records), opts.PromptsFile)
	fmt.Fprintf(s.out, "Running %d prompts against model %s\n", len(records), s.modelID)

	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			s.log.Info("Batch run %s interrupted after %d prompts", opts.RunID, i)
			return agg, err
		}
		outcome := s.invoker.Invoke(ctx, rec.Prompt)
		agg.Record(rec.Label, outcome)
		fmt.Fprintf(s.out, "[%d/%d] %s: %s\n", i+1, len(records), rec.Label, outcome.Kind)
	}

	s.log.Info("Batch run %s finished: %d prompts, %d failed", opts.RunID, len(records), agg.Failed())

	if opts.SummaryReport {
		report := summary.NewReport(opts.RunID, s.modelID, agg)
		if err := RenderSummary(s.out, opts.SummaryFormat, report); err != nil {
			return agg, err
		}
	}
	return agg, nil
}

// RenderSummary writes report in the given format; empty means text.
func RenderSummary(w io.Writer, format string, report summary.Report) error {
	switch format {
	case "", config.FormatText:
		return summary.WriteText(w, report)
	case config.FormatMarkdown:
		return summary.WriteMarkdown(w, report)
	case config.FormatJSON:
		return summary.WriteJSON(w, report)
	default:
		return fmt.Errorf("unsupported summary format %s", format)
	}
}

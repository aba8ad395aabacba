// Package report renders the auditable artifacts of a run: a persisted JSON
// report and a human-readable console summary.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/example/campaign-dispatcher/internal/models"
)

// DefaultPath is where the report lands unless configured otherwise.
const DefaultPath = "./report.json"

// FailurePreviewLimit bounds how many failure records the summary prints.
const FailurePreviewLimit = 10

// Build produces an immutable report snapshot: current timestamp, a copy of
// the statistics as they stand, and the full ordered outcome sequence.
func Build(stats models.RunStatistics, outcomes []models.DispatchOutcome) models.Report {
	return models.Report{
		Timestamp: time.Now().UTC(),
		Stats:     stats.Clone(),
		Details:   append([]models.DispatchOutcome(nil), outcomes...),
	}
}

// Write serializes the report to path as an indented JSON document.
func Write(rep models.Report, path string) error {
	if strings.TrimSpace(path) == "" {
		path = DefaultPath
	}
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("report: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("report: write %s: %w", path, err)
	}
	return nil
}

// Summary renders sent/failed counts with percentages and a bounded preview
// of failure records. The percentage denominator is the total; a zero total
// is reported as such instead of dividing.
func Summary(stats models.RunStatistics) string {
	var b strings.Builder

	if stats.Total == 0 {
		b.WriteString("No recipients dispatched.\n")
		return b.String()
	}

	sentPct := float64(stats.Sent) * 100 / float64(stats.Total)
	failedPct := float64(stats.Failed) * 100 / float64(stats.Total)
	fmt.Fprintf(&b, "Dispatched %d message(s): %d sent (%.1f%%), %d failed (%.1f%%)\n",
		stats.Total, stats.Sent, sentPct, stats.Failed, failedPct)

	if len(stats.Errors) == 0 {
		return b.String()
	}

	b.WriteString("Failures:\n")
	preview := stats.Errors
	if len(preview) > FailurePreviewLimit {
		preview = preview[:FailurePreviewLimit]
	}
	for _, rec := range preview {
		fmt.Fprintf(&b, "  %s: %s\n", rec.Phone, rec.Error)
	}
	if suppressed := len(stats.Errors) - len(preview); suppressed > 0 {
		fmt.Fprintf(&b, "  ... and %d more failure(s)\n", suppressed)
	}
	return b.String()
}

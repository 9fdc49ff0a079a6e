// Package report assembles run reports and writes them to disk.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prowlqa/prowl/internal/model"
)

// Build assembles the immutable report for a finished run. Summary
// counters always carry all five keys, zero-valued when absent.
func Build(runID, url string, results []model.TestResult, triageNotes map[string]string) *model.RunReport {
	summary := map[string]int{
		"total":  len(results),
		"passed": 0,
		"failed": 0,
		"flaky":  0,
		"errors": 0,
	}
	for _, r := range results {
		switch r.Verdict {
		case model.VerdictPass:
			summary["passed"]++
		case model.VerdictFail:
			summary["failed"]++
		case model.VerdictFlaky:
			summary["flaky"]++
		case model.VerdictError:
			summary["errors"]++
		}
	}

	return &model.RunReport{
		RunID:       runID,
		URL:         url,
		Timestamp:   time.Now().UTC(),
		Summary:     summary,
		Results:     results,
		TriageNotes: triageNotes,
	}
}

// WriteJSON writes the report to <outDir>/report.json.
func WriteJSON(outDir string, rep *model.RunReport) error {
	if rep == nil {
		return fmt.Errorf("report is required")
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", outDir, err)
	}

	path := filepath.Join(outDir, "report.json")
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report to %s: %w", path, err)
	}
	return nil
}

package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/prowlqa/prowl/internal/model"
)

// WriteMarkdown writes the rendered report to <outDir>/report.md.
func WriteMarkdown(outDir string, rep *model.RunReport) error {
	if rep == nil {
		return fmt.Errorf("report is required")
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", outDir, err)
	}

	path := filepath.Join(outDir, "report.md")
	if err := os.WriteFile(path, []byte(RenderMarkdown(rep)), 0644); err != nil {
		return fmt.Errorf("failed to write report to %s: %w", path, err)
	}
	return nil
}

// RenderMarkdown renders the run report as a Markdown string.
func RenderMarkdown(rep *model.RunReport) string {
	if rep == nil {
		return ""
	}

	var sb strings.Builder

	sb.WriteString("# Test Run Report\n\n")

	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Run ID | %s |\n", rep.RunID))
	sb.WriteString(fmt.Sprintf("| Target | %s |\n", escapeMarkdown(rep.URL)))
	sb.WriteString(fmt.Sprintf("| Timestamp | %s |\n", rep.Timestamp.Format("2006-01-02 15:04:05 UTC")))
	sb.WriteString(fmt.Sprintf("| Total | %d |\n", rep.Summary["total"]))
	sb.WriteString(fmt.Sprintf("| Passed | %d |\n", rep.Summary["passed"]))
	sb.WriteString(fmt.Sprintf("| Failed | %d |\n", rep.Summary["failed"]))
	sb.WriteString(fmt.Sprintf("| Flaky | %d |\n", rep.Summary["flaky"]))
	sb.WriteString(fmt.Sprintf("| Errors | %d |\n", rep.Summary["errors"]))
	sb.WriteString("\n")

	if len(rep.Results) > 0 {
		sb.WriteString("## Results\n\n")
		sb.WriteString("| Test Case | Verdict | Reproducible | Notes |\n")
		sb.WriteString("|-----------|---------|--------------|-------|\n")

		sorted := make([]model.TestResult, len(rep.Results))
		copy(sorted, rep.Results)
		sort.Slice(sorted, func(i, j int) bool {
			orderI := verdictOrder(sorted[i].Verdict)
			orderJ := verdictOrder(sorted[j].Verdict)
			if orderI != orderJ {
				return orderI < orderJ
			}
			return sorted[i].TestcaseID < sorted[j].TestcaseID
		})
		for _, r := range sorted {
			sb.WriteString(fmt.Sprintf("| %s | %s | %t | %s |\n",
				escapeMarkdown(r.TestcaseID),
				r.Verdict,
				r.Reproducible,
				escapeMarkdown(r.Notes),
			))
		}
		sb.WriteString("\n")
	}

	if len(rep.TriageNotes) > 0 {
		sb.WriteString("## Triage\n\n")
		ids := make([]string, 0, len(rep.TriageNotes))
		for id := range rep.TriageNotes {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			sb.WriteString(fmt.Sprintf("- **%s**: %s\n", escapeMarkdown(id), escapeMarkdown(rep.TriageNotes[id])))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// verdictOrder puts the noisiest outcomes first.
func verdictOrder(v model.Verdict) int {
	switch v {
	case model.VerdictError:
		return 0
	case model.VerdictFail:
		return 1
	case model.VerdictFlaky:
		return 2
	case model.VerdictPass:
		return 3
	default:
		return 4
	}
}

// escapeMarkdown escapes pipe characters which break tables.
func escapeMarkdown(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}

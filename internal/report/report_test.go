package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prowlqa/prowl/internal/model"
)

func sampleResults() []model.TestResult {
	return []model.TestResult{
		{TestcaseID: "tc-001", Verdict: model.VerdictPass, Reproducible: true},
		{TestcaseID: "tc-002", Verdict: model.VerdictFail, Reproducible: true},
		{TestcaseID: "tc-003", Verdict: model.VerdictFlaky},
		{TestcaseID: "tc-004", Verdict: model.VerdictError},
		{TestcaseID: "tc-005", Verdict: model.VerdictPass, Reproducible: true},
	}
}

func TestBuildSummaryCounts(t *testing.T) {
	rep := Build("run-1", "http://example.test", sampleResults(), nil)

	assert.Equal(t, 5, rep.Summary["total"])
	assert.Equal(t, 2, rep.Summary["passed"])
	assert.Equal(t, 1, rep.Summary["failed"])
	assert.Equal(t, 1, rep.Summary["flaky"])
	assert.Equal(t, 1, rep.Summary["errors"])
	assert.Equal(t, "run-1", rep.RunID)
	assert.False(t, rep.Timestamp.IsZero())
}

func TestBuildEmptyRun(t *testing.T) {
	rep := Build("run-1", "http://example.test", nil, nil)

	assert.Equal(t, 0, rep.Summary["total"])
	assert.Equal(t, 0, rep.Summary["passed"])
	assert.Empty(t, rep.Results)
}

func TestWriteJSONRoundTrip(t *testing.T) {
	dir := t.TempDir()
	rep := Build("run-1", "http://example.test", sampleResults(), map[string]string{
		"tc-002": "Selector changed",
	})

	require.NoError(t, WriteJSON(dir, rep))

	data, err := os.ReadFile(filepath.Join(dir, "report.json"))
	require.NoError(t, err)

	var decoded model.RunReport
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, rep.RunID, decoded.RunID)
	assert.Equal(t, rep.Summary, decoded.Summary)
	assert.Equal(t, "Selector changed", decoded.TriageNotes["tc-002"])
}

func TestWriteJSONNilReport(t *testing.T) {
	assert.Error(t, WriteJSON(t.TempDir(), nil))
}

func TestRenderMarkdownContents(t *testing.T) {
	rep := Build("run-1", "http://example.test", sampleResults(), map[string]string{
		"tc-002": "Selector changed",
	})

	md := RenderMarkdown(rep)
	assert.Contains(t, md, "# Test Run Report")
	assert.Contains(t, md, "| Passed | 2 |")
	assert.Contains(t, md, "| Flaky | 1 |")
	assert.Contains(t, md, "tc-003")
	assert.Contains(t, md, "**tc-002**: Selector changed")

	// Noisy verdicts sort first in the results table.
	assert.Less(t, strings.Index(md, "tc-004"), strings.Index(md, "tc-001"))
}

func TestRenderMarkdownEscapesPipes(t *testing.T) {
	results := []model.TestResult{
		{TestcaseID: "tc|tricky", Verdict: model.VerdictPass, Reproducible: true},
	}
	md := RenderMarkdown(Build("run-1", "http://example.test", results, nil))
	assert.Contains(t, md, `tc\|tricky`)
}

func TestWriteMarkdownCreatesFile(t *testing.T) {
	dir := t.TempDir()
	rep := Build("run-1", "http://example.test", sampleResults(), nil)

	require.NoError(t, WriteMarkdown(dir, rep))
	_, err := os.Stat(filepath.Join(dir, "report.md"))
	assert.NoError(t, err)
}

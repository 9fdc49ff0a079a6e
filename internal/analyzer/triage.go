package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/prowlqa/prowl/internal/logging"
	"github.com/prowlqa/prowl/internal/model"
)

// fallbackNote is used when AI triage is unavailable or fails.
const fallbackNote = "Test failed - needs investigation"

// ChatCompleter is the slice of an LLM client the triage generator needs.
type ChatCompleter interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Triager derives short triage notes for failed test results. When no
// completer is configured every failed case gets a fixed fallback note.
type Triager struct {
	completer ChatCompleter
}

// NewTriager creates a triager. completer may be nil.
func NewTriager(completer ChatCompleter) *Triager {
	return &Triager{completer: completer}
}

var jsonObjectRe = regexp.MustCompile(`(?s)\{.*\}`)

// Notes generates triage notes for the FAIL results in the slice, keyed
// by testcase id. Cases with other verdicts get no note.
func (t *Triager) Notes(ctx context.Context, results []model.TestResult) map[string]string {
	notes := make(map[string]string)

	var failed []model.TestResult
	for _, r := range results {
		if r.Verdict == model.VerdictFail {
			failed = append(failed, r)
		}
	}
	if len(failed) == 0 {
		return notes
	}

	if t.completer != nil {
		if aiNotes, err := t.aiNotes(ctx, failed); err == nil && len(aiNotes) > 0 {
			return aiNotes
		} else if err != nil {
			logging.Warn("AI triage failed, falling back to basic notes: %v", err)
		}
	}

	for _, r := range failed {
		notes[r.TestcaseID] = fallbackNote
	}
	return notes
}

// aiNotes asks the completer for a JSON object mapping testcase id to a
// root cause and fix suggestion. At most five failures are summarized.
func (t *Triager) aiNotes(ctx context.Context, failed []model.TestResult) (map[string]string, error) {
	limit := len(failed)
	if limit > 5 {
		limit = 5
	}

	var sb strings.Builder
	for _, r := range failed[:limit] {
		detail := r.Notes
		if detail == "" {
			detail = "No details"
		}
		fmt.Fprintf(&sb, "Test %s: %s\n", r.TestcaseID, detail)
	}

	prompt := fmt.Sprintf(`Analyze test failures and provide triage notes in JSON format:
{"testcase_id": "Root cause and fix suggestion"}

Failures:
%s`, sb.String())

	content, err := t.completer.Complete(ctx, "You are a QA triage assistant.", prompt)
	if err != nil {
		return nil, err
	}

	match := jsonObjectRe.FindString(content)
	if match == "" {
		return nil, fmt.Errorf("no JSON object in triage response")
	}

	var parsed map[string]string
	if err := json.Unmarshal([]byte(match), &parsed); err != nil {
		return nil, fmt.Errorf("parsing triage response: %w", err)
	}
	return parsed, nil
}

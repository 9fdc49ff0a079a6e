package analyzer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/prowlqa/prowl/internal/model"
)

type stubCompleter struct {
	response string
	err      error
}

func (s stubCompleter) Complete(context.Context, string, string) (string, error) {
	return s.response, s.err
}

func TestNotesOnlyForFailedCases(t *testing.T) {
	results := []model.TestResult{
		{TestcaseID: "tc-001", Verdict: model.VerdictPass},
		{TestcaseID: "tc-002", Verdict: model.VerdictFail},
		{TestcaseID: "tc-003", Verdict: model.VerdictError},
		{TestcaseID: "tc-004", Verdict: model.VerdictFlaky},
	}

	notes := NewTriager(nil).Notes(context.Background(), results)
	assert.Len(t, notes, 1)
	assert.Equal(t, fallbackNote, notes["tc-002"])
}

func TestNotesUsesCompleterOutput(t *testing.T) {
	completer := stubCompleter{
		response: `Here you go: {"tc-002": "Selector changed, update the locator"}`,
	}
	results := []model.TestResult{
		{TestcaseID: "tc-002", Verdict: model.VerdictFail, Notes: "assert failed"},
	}

	notes := NewTriager(completer).Notes(context.Background(), results)
	assert.Equal(t, "Selector changed, update the locator", notes["tc-002"])
}

func TestNotesFallsBackOnCompleterError(t *testing.T) {
	completer := stubCompleter{err: errors.New("rate limited")}
	results := []model.TestResult{
		{TestcaseID: "tc-002", Verdict: model.VerdictFail},
	}

	notes := NewTriager(completer).Notes(context.Background(), results)
	assert.Equal(t, fallbackNote, notes["tc-002"])
}

func TestNotesFallsBackOnMalformedResponse(t *testing.T) {
	completer := stubCompleter{response: "I could not find any issues."}
	results := []model.TestResult{
		{TestcaseID: "tc-002", Verdict: model.VerdictFail},
	}

	notes := NewTriager(completer).Notes(context.Background(), results)
	assert.Equal(t, fallbackNote, notes["tc-002"])
}

func TestNotesEmptyForAllPassing(t *testing.T) {
	results := []model.TestResult{
		{TestcaseID: "tc-001", Verdict: model.VerdictPass},
	}
	notes := NewTriager(stubCompleter{}).Notes(context.Background(), results)
	assert.Empty(t, notes)
}

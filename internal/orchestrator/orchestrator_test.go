package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prowlqa/prowl/internal/model"
)

func simpleCase(id string) model.TestCase {
	return model.TestCase{
		ID:    id,
		Title: "Test " + id,
		Steps: []model.Step{
			{ID: 1, Action: model.ActionNavigate, Value: "http://example.test"},
			{ID: 2, Action: model.ActionAssertElement, Selector: "body"},
		},
	}
}

func okAttempt(tc model.TestCase) model.ExecutionAttempt {
	attempt := make(model.ExecutionAttempt, len(tc.Steps))
	for _, s := range tc.Steps {
		attempt[s.ID] = model.StepArtifact{StepResult: model.StepOK}
	}
	return attempt
}

// passingExecutor succeeds deterministically for every case.
type passingExecutor struct{}

func (passingExecutor) Execute(_ context.Context, tc model.TestCase, _ string) (model.ExecutionAttempt, error) {
	return okAttempt(tc), nil
}

// faultyExecutor raises an environment fault for one case id.
type faultyExecutor struct{ failID string }

func (e faultyExecutor) Execute(_ context.Context, tc model.TestCase, _ string) (model.ExecutionAttempt, error) {
	if tc.ID == e.failID {
		return nil, fmt.Errorf("browser crashed")
	}
	return okAttempt(tc), nil
}

// panickyExecutor panics for one case id.
type panickyExecutor struct{ panicID string }

func (e panickyExecutor) Execute(_ context.Context, tc model.TestCase, _ string) (model.ExecutionAttempt, error) {
	if tc.ID == e.panicID {
		panic("boom")
	}
	return okAttempt(tc), nil
}

// flakyExecutor alternates the result of step 2 between invocations of
// the same case.
type flakyExecutor struct {
	mu    sync.Mutex
	calls map[string]int
}

func (e *flakyExecutor) Execute(_ context.Context, tc model.TestCase, _ string) (model.ExecutionAttempt, error) {
	e.mu.Lock()
	if e.calls == nil {
		e.calls = make(map[string]int)
	}
	e.calls[tc.ID]++
	call := e.calls[tc.ID]
	e.mu.Unlock()

	attempt := okAttempt(tc)
	if call%2 == 0 {
		attempt[2] = model.StepArtifact{StepResult: model.StepAssertionFailed}
	}
	return attempt, nil
}

func resultsByID(results []model.TestResult) map[string]model.TestResult {
	byID := make(map[string]model.TestResult, len(results))
	for _, r := range results {
		byID[r.TestcaseID] = r
	}
	return byID
}

func TestRunAllPassing(t *testing.T) {
	cases := []model.TestCase{simpleCase("tc-001"), simpleCase("tc-002"), simpleCase("tc-003")}

	results := New(passingExecutor{}, 2).Run(context.Background(), cases, t.TempDir())
	require.Len(t, results, 3)
	for _, r := range results {
		assert.Equal(t, model.VerdictPass, r.Verdict)
		assert.True(t, r.Reproducible)
		assert.Equal(t, 2, r.Reruns)
	}
}

func TestRunIsolatesEnvironmentFaults(t *testing.T) {
	cases := []model.TestCase{simpleCase("tc-001"), simpleCase("tc-002"), simpleCase("tc-003")}

	results := New(faultyExecutor{failID: "tc-002"}, 3).Run(context.Background(), cases, t.TempDir())
	require.Len(t, results, 3)

	byID := resultsByID(results)
	assert.Equal(t, model.VerdictError, byID["tc-002"].Verdict)
	assert.Contains(t, byID["tc-002"].Notes, "browser crashed")
	assert.Equal(t, model.VerdictPass, byID["tc-001"].Verdict)
	assert.Equal(t, model.VerdictPass, byID["tc-003"].Verdict)
}

func TestRunRecoversFromPanickingExecutor(t *testing.T) {
	cases := []model.TestCase{simpleCase("tc-001"), simpleCase("tc-002")}

	results := New(panickyExecutor{panicID: "tc-001"}, 2).Run(context.Background(), cases, t.TempDir())
	require.Len(t, results, 2)

	byID := resultsByID(results)
	assert.Equal(t, model.VerdictError, byID["tc-001"].Verdict)
	assert.Contains(t, byID["tc-001"].Notes, "panicked")
	assert.Equal(t, model.VerdictPass, byID["tc-002"].Verdict)
}

func TestRunMarksNondeterminismFlakyNotPass(t *testing.T) {
	cases := []model.TestCase{simpleCase("tc-001")}

	results := New(&flakyExecutor{}, 1).Run(context.Background(), cases, t.TempDir())
	require.Len(t, results, 1)
	assert.Equal(t, model.VerdictFlaky, results[0].Verdict)
	assert.False(t, results[0].Reproducible)
}

func TestRunRejectsInvalidTestCase(t *testing.T) {
	noSteps := model.TestCase{ID: "tc-001", Title: "Empty"}

	results := New(passingExecutor{}, 1).Run(context.Background(), []model.TestCase{noSteps}, t.TempDir())
	require.Len(t, results, 1)
	assert.Equal(t, model.VerdictError, results[0].Verdict)
	assert.Contains(t, results[0].Notes, "invalid test case")
}

// gaugeExecutor tracks the maximum number of concurrent executions.
type gaugeExecutor struct {
	current atomic.Int64
	peak    atomic.Int64
}

func (e *gaugeExecutor) Execute(_ context.Context, tc model.TestCase, _ string) (model.ExecutionAttempt, error) {
	n := e.current.Add(1)
	for {
		peak := e.peak.Load()
		if n <= peak || e.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	time.Sleep(10 * time.Millisecond)
	e.current.Add(-1)
	return okAttempt(tc), nil
}

func TestRunRespectsConcurrencyCap(t *testing.T) {
	var cases []model.TestCase
	for i := 0; i < 12; i++ {
		cases = append(cases, simpleCase(fmt.Sprintf("tc-%03d", i)))
	}

	exec := &gaugeExecutor{}
	results := New(exec, 3).Run(context.Background(), cases, t.TempDir())
	require.Len(t, results, 12)
	assert.LessOrEqual(t, exec.peak.Load(), int64(3))
}

func TestRunCanceledContextReportsErrors(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cases := []model.TestCase{simpleCase("tc-001"), simpleCase("tc-002")}
	results := New(passingExecutor{}, 1).Run(ctx, cases, t.TempDir())

	// Every case still appears in the results, none are silently dropped.
	require.Len(t, results, 2)
}

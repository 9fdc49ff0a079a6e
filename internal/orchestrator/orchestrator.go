// Package orchestrator runs a batch of test cases under bounded
// concurrency, performing a double-run-and-compare protocol per case to
// detect non-deterministic behavior.
package orchestrator

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/prowlqa/prowl/internal/analyzer"
	"github.com/prowlqa/prowl/internal/logging"
	"github.com/prowlqa/prowl/internal/model"
)

// Executor runs a single test case and reports per-step artifacts. It
// must create outputDir if absent, stop emitting artifacts after the
// first step whose result is error or assertion_failed, and return an
// error only for environment-level faults (ordinary test failures are
// reported through the artifacts).
type Executor interface {
	Execute(ctx context.Context, tc model.TestCase, outputDir string) (model.ExecutionAttempt, error)
}

// Orchestrator coordinates double-run execution of ranked test cases.
type Orchestrator struct {
	executor    Executor
	concurrency int
}

// New creates an orchestrator. concurrency is the hard cap on
// simultaneously in-flight test cases; values below 1 are raised to 1.
func New(executor Executor, concurrency int) *Orchestrator {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Orchestrator{executor: executor, concurrency: concurrency}
}

// Run executes every test case twice under the admission gate and
// returns one TestResult per case. Completion order is unspecified;
// consumers must index results by testcase id. One case's failure,
// including a panicking executor, never aborts sibling cases.
func (o *Orchestrator) Run(ctx context.Context, testcases []model.TestCase, artifactsRoot string) []model.TestResult {
	sem := semaphore.NewWeighted(int64(o.concurrency))
	results := make([]model.TestResult, 0, len(testcases))

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)

	for _, tc := range testcases {
		wg.Add(1)
		go func(tc model.TestCase) {
			defer wg.Done()

			if err := sem.Acquire(ctx, 1); err != nil {
				// Whole-run cancellation: report the case as errored rather
				// than dropping it from the report.
				mu.Lock()
				results = append(results, errorResult(tc.ID, fmt.Errorf("run canceled: %w", err)))
				mu.Unlock()
				return
			}
			defer sem.Release(1)

			result := o.runCase(ctx, tc, artifactsRoot)

			mu.Lock()
			results = append(results, result)
			mu.Unlock()
		}(tc)
	}

	wg.Wait()
	return results
}

// runCase performs the double-run-and-compare protocol for one case.
// The two runs are sequential relative to each other; artifacts land in
// isolated run1/run2 subdirectories so concurrent cases never collide.
func (o *Orchestrator) runCase(ctx context.Context, tc model.TestCase, artifactsRoot string) (result model.TestResult) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("executor panicked for case %s: %v", tc.ID, r)
			result = errorResult(tc.ID, fmt.Errorf("executor panicked: %v", r))
		}
	}()

	if err := tc.Validate(); err != nil {
		return errorResult(tc.ID, fmt.Errorf("invalid test case: %w", err))
	}

	caseDir := filepath.Join(artifactsRoot, tc.ID)

	primary, err := o.executor.Execute(ctx, tc, filepath.Join(caseDir, "run1"))
	if err != nil {
		return errorResult(tc.ID, err)
	}

	rerun, err := o.executor.Execute(ctx, tc, filepath.Join(caseDir, "run2"))
	if err != nil {
		return errorResult(tc.ID, err)
	}

	reproducible, _ := analyzer.Analyze(primary, rerun)

	verdict := model.VerdictPass
	for _, artifact := range primary {
		if artifact.StepResult == model.StepAssertionFailed || artifact.StepResult == model.StepError {
			verdict = model.VerdictFail
			break
		}
	}
	if !reproducible {
		// ERROR is never downgraded; PASS/FAIL become FLAKY.
		verdict = model.VerdictFlaky
	}

	logging.Debug("case %s completed: verdict=%s reproducible=%t", tc.ID, verdict, reproducible)

	return model.TestResult{
		TestcaseID:   tc.ID,
		Verdict:      verdict,
		Artifacts:    primary,
		Reruns:       2,
		Reproducible: reproducible,
		Notes:        fmt.Sprintf("Test completed with verdict: %s", verdict),
	}
}

// errorResult converts an environment fault into a per-case ERROR result.
// No reproducibility claim is made for errored cases.
func errorResult(testcaseID string, err error) model.TestResult {
	return model.TestResult{
		TestcaseID: testcaseID,
		Verdict:    model.VerdictError,
		Artifacts:  model.ExecutionAttempt{},
		Notes:      err.Error(),
	}
}

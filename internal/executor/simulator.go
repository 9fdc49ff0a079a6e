package executor

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"

	"github.com/prowlqa/prowl/internal/model"
)

// Simulator executes test cases without a browser. Step outcomes and
// screenshot bytes are a pure function of the case and step, so two runs
// of the same case always produce identical artifacts. Useful for dry
// runs and for exercising the pipeline where no Chrome is available.
type Simulator struct {
	// FailStep maps a test case ID to the step ID that should report
	// assertion_failed. Cases not listed pass every step.
	FailStep map[string]int

	// ErrorCase lists case IDs whose execution returns an environment
	// error instead of artifacts.
	ErrorCase map[string]bool
}

// NewSimulator returns a simulator where every case passes.
func NewSimulator() *Simulator {
	return &Simulator{}
}

// Execute walks the steps in order, writing one deterministic screenshot
// per step. Emission stops at the first failing step, matching the
// browser executor's contract.
func (s *Simulator) Execute(ctx context.Context, tc model.TestCase, outputDir string) (model.ExecutionAttempt, error) {
	if s.ErrorCase[tc.ID] {
		return nil, fmt.Errorf("simulated environment fault for case %s", tc.ID)
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory: %w", err)
	}

	artifacts := make(model.ExecutionAttempt, len(tc.Steps))
	failAt, hasFail := s.FailStep[tc.ID]

	for _, step := range tc.Steps {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		screenshotPath := filepath.Join(outputDir, fmt.Sprintf("step%d.png", step.ID))
		if err := os.WriteFile(screenshotPath, screenshotBytes(tc.ID, step), 0644); err != nil {
			return nil, fmt.Errorf("failed to write screenshot: %w", err)
		}

		artifact := model.StepArtifact{
			StepResult:     model.StepOK,
			ScreenshotPath: screenshotPath,
			DOMSnapshot:    fmt.Sprintf("<html><body data-case=%q data-step=\"%d\"></body></html>", tc.ID, step.ID),
			ConsoleLogs:    []string{fmt.Sprintf("log: %s step %d", step.Action, step.ID)},
		}
		if hasFail && step.ID == failAt {
			artifact.StepResult = model.StepAssertionFailed
			artifact.Error = fmt.Sprintf("simulated assertion failure at step %d", step.ID)
		}
		artifacts[step.ID] = artifact

		if artifact.StepResult != model.StepOK {
			break
		}
	}
	return artifacts, nil
}

// screenshotBytes derives stable screenshot content from the case and
// step identity so reruns compare byte-equal.
func screenshotBytes(caseID string, step model.Step) []byte {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s/%d/%s/%s", caseID, step.ID, step.Action, step.Selector)))
	return sum[:]
}

package model

import (
	"fmt"
	"time"
)

// Verdict is the overall outcome of a completed test case.
type Verdict string

const (
	VerdictPass  Verdict = "PASS"
	VerdictFail  Verdict = "FAIL"
	VerdictFlaky Verdict = "FLAKY"
	VerdictError Verdict = "ERROR"
)

// Step result values reported by an executor.
const (
	StepOK              = "ok"
	StepAssertionFailed = "assertion_failed"
	StepError           = "error"
)

// Step actions understood by the executors.
const (
	ActionNavigate      = "navigate"
	ActionClick         = "click"
	ActionType          = "type"
	ActionWaitFor       = "wait_for"
	ActionAssertText    = "assert_text"
	ActionAssertElement = "assert_element"
	ActionEvaluateJS    = "evaluate_js"
)

// Step is one ordered unit of a test case. Steps are immutable once the
// test case is created; the id defines execution order within the case.
type Step struct {
	ID       int    `json:"id"`
	Action   string `json:"action"`
	Selector string `json:"selector,omitempty"`
	Value    string `json:"value,omitempty"`
	Note     string `json:"note,omitempty"`
}

// TestCase is a generated candidate test. Consumed read-only by the ranker
// and the orchestrator.
type TestCase struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Steps       []Step   `json:"steps"`
	Tags        []string `json:"tags,omitempty"`
}

// Validate checks the structural invariants of a test case: at least one
// step, and step ids unique within the case.
func (tc *TestCase) Validate() error {
	if tc.ID == "" {
		return fmt.Errorf("test case has no id")
	}
	if len(tc.Steps) == 0 {
		return fmt.Errorf("test case %s has no steps", tc.ID)
	}
	seen := make(map[int]bool, len(tc.Steps))
	for _, s := range tc.Steps {
		if seen[s.ID] {
			return fmt.Errorf("test case %s has duplicate step id %d", tc.ID, s.ID)
		}
		seen[s.ID] = true
	}
	return nil
}

// StepArtifact is the recorded result of executing a single step.
type StepArtifact struct {
	StepResult         string   `json:"step_result"`
	ScreenshotPath     string   `json:"screenshot_path,omitempty"`
	DOMSnapshot        string   `json:"dom_snapshot,omitempty"`
	ConsoleLogs        []string `json:"console_logs,omitempty"`
	NetworkCapturePath string   `json:"network_capture_path,omitempty"`
	Error              string   `json:"error,omitempty"`
}

// ExecutionAttempt maps step id to the artifact produced for that step
// during one full run of a test case. Steps after the first failure are
// absent from the map.
type ExecutionAttempt map[int]StepArtifact

// StepDiff records the per-step comparison of two execution attempts.
type StepDiff struct {
	PrimaryResult    string `json:"primary_result"`
	RerunResult      string `json:"rerun_result"`
	ScreenshotMatch  bool   `json:"screenshot_match"`
	StepReproducible bool   `json:"step_reproducible"`
}

// TestResult is the outcome of orchestrating one test case: the verdict,
// the primary attempt's artifacts, and the reproducibility determination.
type TestResult struct {
	TestcaseID   string           `json:"testcase_id"`
	Verdict      Verdict          `json:"verdict"`
	Artifacts    ExecutionAttempt `json:"artifacts"`
	Reruns       int              `json:"reruns"`
	Reproducible bool             `json:"reproducible"`
	Notes        string           `json:"notes,omitempty"`
}

// RunReport is the immutable record of a completed orchestration pass.
// Results are indexed by testcase_id, not position.
type RunReport struct {
	RunID       string            `json:"run_id"`
	URL         string            `json:"url"`
	Timestamp   time.Time         `json:"timestamp"`
	Summary     map[string]int    `json:"summary"`
	Results     []TestResult      `json:"results"`
	TriageNotes map[string]string `json:"triage_notes"`
}

// FeedbackRecord is one append-only user rating of a test case.
type FeedbackRecord struct {
	ID           string    `json:"id"`
	RunID        string    `json:"run_id"`
	TestcaseID   string    `json:"testcase_id"`
	Score        int       `json:"score"`
	Comment      string    `json:"comment,omitempty"`
	FeedbackType string    `json:"feedback_type"`
	Verdict      Verdict   `json:"verdict,omitempty"`
	Reproducible bool      `json:"reproducible,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// TrainingSample is a historically successful, positively rated test case
// usable as retrieval context for future generation.
type TrainingSample struct {
	TestCase TestCase   `json:"testcase"`
	Result   TestResult `json:"result"`
	Score    int        `json:"score"`
}

// PerformanceMetrics is a windowed aggregate over outcomes and feedback.
// Recomputed on demand; never the source of truth.
type PerformanceMetrics struct {
	PassRate            float64 `json:"pass_rate"`
	AvgFeedbackScore    float64 `json:"avg_feedback_score"`
	FeedbackCount       int     `json:"feedback_count"`
	ReproducibilityRate float64 `json:"reproducibility_rate"`
	TotalTests          int     `json:"total_tests"`
	PeriodDays          int     `json:"period_days"`
}

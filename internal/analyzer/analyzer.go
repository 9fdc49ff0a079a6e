// Package analyzer compares two independent executions of the same test
// case and produces a per-step, and overall, determinism verdict.
package analyzer

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"

	"github.com/prowlqa/prowl/internal/model"
)

// hashFile returns the SHA-256 hex digest of a file's content, or an
// empty string if the file cannot be read.
func hashFile(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return ""
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Analyze compares the primary and rerun attempts of a test case.
//
// For every step id present in the primary attempt, the rerun artifact is
// looked up (a missing rerun step is a non-match, not an error). Two
// channels are compared: the step_result strings must be equal, and, when
// both attempts recorded a screenshot, the screenshots' content hashes
// must be equal. Comparison is content-addressed: any byte difference is
// a mismatch, even rendering noise. A hashing failure degrades the
// comparison to screenshot_match=false rather than raising.
//
// The overall result is true iff every step is reproducible. Inputs are
// not mutated; the only I/O is reading screenshot bytes for hashing.
func Analyze(primary, rerun model.ExecutionAttempt) (bool, map[int]model.StepDiff) {
	diffs := make(map[int]model.StepDiff, len(primary))
	reproducible := true

	for stepID, primaryArtifact := range primary {
		rerunArtifact := rerun[stepID]

		screenshotMatch := true
		if primaryArtifact.ScreenshotPath != "" && rerunArtifact.ScreenshotPath != "" {
			primaryHash := hashFile(primaryArtifact.ScreenshotPath)
			rerunHash := hashFile(rerunArtifact.ScreenshotPath)
			screenshotMatch = primaryHash != "" && primaryHash == rerunHash
		}

		stepReproducible := primaryArtifact.StepResult == rerunArtifact.StepResult && screenshotMatch

		diffs[stepID] = model.StepDiff{
			PrimaryResult:    primaryArtifact.StepResult,
			RerunResult:      rerunArtifact.StepResult,
			ScreenshotMatch:  screenshotMatch,
			StepReproducible: stepReproducible,
		}

		if !stepReproducible {
			reproducible = false
		}
	}

	return reproducible, diffs
}

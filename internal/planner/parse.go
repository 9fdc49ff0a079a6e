package planner

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/prowlqa/prowl/internal/logging"
	"github.com/prowlqa/prowl/internal/model"
)

var jsonArrayPattern = regexp.MustCompile(`(?s)\[.*\]`)

// ParseCandidates extracts structured test cases from free-form model
// output. It succeeds only when at least one well-formed candidate is
// found; otherwise it returns an error describing why, so the caller
// can fall back to deterministic generation.
func ParseCandidates(content string) ([]model.TestCase, error) {
	match := jsonArrayPattern.FindString(content)
	if match == "" {
		return nil, fmt.Errorf("model output contains no JSON array")
	}

	var raw []model.TestCase
	if err := json.Unmarshal([]byte(match), &raw); err != nil {
		return nil, fmt.Errorf("model output is not valid JSON: %w", err)
	}

	var valid []model.TestCase
	for _, tc := range raw {
		if err := tc.Validate(); err != nil {
			logging.Debug("dropping malformed candidate %q: %v", tc.ID, err)
			continue
		}
		valid = append(valid, tc)
	}
	if len(valid) == 0 {
		return nil, fmt.Errorf("model output contained %d candidates, none well-formed", len(raw))
	}
	return valid, nil
}

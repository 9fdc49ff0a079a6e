package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateAcceptsWellFormedCase(t *testing.T) {
	tc := TestCase{
		ID:    "tc-001",
		Title: "Valid",
		Steps: []Step{
			{ID: 1, Action: ActionNavigate, Value: "http://example.test"},
			{ID: 2, Action: ActionAssertElement, Selector: "body"},
		},
	}
	assert.NoError(t, tc.Validate())
}

func TestValidateRejectsEmptyID(t *testing.T) {
	tc := TestCase{
		Title: "No id",
		Steps: []Step{{ID: 1, Action: ActionNavigate}},
	}
	assert.Error(t, tc.Validate())
}

func TestValidateRejectsNoSteps(t *testing.T) {
	tc := TestCase{ID: "tc-001", Title: "No steps"}
	assert.Error(t, tc.Validate())
}

func TestValidateRejectsDuplicateStepIDs(t *testing.T) {
	tc := TestCase{
		ID:    "tc-001",
		Title: "Duplicate step ids",
		Steps: []Step{
			{ID: 1, Action: ActionNavigate},
			{ID: 1, Action: ActionClick, Selector: "#go"},
		},
	}
	assert.Error(t, tc.Validate())
}

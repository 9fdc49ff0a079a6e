package planner

import (
	"context"
	"fmt"

	"github.com/prowlqa/prowl/internal/model"
)

var (
	fallbackValues     = []string{"0", "1", "-1", "10", "100", "999", "-50", "0.5", "1.5"}
	fallbackOperations = []string{"+", "-", "*", "/"}
)

// FallbackGenerator produces test cases without a model. The output is
// a pure function of url and count: a matrix of arithmetic inputs
// cycled through a fixed step template.
type FallbackGenerator struct{}

func (FallbackGenerator) Generate(_ context.Context, url, goal string, count int) ([]model.TestCase, error) {
	if count <= 0 {
		return nil, nil
	}

	candidates := make([]model.TestCase, 0, count)
	for i := 1; i <= count; i++ {
		val1 := fallbackValues[i%len(fallbackValues)]
		val2 := fallbackValues[(i+1)%len(fallbackValues)]
		op := fallbackOperations[i%len(fallbackOperations)]

		tags := []string{"math-operation", "basic"}
		if val1 == "0" || val2 == "0" {
			tags[1] = "edge-case"
		}

		candidates = append(candidates, model.TestCase{
			ID:          fmt.Sprintf("tc-%03d", i),
			Title:       fmt.Sprintf("Math Test: %s %s %s", val1, op, val2),
			Description: fmt.Sprintf("Test %s operation with values %s and %s for %s", op, val1, val2, goal),
			Tags:        tags,
			Steps: []model.Step{
				{ID: 1, Action: model.ActionNavigate, Value: url},
				{ID: 2, Action: model.ActionWaitFor, Selector: "body"},
				{ID: 3, Action: model.ActionType, Selector: "input[type=number]:first-of-type", Value: val1},
				{ID: 4, Action: model.ActionClick, Selector: fmt.Sprintf("button[value='%s']", op)},
				{ID: 5, Action: model.ActionType, Selector: "input[type=number]:last-of-type", Value: val2},
				{ID: 6, Action: model.ActionClick, Selector: "button.calculate"},
				{ID: 7, Action: model.ActionAssertElement, Selector: ".result"},
			},
		})
	}
	return candidates, nil
}

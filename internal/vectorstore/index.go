// Package vectorstore indexes executed test cases for semantic
// retrieval. The primary implementation is backed by Weaviate; an
// in-memory implementation serves tests and degraded operation.
package vectorstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/prowlqa/prowl/internal/model"
)

// Hit is a single similarity search result.
type Hit struct {
	TestCase      model.TestCase
	Verdict       model.Verdict
	FeedbackScore int
	Certainty     float64
}

// Statistics summarizes the indexed corpus.
type Statistics struct {
	TotalDocuments int `json:"total_documents"`
}

// Index stores executed test cases and retrieves the ones most similar
// to a textual query.
type Index interface {
	// Add indexes a test case together with its outcome. feedbackScore
	// is 0 when no user feedback exists yet.
	Add(ctx context.Context, tc model.TestCase, result model.TestResult, feedbackScore int) error

	// Search returns up to limit cases similar to the query. When
	// onlyPassing is set, only cases whose verdict is PASS are
	// considered.
	Search(ctx context.Context, query string, limit int, onlyPassing bool) ([]Hit, error)

	Statistics(ctx context.Context) (*Statistics, error)
	Clear(ctx context.Context) error
}

// Embedder turns text into a vector. Implemented by the OpenAI client
// and by a deterministic stub in tests.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// documentContent flattens a test case and its outcome into the text
// that gets embedded and searched.
func documentContent(tc model.TestCase, result model.TestResult, feedbackScore int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", tc.Title)
	if tc.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", tc.Description)
	}
	if len(tc.Tags) > 0 {
		fmt.Fprintf(&b, "Tags: %s\n", strings.Join(tc.Tags, ", "))
	}
	fmt.Fprintf(&b, "Verdict: %s\n", result.Verdict)
	fmt.Fprintf(&b, "Reproducible: %t\n", result.Reproducible)
	b.WriteString("Steps:\n")
	for _, step := range tc.Steps {
		fmt.Fprintf(&b, "%d. %s", step.ID, step.Action)
		if step.Selector != "" {
			fmt.Fprintf(&b, " %s", step.Selector)
		}
		if step.Value != "" {
			fmt.Fprintf(&b, " %s", step.Value)
		}
		b.WriteString("\n")
	}
	if feedbackScore > 0 {
		fmt.Fprintf(&b, "Feedback score: %d\n", feedbackScore)
	}
	if result.Notes != "" {
		fmt.Fprintf(&b, "Notes: %s\n", result.Notes)
	}
	return b.String()
}

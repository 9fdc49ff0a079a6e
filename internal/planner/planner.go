// Package planner generates candidate test cases. The primary path is
// model-driven with retrieval context from the similarity index; a
// deterministic fallback covers every failure mode so callers always
// receive a usable candidate set.
package planner

import (
	"context"
	"fmt"
	"strings"

	"github.com/prowlqa/prowl/internal/llm"
	"github.com/prowlqa/prowl/internal/logging"
	"github.com/prowlqa/prowl/internal/model"
	"github.com/prowlqa/prowl/internal/vectorstore"
)

// Generator produces candidate test cases for a target. Implementations
// must always return a non-empty set for count > 0, degrading to
// deterministic output rather than failing.
type Generator interface {
	Generate(ctx context.Context, url, goal string, count int) ([]model.TestCase, error)
}

// MetricsProvider supplies recent performance numbers for prompt
// context. Satisfied by the feedback store.
type MetricsProvider interface {
	PerformanceMetrics(days int) (*model.PerformanceMetrics, error)
}

// LLMGenerator is the retrieval-augmented generator. Similar passing
// cases and current metrics are folded into the prompt; parse failures
// fall through to the deterministic fallback.
type LLMGenerator struct {
	client   llm.Client
	index    vectorstore.Index
	metrics  MetricsProvider
	fallback FallbackGenerator
}

// NewLLMGenerator builds the generator. index and metrics may be nil;
// the prompt then carries no retrieval context.
func NewLLMGenerator(client llm.Client, index vectorstore.Index, metrics MetricsProvider) *LLMGenerator {
	return &LLMGenerator{client: client, index: index, metrics: metrics}
}

func (g *LLMGenerator) Generate(ctx context.Context, url, goal string, count int) ([]model.TestCase, error) {
	if count <= 0 {
		return nil, nil
	}
	if g.client == nil {
		logging.Info("no model client configured, using fallback generation")
		return g.fallback.Generate(ctx, url, goal, count)
	}

	prompt := g.buildPrompt(ctx, url, goal, count)
	response, err := g.client.Complete(ctx, "You are an expert test case designer.", prompt)
	if err != nil {
		logging.Warn("model generation failed, using fallback: %v", err)
		return g.fallback.Generate(ctx, url, goal, count)
	}

	candidates, err := ParseCandidates(response)
	if err != nil {
		logging.Warn("could not parse model output, using fallback: %v", err)
		return g.fallback.Generate(ctx, url, goal, count)
	}

	if len(candidates) > count {
		candidates = candidates[:count]
	}
	logging.Info("generated %d candidates from model output", len(candidates))
	return candidates, nil
}

// buildPrompt assembles the generation prompt. Retrieval and metrics
// failures degrade to a prompt without that section.
func (g *LLMGenerator) buildPrompt(ctx context.Context, url, goal string, count int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are designing test cases for a web application at %s.\n\n", url)
	fmt.Fprintf(&b, "GOAL: %s\n\n", goal)

	if g.metrics != nil {
		if m, err := g.metrics.PerformanceMetrics(30); err == nil && m.TotalTests > 0 {
			b.WriteString("CURRENT PERFORMANCE METRICS:\n")
			fmt.Fprintf(&b, "- Pass Rate: %.2f%%\n", m.PassRate)
			fmt.Fprintf(&b, "- Avg Feedback Score: %.2f/5\n", m.AvgFeedbackScore)
			fmt.Fprintf(&b, "- Reproducibility: %.2f%%\n\n", m.ReproducibilityRate)
		}
	}

	b.WriteString(g.retrieveContext(ctx, url, goal))

	fmt.Fprintf(&b, "Generate %d diverse test cases as a JSON array.\n", count)
	fmt.Fprintf(&b, `Each test case MUST have this exact structure:
{
  "id": "tc-001",
  "title": "Test Title",
  "description": "Detailed description",
  "tags": ["edge-case"],
  "steps": [
    {"id": 1, "action": "navigate", "value": "%s"},
    {"id": 2, "action": "click", "selector": "button"},
    {"id": 3, "action": "type", "selector": "input", "value": "123"},
    {"id": 4, "action": "assert_text", "selector": ".result", "value": "123"}
  ]
}

Available actions: navigate, click, type, wait_for, assert_text, assert_element, evaluate_js.

GUIDELINES:
1. Focus on areas where current metrics show weakness
2. Learn from successful patterns in the context above
3. Include edge cases: empty input, very long input, special characters
4. Each test should have 4 to 8 steps and end with an assertion
5. Make tests reproducible and specific

Return ONLY the JSON array, no other text.`, url)
	return b.String()
}

func (g *LLMGenerator) retrieveContext(ctx context.Context, url, goal string) string {
	if g.index == nil {
		return ""
	}
	hits, err := g.index.Search(ctx, fmt.Sprintf("%s for %s", goal, url), 5, true)
	if err != nil {
		logging.Warn("similarity search failed, continuing without context: %v", err)
		return ""
	}
	if len(hits) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Previously successful test patterns:\n")
	for i, hit := range hits {
		fmt.Fprintf(&b, "%d. %s (Score: %d/5, Steps: %d)\n",
			i+1, hit.TestCase.Title, hit.FeedbackScore, len(hit.TestCase.Steps))
	}
	b.WriteString("\n")
	return b.String()
}

package planner

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prowlqa/prowl/internal/model"
)

const validResponse = `Here are your test cases:
[
  {
    "id": "tc-001",
    "title": "Add two numbers",
    "description": "Basic addition",
    "tags": ["math-operation"],
    "steps": [
      {"id": 1, "action": "navigate", "value": "http://example.test"},
      {"id": 2, "action": "type", "selector": "input", "value": "2"},
      {"id": 3, "action": "assert_text", "selector": ".result", "value": "4"}
    ]
  },
  {
    "id": "tc-002",
    "title": "Broken candidate without steps",
    "steps": []
  }
]
Let me know if you need more.`

func TestParseCandidatesExtractsValidCases(t *testing.T) {
	candidates, err := ParseCandidates(validResponse)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "tc-001", candidates[0].ID)
	assert.Len(t, candidates[0].Steps, 3)
}

func TestParseCandidatesNoArray(t *testing.T) {
	_, err := ParseCandidates("Sorry, I cannot help with that.")
	assert.Error(t, err)
}

func TestParseCandidatesInvalidJSON(t *testing.T) {
	_, err := ParseCandidates(`[{"id": "tc-001", "title": }]`)
	assert.Error(t, err)
}

func TestParseCandidatesAllMalformed(t *testing.T) {
	_, err := ParseCandidates(`[{"id": "", "title": "No id", "steps": []}]`)
	assert.Error(t, err)
}

func TestFallbackGeneratorDeterministic(t *testing.T) {
	ctx := context.Background()
	gen := FallbackGenerator{}

	first, err := gen.Generate(ctx, "http://example.test", "explore", 20)
	require.NoError(t, err)
	second, err := gen.Generate(ctx, "http://example.test", "explore", 20)
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("fallback not deterministic (-first +second):\n%s", diff)
	}
}

func TestFallbackGeneratorProducesValidCases(t *testing.T) {
	candidates, err := FallbackGenerator{}.Generate(context.Background(), "http://example.test", "explore", 20)
	require.NoError(t, err)
	require.Len(t, candidates, 20)

	seen := make(map[string]bool)
	for _, tc := range candidates {
		require.NoError(t, tc.Validate(), "candidate %s", tc.ID)
		assert.False(t, seen[tc.ID], "duplicate id %s", tc.ID)
		seen[tc.ID] = true
		assert.Equal(t, model.ActionNavigate, tc.Steps[0].Action)
		assert.Equal(t, "http://example.test", tc.Steps[0].Value)
	}
	assert.Equal(t, "tc-001", candidates[0].ID)
}

func TestFallbackGeneratorZeroCount(t *testing.T) {
	candidates, err := FallbackGenerator{}.Generate(context.Background(), "http://example.test", "explore", 0)
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

type stubClient struct {
	response string
	err      error
}

func (s stubClient) Complete(context.Context, string, string) (string, error) {
	return s.response, s.err
}

func TestLLMGeneratorUsesModelOutput(t *testing.T) {
	gen := NewLLMGenerator(stubClient{response: validResponse}, nil, nil)

	candidates, err := gen.Generate(context.Background(), "http://example.test", "explore", 5)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "tc-001", candidates[0].ID)
}

func TestLLMGeneratorFallsBackOnError(t *testing.T) {
	gen := NewLLMGenerator(stubClient{err: errors.New("timeout")}, nil, nil)

	candidates, err := gen.Generate(context.Background(), "http://example.test", "explore", 8)
	require.NoError(t, err)
	assert.Len(t, candidates, 8)
	assert.Equal(t, "tc-001", candidates[0].ID)
}

func TestLLMGeneratorFallsBackOnUnparseableOutput(t *testing.T) {
	gen := NewLLMGenerator(stubClient{response: "no json here"}, nil, nil)

	candidates, err := gen.Generate(context.Background(), "http://example.test", "explore", 8)
	require.NoError(t, err)
	assert.Len(t, candidates, 8)
}

func TestLLMGeneratorNilClientUsesFallback(t *testing.T) {
	gen := NewLLMGenerator(nil, nil, nil)

	candidates, err := gen.Generate(context.Background(), "http://example.test", "explore", 4)
	require.NoError(t, err)
	assert.Len(t, candidates, 4)
}

func TestLLMGeneratorTruncatesToCount(t *testing.T) {
	var response string
	response = "["
	for i := 1; i <= 5; i++ {
		if i > 1 {
			response += ","
		}
		response += fmt.Sprintf(`{"id": "tc-%03d", "title": "Case %d", "steps": [{"id": 1, "action": "navigate", "value": "http://example.test"}]}`, i, i)
	}
	response += "]"

	gen := NewLLMGenerator(stubClient{response: response}, nil, nil)
	candidates, err := gen.Generate(context.Background(), "http://example.test", "explore", 3)
	require.NoError(t, err)
	assert.Len(t, candidates, 3)
}

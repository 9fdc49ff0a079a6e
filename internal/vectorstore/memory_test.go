package vectorstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prowlqa/prowl/internal/model"
)

func loginCase() (model.TestCase, model.TestResult) {
	tc := model.TestCase{
		ID:    "tc-001",
		Title: "Login with valid credentials",
		Tags:  []string{"auth"},
		Steps: []model.Step{
			{ID: 1, Action: model.ActionNavigate, Value: "http://example.test/login"},
			{ID: 2, Action: model.ActionType, Selector: "#user", Value: "alice"},
			{ID: 3, Action: model.ActionClick, Selector: "#submit"},
		},
	}
	res := model.TestResult{TestcaseID: tc.ID, Verdict: model.VerdictPass, Reproducible: true}
	return tc, res
}

func checkoutCase() (model.TestCase, model.TestResult) {
	tc := model.TestCase{
		ID:    "tc-002",
		Title: "Checkout cart with multiple items",
		Tags:  []string{"shop"},
		Steps: []model.Step{
			{ID: 1, Action: model.ActionNavigate, Value: "http://example.test/cart"},
			{ID: 2, Action: model.ActionClick, Selector: "#checkout"},
		},
	}
	res := model.TestResult{TestcaseID: tc.ID, Verdict: model.VerdictFail}
	return tc, res
}

func TestMemorySearchReturnsMostSimilarFirst(t *testing.T) {
	ctx := context.Background()
	index := NewMemory(LocalEmbedder{})

	loginTC, loginRes := loginCase()
	checkoutTC, checkoutRes := checkoutCase()
	checkoutRes.Verdict = model.VerdictPass
	require.NoError(t, index.Add(ctx, loginTC, loginRes, 0))
	require.NoError(t, index.Add(ctx, checkoutTC, checkoutRes, 0))

	hits, err := index.Search(ctx, "login valid credentials", 2, false)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "tc-001", hits[0].TestCase.ID)
	assert.GreaterOrEqual(t, hits[0].Certainty, hits[1].Certainty)
}

func TestMemorySearchOnlyPassingFilter(t *testing.T) {
	ctx := context.Background()
	index := NewMemory(LocalEmbedder{})

	loginTC, loginRes := loginCase()
	checkoutTC, checkoutRes := checkoutCase()
	require.NoError(t, index.Add(ctx, loginTC, loginRes, 0))
	require.NoError(t, index.Add(ctx, checkoutTC, checkoutRes, 0))

	hits, err := index.Search(ctx, "checkout cart", 10, true)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "tc-001", hits[0].TestCase.ID)
}

func TestMemoryReAddReplacesDocument(t *testing.T) {
	ctx := context.Background()
	index := NewMemory(LocalEmbedder{})

	tc, res := loginCase()
	require.NoError(t, index.Add(ctx, tc, res, 0))
	require.NoError(t, index.Add(ctx, tc, res, 5))

	stats, err := index.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalDocuments)

	hits, err := index.Search(ctx, "login", 1, false)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, 5, hits[0].FeedbackScore)
}

func TestMemoryClear(t *testing.T) {
	ctx := context.Background()
	index := NewMemory(LocalEmbedder{})

	tc, res := loginCase()
	require.NoError(t, index.Add(ctx, tc, res, 0))
	require.NoError(t, index.Clear(ctx))

	stats, err := index.Statistics(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalDocuments)
}

func TestMemorySearchLimit(t *testing.T) {
	ctx := context.Background()
	index := NewMemory(LocalEmbedder{})

	tc, res := loginCase()
	tc2, res2 := checkoutCase()
	require.NoError(t, index.Add(ctx, tc, res, 0))
	require.NoError(t, index.Add(ctx, tc2, res2, 0))

	hits, err := index.Search(ctx, "test", 1, false)
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	hits, err = index.Search(ctx, "test", 0, false)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestLocalEmbedderDeterministic(t *testing.T) {
	ctx := context.Background()
	e := LocalEmbedder{}

	a, err := e.Embed(ctx, "open the login page")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "open the login page")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := e.Embed(ctx, "something else entirely different")
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestCosineSimilarityBounds(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 2, 3}, []float32{1, 2, 3}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Zero(t, cosineSimilarity([]float32{1}, []float32{1, 2}))
	assert.Zero(t, cosineSimilarity(nil, nil))
}

func TestDocumentContentIncludesOutcome(t *testing.T) {
	tc, res := loginCase()
	res.Notes = "Test completed with verdict: PASS"

	content := documentContent(tc, res, 4)
	assert.Contains(t, content, "Title: Login with valid credentials")
	assert.Contains(t, content, "Verdict: PASS")
	assert.Contains(t, content, "Reproducible: true")
	assert.Contains(t, content, "Feedback score: 4")
	assert.Contains(t, content, "1. navigate http://example.test/login")
}

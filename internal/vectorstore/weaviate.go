package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/prowlqa/prowl/internal/logging"
	"github.com/prowlqa/prowl/internal/model"
)

// ClassName is the Weaviate class holding indexed test cases.
const ClassName = "TestCaseDocument"

// Weaviate is the Index implementation backed by a Weaviate instance.
// Vectors are computed client-side, so the class uses no vectorizer.
type Weaviate struct {
	client   *weaviate.Client
	embedder Embedder
}

// NewWeaviate connects to Weaviate at host (e.g. "localhost:8080") and
// ensures the test case class exists.
func NewWeaviate(ctx context.Context, host, scheme string, embedder Embedder) (*Weaviate, error) {
	if scheme == "" {
		scheme = "http"
	}
	client, err := weaviate.NewClient(weaviate.Config{Host: host, Scheme: scheme})
	if err != nil {
		return nil, fmt.Errorf("failed to create weaviate client: %w", err)
	}

	w := &Weaviate{client: client, embedder: embedder}
	if err := w.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return w, nil
}

func classSchema() *models.Class {
	return &models.Class{
		Class:      ClassName,
		Vectorizer: "none",
		Properties: []*models.Property{
			{Name: "testcaseId", DataType: []string{"text"}},
			{Name: "title", DataType: []string{"text"}},
			{Name: "content", DataType: []string{"text"}},
			{Name: "verdict", DataType: []string{"text"}},
			{Name: "reproducible", DataType: []string{"boolean"}},
			{Name: "feedbackScore", DataType: []string{"int"}},
			{Name: "testcaseJson", DataType: []string{"text"}},
		},
	}
}

func (w *Weaviate) ensureSchema(ctx context.Context) error {
	_, err := w.client.Schema().ClassGetter().WithClassName(ClassName).Do(ctx)
	if err == nil {
		return nil
	}
	logging.Info("creating weaviate class %s", ClassName)
	if err := w.client.Schema().ClassCreator().WithClass(classSchema()).Do(ctx); err != nil {
		return fmt.Errorf("failed to create class %s: %w", ClassName, err)
	}
	return nil
}

func (w *Weaviate) Add(ctx context.Context, tc model.TestCase, result model.TestResult, feedbackScore int) error {
	content := documentContent(tc, result, feedbackScore)
	vector, err := w.embedder.Embed(ctx, content)
	if err != nil {
		return fmt.Errorf("failed to embed test case %s: %w", tc.ID, err)
	}

	tcJSON, err := json.Marshal(tc)
	if err != nil {
		return fmt.Errorf("failed to encode test case: %w", err)
	}

	_, err = w.client.Data().Creator().
		WithClassName(ClassName).
		WithProperties(map[string]interface{}{
			"testcaseId":    tc.ID,
			"title":         tc.Title,
			"content":       content,
			"verdict":       string(result.Verdict),
			"reproducible":  result.Reproducible,
			"feedbackScore": feedbackScore,
			"testcaseJson":  string(tcJSON),
		}).
		WithVector(vector).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to index test case %s: %w", tc.ID, err)
	}
	return nil
}

func (w *Weaviate) Search(ctx context.Context, query string, limit int, onlyPassing bool) ([]Hit, error) {
	if limit <= 0 {
		return nil, nil
	}
	vector, err := w.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	nearVector := w.client.GraphQL().NearVectorArgBuilder().WithVector(vector)

	fields := []graphql.Field{
		{Name: "testcaseId"},
		{Name: "verdict"},
		{Name: "feedbackScore"},
		{Name: "testcaseJson"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "certainty"}}},
	}

	builder := w.client.GraphQL().Get().
		WithClassName(ClassName).
		WithFields(fields...).
		WithNearVector(nearVector).
		WithLimit(limit)

	if onlyPassing {
		builder = builder.WithWhere(filters.Where().
			WithPath([]string{"verdict"}).
			WithOperator(filters.Equal).
			WithValueString(string(model.VerdictPass)))
	}

	result, err := builder.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("weaviate search failed: %w", err)
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("weaviate search error: %s", result.Errors[0].Message)
	}

	return parseHits(result.Data)
}

func parseHits(data map[string]models.JSONObject) ([]Hit, error) {
	get, ok := data["Get"].(map[string]interface{})
	if !ok {
		return nil, nil
	}
	raw, ok := get[ClassName].([]interface{})
	if !ok {
		return nil, nil
	}

	var hits []Hit
	for _, item := range raw {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}

		var hit Hit
		if v, ok := obj["verdict"].(string); ok {
			hit.Verdict = model.Verdict(v)
		}
		if v, ok := obj["feedbackScore"].(float64); ok {
			hit.FeedbackScore = int(v)
		}
		if add, ok := obj["_additional"].(map[string]interface{}); ok {
			if c, ok := add["certainty"].(float64); ok {
				hit.Certainty = c
			}
		}
		tcJSON, ok := obj["testcaseJson"].(string)
		if !ok {
			continue
		}
		if err := json.Unmarshal([]byte(tcJSON), &hit.TestCase); err != nil {
			logging.Warn("skipping malformed indexed test case: %v", err)
			continue
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

func (w *Weaviate) Statistics(ctx context.Context) (*Statistics, error) {
	result, err := w.client.GraphQL().Aggregate().
		WithClassName(ClassName).
		WithFields(graphql.Field{
			Name:   "meta",
			Fields: []graphql.Field{{Name: "count"}},
		}).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("aggregate query failed: %w", err)
	}

	jsonBytes, err := json.Marshal(result.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode aggregate response: %w", err)
	}
	var response struct {
		Aggregate struct {
			TestCaseDocument []struct {
				Meta struct {
					Count float64 `json:"count"`
				} `json:"meta"`
			} `json:"TestCaseDocument"`
		} `json:"Aggregate"`
	}
	if err := json.Unmarshal(jsonBytes, &response); err != nil {
		return nil, fmt.Errorf("failed to parse aggregate response: %w", err)
	}

	stats := &Statistics{}
	if len(response.Aggregate.TestCaseDocument) > 0 {
		stats.TotalDocuments = int(response.Aggregate.TestCaseDocument[0].Meta.Count)
	}
	return stats, nil
}

// Clear drops and recreates the class, removing every indexed case.
func (w *Weaviate) Clear(ctx context.Context) error {
	if err := w.client.Schema().ClassDeleter().WithClassName(ClassName).Do(ctx); err != nil {
		return fmt.Errorf("failed to delete class %s: %w", ClassName, err)
	}
	return w.ensureSchema(ctx)
}

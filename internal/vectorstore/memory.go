package vectorstore

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/prowlqa/prowl/internal/model"
)

type memoryDoc struct {
	tc            model.TestCase
	verdict       model.Verdict
	feedbackScore int
	vector        []float32
}

// Memory is an in-process Index backed by brute-force cosine
// similarity. Re-adding a test case replaces its previous document.
type Memory struct {
	embedder Embedder

	mu   sync.RWMutex
	docs map[string]memoryDoc
}

// NewMemory returns an empty in-memory index.
func NewMemory(embedder Embedder) *Memory {
	return &Memory{
		embedder: embedder,
		docs:     make(map[string]memoryDoc),
	}
}

func (m *Memory) Add(ctx context.Context, tc model.TestCase, result model.TestResult, feedbackScore int) error {
	vec, err := m.embedder.Embed(ctx, documentContent(tc, result, feedbackScore))
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.docs[tc.ID] = memoryDoc{
		tc:            tc,
		verdict:       result.Verdict,
		feedbackScore: feedbackScore,
		vector:        vec,
	}
	m.mu.Unlock()
	return nil
}

func (m *Memory) Search(ctx context.Context, query string, limit int, onlyPassing bool) ([]Hit, error) {
	if limit <= 0 {
		return nil, nil
	}
	queryVec, err := m.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	hits := make([]Hit, 0, len(m.docs))
	for _, doc := range m.docs {
		if onlyPassing && doc.verdict != model.VerdictPass {
			continue
		}
		hits = append(hits, Hit{
			TestCase:      doc.tc,
			Verdict:       doc.verdict,
			FeedbackScore: doc.feedbackScore,
			Certainty:     cosineSimilarity(queryVec, doc.vector),
		})
	}
	m.mu.RUnlock()

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Certainty != hits[j].Certainty {
			return hits[i].Certainty > hits[j].Certainty
		}
		return hits[i].TestCase.ID < hits[j].TestCase.ID
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (m *Memory) Statistics(ctx context.Context) (*Statistics, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return &Statistics{TotalDocuments: len(m.docs)}, nil
}

func (m *Memory) Clear(ctx context.Context) error {
	m.mu.Lock()
	m.docs = make(map[string]memoryDoc)
	m.mu.Unlock()
	return nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

package feedback

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/prowlqa/prowl/internal/logging"
	"github.com/prowlqa/prowl/internal/model"
	"github.com/prowlqa/prowl/internal/vectorstore"
)

// Retraining data thresholds.
const (
	minTrainingSamples = 10
	insightWindow      = 50
)

// RetrainingResult reports the outcome of a retraining trigger.
type RetrainingResult struct {
	Status      string `json:"status"`
	SampleCount int    `json:"sample_count"`
}

// ImprovementReport carries aggregated metrics, the size of the learned
// corpus, and suggested actions.
type ImprovementReport struct {
	Metrics      *model.PerformanceMetrics `json:"metrics"`
	CasesLearned int                       `json:"cases_learned"`
	Suggestions  []string                  `json:"suggestions"`
}

// LearningInsights summarizes recent feedback quality.
type LearningInsights struct {
	TotalFeedback int    `json:"total_feedback"`
	HighQuality   int    `json:"high_quality"`
	LowQuality    int    `json:"low_quality"`
	Trend         string `json:"trend"`
}

// LoopManager closes the loop between execution outcomes, user feedback
// and the similarity index that seeds future test generation.
type LoopManager struct {
	store    *Store
	index    vectorstore.Index
	minScore int
}

// NewLoopManager wires the store and index together. minScore is the
// feedback threshold for a case to count as a training sample.
func NewLoopManager(store *Store, index vectorstore.Index, minScore int) *LoopManager {
	if minScore <= 0 {
		minScore = 3
	}
	return &LoopManager{store: store, index: index, minScore: minScore}
}

// ProcessExecutionResults records every outcome and indexes the cases
// worth learning from: passing and reproducible ones. Returns how many
// outcomes were stored and how many cases were indexed.
func (m *LoopManager) ProcessExecutionResults(ctx context.Context, runID string, testcases []model.TestCase, results []model.TestResult) (stored, indexed int, err error) {
	byID := make(map[string]model.TestCase, len(testcases))
	for _, tc := range testcases {
		byID[tc.ID] = tc
	}

	for _, result := range results {
		tc, ok := byID[result.TestcaseID]
		if !ok {
			// Dropping a result would silently lose learning data.
			return stored, indexed, fmt.Errorf("result references unknown test case %s", result.TestcaseID)
		}
		if err := m.store.AddOutcome(runID, tc, result); err != nil {
			return stored, indexed, fmt.Errorf("failed to store outcome for %s: %w", tc.ID, err)
		}
		stored++

		if result.Verdict == model.VerdictPass && result.Reproducible {
			if err := m.index.Add(ctx, tc, result, 0); err != nil {
				logging.Warn("failed to index case %s: %v", tc.ID, err)
				continue
			}
			indexed++
		}
	}
	return stored, indexed, nil
}

// CollectUserFeedback stores a rating and, for high scores, re-indexes
// the case so the rating influences future retrieval.
func (m *LoopManager) CollectUserFeedback(ctx context.Context, runID, testcaseID string, score int, comment, feedbackType string) (*model.FeedbackRecord, error) {
	rec, err := m.store.AddFeedback(runID, testcaseID, score, comment, feedbackType)
	if err != nil {
		return nil, err
	}

	if score >= 4 {
		tc, result, found, err := m.latestOutcome(testcaseID)
		if err != nil {
			logging.Warn("failed to load outcome for %s: %v", testcaseID, err)
		} else if found {
			if err := m.index.Add(ctx, tc, result, score); err != nil {
				logging.Warn("failed to re-index case %s: %v", testcaseID, err)
			}
		}
	}
	return rec, nil
}

// TriggerRetraining checks whether enough rated samples exist and, if
// so, records the training cycle. Actual model fine-tuning is an
// external process; this gate decides when it is worth running.
func (m *LoopManager) TriggerRetraining() (*RetrainingResult, error) {
	samples, err := m.store.TrainingSamples(m.minScore)
	if err != nil {
		return nil, err
	}

	if len(samples) < minTrainingSamples {
		return &RetrainingResult{
			Status:      "insufficient_data",
			SampleCount: len(samples),
		}, nil
	}

	if err := m.store.RecordTrainingMetric("training_data_size", float64(len(samples)), len(samples)); err != nil {
		return nil, err
	}
	logging.Info("retraining triggered with %d samples", len(samples))
	return &RetrainingResult{
		Status:      "completed",
		SampleCount: len(samples),
	}, nil
}

// GenerateImprovementReport reviews the trailing window and suggests
// remediation where metrics fall below their thresholds. An empty
// window reads as zero rates and flags every threshold. The learned
// corpus size comes from the similarity index; an absent or failing
// index reads as zero rather than blocking the report.
func (m *LoopManager) GenerateImprovementReport(ctx context.Context, days int) (*ImprovementReport, error) {
	metrics, err := m.store.PerformanceMetrics(days)
	if err != nil {
		return nil, err
	}

	casesLearned := 0
	if m.index != nil {
		stats, err := m.index.Statistics(ctx)
		if err != nil {
			logging.Warn("failed to read index statistics: %v", err)
		} else {
			casesLearned = stats.TotalDocuments
		}
	}

	var suggestions []string
	if metrics.PassRate < 70 {
		suggestions = append(suggestions, "Pass rate below 70%: review failing test cases and target application stability")
	}
	if metrics.AvgFeedbackScore < 3 {
		suggestions = append(suggestions, "Average feedback score below 3: generated cases may need better prompts or more context")
	}
	if metrics.ReproducibilityRate < 80 {
		suggestions = append(suggestions, "Reproducibility below 80%: investigate timing sensitivity and nondeterministic page state")
	}
	if len(suggestions) == 0 {
		suggestions = append(suggestions, "System performing well")
	}

	return &ImprovementReport{Metrics: metrics, CasesLearned: casesLearned, Suggestions: suggestions}, nil
}

// Insights classifies the most recent feedback into high and low
// quality buckets and labels the trend.
func (m *LoopManager) Insights() (*LearningInsights, error) {
	records, err := m.store.RecentFeedback(insightWindow)
	if err != nil {
		return nil, err
	}

	insights := &LearningInsights{TotalFeedback: len(records)}
	for _, rec := range records {
		switch {
		case rec.Score >= 4:
			insights.HighQuality++
		case rec.Score <= 2:
			insights.LowQuality++
		}
	}
	if insights.HighQuality > insights.LowQuality {
		insights.Trend = "improving"
	} else {
		insights.Trend = "needs_attention"
	}
	return insights, nil
}

// latestOutcome loads the most recent stored outcome for a test case.
func (m *LoopManager) latestOutcome(testcaseID string) (model.TestCase, model.TestResult, bool, error) {
	var tcJSON, resJSON string
	err := m.store.conn.QueryRow(`
		SELECT testcase_json, result_json
		FROM test_outcomes
		WHERE testcase_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, testcaseID).Scan(&tcJSON, &resJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.TestCase{}, model.TestResult{}, false, nil
		}
		return model.TestCase{}, model.TestResult{}, false, err
	}

	var tc model.TestCase
	var result model.TestResult
	if err := json.Unmarshal([]byte(tcJSON), &tc); err != nil {
		return tc, result, false, fmt.Errorf("failed to decode test case: %w", err)
	}
	if err := json.Unmarshal([]byte(resJSON), &result); err != nil {
		return tc, result, false, fmt.Errorf("failed to decode result: %w", err)
	}
	return tc, result, true, nil
}

// Package feedback persists user feedback and execution outcomes, and
// drives the learning loop built on top of them.
package feedback

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/prowlqa/prowl/internal/model"
)

// ErrScoreOutOfRange is returned when a feedback score falls outside 1 to 5.
var ErrScoreOutOfRange = errors.New("feedback score out of range")

// Store is the SQLite-backed feedback store.
type Store struct {
	conn *sql.DB
}

// NewStore opens (or creates) the feedback database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &Store{conn: conn}
	if err := s.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS feedback (
		id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		testcase_id TEXT NOT NULL,
		score INTEGER NOT NULL,
		comment TEXT,
		feedback_type TEXT DEFAULT 'quality',
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS test_outcomes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		testcase_id TEXT NOT NULL,
		verdict TEXT NOT NULL,
		reproducible BOOLEAN NOT NULL,
		testcase_json TEXT NOT NULL,
		result_json TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS training_metrics (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		metric_name TEXT NOT NULL,
		metric_value REAL NOT NULL,
		training_data_size INTEGER NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_feedback_testcase ON feedback(testcase_id);
	CREATE INDEX IF NOT EXISTS idx_feedback_created_at ON feedback(created_at);
	CREATE INDEX IF NOT EXISTS idx_outcomes_run ON test_outcomes(run_id);
	CREATE INDEX IF NOT EXISTS idx_outcomes_testcase ON test_outcomes(testcase_id);
	CREATE INDEX IF NOT EXISTS idx_outcomes_created_at ON test_outcomes(created_at);
	`

	_, err := s.conn.Exec(schema)
	return err
}

// AddFeedback records a user rating for a test case. Scores outside the
// 1 to 5 range are rejected, never clamped.
func (s *Store) AddFeedback(runID, testcaseID string, score int, comment, feedbackType string) (*model.FeedbackRecord, error) {
	if score < 1 || score > 5 {
		return nil, fmt.Errorf("score must be between 1 and 5, got %d: %w", score, ErrScoreOutOfRange)
	}
	if feedbackType == "" {
		feedbackType = "quality"
	}

	rec := &model.FeedbackRecord{
		ID:           uuid.NewString(),
		RunID:        runID,
		TestcaseID:   testcaseID,
		Score:        score,
		Comment:      comment,
		FeedbackType: feedbackType,
		CreatedAt:    time.Now().UTC(),
	}

	query := `
		INSERT INTO feedback (id, run_id, testcase_id, score, comment, feedback_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	if _, err := s.conn.Exec(query,
		rec.ID, rec.RunID, rec.TestcaseID, rec.Score, rec.Comment, rec.FeedbackType, rec.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("failed to save feedback: %w", err)
	}
	return rec, nil
}

// AddOutcome appends an execution outcome. Outcomes are append-only so
// repeated runs of the same case accumulate history.
func (s *Store) AddOutcome(runID string, tc model.TestCase, result model.TestResult) error {
	tcJSON, err := json.Marshal(tc)
	if err != nil {
		return fmt.Errorf("failed to encode test case: %w", err)
	}
	resJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	query := `
		INSERT INTO test_outcomes (run_id, testcase_id, verdict, reproducible, testcase_json, result_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	if _, err := s.conn.Exec(query,
		runID, tc.ID, string(result.Verdict), result.Reproducible,
		string(tcJSON), string(resJSON), time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("failed to save outcome: %w", err)
	}
	return nil
}

// FeedbackFor returns all feedback for a test case, newest first.
func (s *Store) FeedbackFor(testcaseID string) ([]model.FeedbackRecord, error) {
	query := `
		SELECT id, run_id, testcase_id, score, comment, feedback_type, created_at
		FROM feedback
		WHERE testcase_id = ?
		ORDER BY created_at DESC, id DESC
	`
	rows, err := s.conn.Query(query, testcaseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query feedback: %w", err)
	}
	defer rows.Close()

	return scanFeedback(rows)
}

// RecentFeedback returns the latest feedback records, each annotated
// with the verdict of the most recent outcome for the same test case.
func (s *Store) RecentFeedback(limit int) ([]model.FeedbackRecord, error) {
	query := `
		SELECT f.id, f.run_id, f.testcase_id, f.score, f.comment, f.feedback_type, f.created_at,
		       (SELECT o.verdict FROM test_outcomes o
		        WHERE o.testcase_id = f.testcase_id
		        ORDER BY o.created_at DESC, o.id DESC LIMIT 1),
		       (SELECT o.reproducible FROM test_outcomes o
		        WHERE o.testcase_id = f.testcase_id
		        ORDER BY o.created_at DESC, o.id DESC LIMIT 1)
		FROM feedback f
		ORDER BY f.created_at DESC, f.id DESC
		LIMIT ?
	`
	rows, err := s.conn.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent feedback: %w", err)
	}
	defer rows.Close()

	var records []model.FeedbackRecord
	for rows.Next() {
		var rec model.FeedbackRecord
		var comment sql.NullString
		var verdict sql.NullString
		var reproducible sql.NullBool
		if err := rows.Scan(
			&rec.ID, &rec.RunID, &rec.TestcaseID, &rec.Score,
			&comment, &rec.FeedbackType, &rec.CreatedAt,
			&verdict, &reproducible,
		); err != nil {
			return nil, fmt.Errorf("failed to scan feedback: %w", err)
		}
		rec.Comment = comment.String
		if verdict.Valid {
			rec.Verdict = model.Verdict(verdict.String)
		}
		if reproducible.Valid {
			rec.Reproducible = reproducible.Bool
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// PerformanceMetrics aggregates outcomes and feedback over the trailing
// window. An empty store yields all-zero metrics rather than an error.
func (s *Store) PerformanceMetrics(days int) (*model.PerformanceMetrics, error) {
	if days <= 0 {
		days = 7
	}
	since := time.Now().UTC().AddDate(0, 0, -days)

	m := &model.PerformanceMetrics{PeriodDays: days}

	var total, passed, reproducible int
	err := s.conn.QueryRow(`
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN verdict = ? THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN reproducible THEN 1 ELSE 0 END), 0)
		FROM test_outcomes
		WHERE created_at >= ?
	`, string(model.VerdictPass), since).Scan(&total, &passed, &reproducible)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate outcomes: %w", err)
	}

	var feedbackCount int
	var avgScore sql.NullFloat64
	err = s.conn.QueryRow(`
		SELECT COUNT(*), AVG(score)
		FROM feedback
		WHERE created_at >= ?
	`, since).Scan(&feedbackCount, &avgScore)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate feedback: %w", err)
	}

	m.TotalTests = total
	m.FeedbackCount = feedbackCount
	if total > 0 {
		m.PassRate = round2(float64(passed) / float64(total) * 100)
		m.ReproducibilityRate = round2(float64(reproducible) / float64(total) * 100)
	}
	if avgScore.Valid {
		m.AvgFeedbackScore = round2(avgScore.Float64)
	}
	return m, nil
}

// TrainingSamples selects outcomes suitable for retraining: any passing
// outcome of a case whose best feedback score meets the threshold.
// Duplicate (test case, result) pairs collapse to one sample; best
// scored and newest first.
func (s *Store) TrainingSamples(minScore int) ([]model.TrainingSample, error) {
	query := `
		SELECT o.testcase_json, o.result_json, MAX(f.score) AS score
		FROM test_outcomes o
		JOIN feedback f ON f.testcase_id = o.testcase_id
		WHERE o.verdict = ? AND f.score >= ?
		GROUP BY o.testcase_json, o.result_json
		ORDER BY score DESC, MAX(o.created_at) DESC
	`
	rows, err := s.conn.Query(query, string(model.VerdictPass), minScore)
	if err != nil {
		return nil, fmt.Errorf("failed to query training samples: %w", err)
	}
	defer rows.Close()

	var samples []model.TrainingSample
	for rows.Next() {
		var tcJSON, resJSON string
		var score int
		if err := rows.Scan(&tcJSON, &resJSON, &score); err != nil {
			return nil, fmt.Errorf("failed to scan training sample: %w", err)
		}
		var sample model.TrainingSample
		sample.Score = score
		if err := json.Unmarshal([]byte(tcJSON), &sample.TestCase); err != nil {
			return nil, fmt.Errorf("failed to decode test case: %w", err)
		}
		if err := json.Unmarshal([]byte(resJSON), &sample.Result); err != nil {
			return nil, fmt.Errorf("failed to decode result: %w", err)
		}
		samples = append(samples, sample)
	}
	return samples, rows.Err()
}

// RecordTrainingMetric logs a metric produced by a retraining cycle.
func (s *Store) RecordTrainingMetric(name string, value float64, dataSize int) error {
	query := `
		INSERT INTO training_metrics (metric_name, metric_value, training_data_size, created_at)
		VALUES (?, ?, ?, ?)
	`
	if _, err := s.conn.Exec(query, name, value, dataSize, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to record training metric: %w", err)
	}
	return nil
}

func scanFeedback(rows *sql.Rows) ([]model.FeedbackRecord, error) {
	var records []model.FeedbackRecord
	for rows.Next() {
		var rec model.FeedbackRecord
		var comment sql.NullString
		if err := rows.Scan(
			&rec.ID, &rec.RunID, &rec.TestcaseID, &rec.Score,
			&comment, &rec.FeedbackType, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan feedback: %w", err)
		}
		rec.Comment = comment.String
		records = append(records, rec)
	}
	return records, rows.Err()
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

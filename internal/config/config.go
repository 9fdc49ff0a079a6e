package config

import (
	"time"
)

// Config is the complete prowl configuration.
type Config struct {
	Target    TargetConfig    `yaml:"target"`
	Execution ExecutionConfig `yaml:"execution"`
	AI        AIConfig        `yaml:"ai"`
	Learning  LearningConfig  `yaml:"learning"`
	Meta      MetaConfig      `yaml:"meta"`
}

// TargetConfig describes the application under test.
type TargetConfig struct {
	URL  string `yaml:"url"`
	Goal string `yaml:"goal"`
}

// ExecutionConfig controls orchestration and the browser executor.
type ExecutionConfig struct {
	ArtifactsDir string        `yaml:"artifacts_dir"` // root for per-run artifact trees
	Concurrency  int           `yaml:"concurrency"`   // max in-flight test cases
	TopN         int           `yaml:"top_n"`         // ranked candidates to execute
	Headless     bool          `yaml:"headless"`
	StepTimeout  time.Duration `yaml:"step_timeout"`
}

// AIConfig holds the LLM provider configuration used by the planner,
// triage notes, and the embedding client.
type AIConfig struct {
	APIKey         string `yaml:"api_key"`
	Model          string `yaml:"model"`
	EmbeddingModel string `yaml:"embedding_model"`
	Endpoint       string `yaml:"endpoint,omitempty"` // for OpenAI-compatible gateways
}

// LearningConfig holds the feedback store and similarity index settings.
type LearningConfig struct {
	DatabasePath string `yaml:"database_path"`
	WeaviateHost string `yaml:"weaviate_host"`
	WeaviateHTTP bool   `yaml:"weaviate_http"` // plain http instead of https
	MinScore     int    `yaml:"min_score"`     // retraining sample threshold score
}

// MetaConfig holds metadata about the configuration file.
type MetaConfig struct {
	Version   string    `yaml:"version"`
	CreatedAt time.Time `yaml:"created_at"`
	UpdatedAt time.Time `yaml:"updated_at"`
}

// DefaultConfig returns a new config with sensible defaults.
func DefaultConfig() *Config {
	now := time.Now()
	return &Config{
		Target: TargetConfig{
			Goal: "find bugs and edge cases",
		},
		Execution: ExecutionConfig{
			ArtifactsDir: "artifacts",
			Concurrency:  3,
			TopN:         10,
			Headless:     true,
			StepTimeout:  15 * time.Second,
		},
		AI: AIConfig{
			Model:          "gpt-4o-mini",
			EmbeddingModel: "text-embedding-3-small",
		},
		Learning: LearningConfig{
			DatabasePath: ".prowl/feedback.db",
			WeaviateHost: "localhost:8080",
			WeaviateHTTP: true,
			MinScore:     3,
		},
		Meta: MetaConfig{
			Version:   "1.0.0",
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
}

// Validate checks if the configuration is usable. The target URL is
// not required here; commands that need one enforce it themselves so a
// freshly initialized config stays loadable.
func (c *Config) Validate() error {
	if c.Execution.Concurrency < 1 {
		return NewValidationError("execution.concurrency must be at least 1")
	}
	if c.Execution.TopN < 1 {
		return NewValidationError("execution.top_n must be at least 1")
	}
	if c.Learning.DatabasePath == "" {
		return NewValidationError("learning.database_path is required")
	}
	return nil
}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return "config validation error: " + e.Message
}

// NewValidationError creates a new validation error.
func NewValidationError(message string) error {
	return &ValidationError{Message: message}
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	ConfigFileName = "config.yaml"
	ConfigDirName  = ".prowl"
)

// Loader handles configuration loading and discovery.
type Loader struct {
	startDir   string
	configFile string
}

// SetConfigFile pins the loader to an explicit config path, skipping
// the upward search.
func (l *Loader) SetConfigFile(path string) {
	l.configFile = path
}

// NewLoader creates a config loader starting from the given directory.
func NewLoader(startDir string) *Loader {
	if startDir == "" {
		var err error
		startDir, err = os.Getwd()
		if err != nil {
			startDir = "."
		}
	}
	return &Loader{startDir: startDir}
}

// Load loads the configuration with environment variable overrides.
func (l *Loader) Load() (*Config, error) {
	configPath, err := l.findConfigFile()
	if err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	config, err := l.loadFromFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
	}

	l.applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// findConfigFile searches upward from the start directory for a config file.
func (l *Loader) findConfigFile() (string, error) {
	if l.configFile != "" {
		if _, err := os.Stat(l.configFile); err != nil {
			return "", fmt.Errorf("config file %s not found", l.configFile)
		}
		return l.configFile, nil
	}

	dir := l.startDir
	for {
		configPath := filepath.Join(dir, ConfigDirName, ConfigFileName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", fmt.Errorf("no config file found (searched upward from %s)", l.startDir)
}

func (l *Loader) loadFromFile(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return &config, nil
}

// applyEnvOverrides applies environment variable overrides. Secrets are
// expected from the environment rather than the config file.
func (l *Loader) applyEnvOverrides(config *Config) {
	if apiKey := os.Getenv("PROWL_AI_API_KEY"); apiKey != "" {
		config.AI.APIKey = apiKey
	} else if config.AI.APIKey == "" {
		if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
			config.AI.APIKey = apiKey
		}
	}
	if model := os.Getenv("PROWL_AI_MODEL"); model != "" {
		config.AI.Model = model
	}
	if endpoint := os.Getenv("PROWL_AI_ENDPOINT"); endpoint != "" {
		config.AI.Endpoint = endpoint
	}
	if url := os.Getenv("PROWL_TARGET_URL"); url != "" {
		config.Target.URL = url
	}
	if host := os.Getenv("PROWL_WEAVIATE_HOST"); host != "" {
		config.Learning.WeaviateHost = host
	}
}

// Save writes the configuration to the specified path.
func (l *Loader) Save(config *Config, configPath string) error {
	config.Meta.UpdatedAt = time.Now()

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetConfigPath returns the path where a config file should be created.
func (l *Loader) GetConfigPath() string {
	return filepath.Join(l.startDir, ConfigDirName, ConfigFileName)
}

// IsInitialized checks if a config file exists in the project hierarchy.
func (l *Loader) IsInitialized() bool {
	_, err := l.findConfigFile()
	return err == nil
}

// Package config loads the YAML application configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pbaille/wordlist/internal/classifier"
	"github.com/pbaille/wordlist/internal/embedding"
	"github.com/pbaille/wordlist/internal/fetcher"
	"github.com/pbaille/wordlist/internal/prompt"
	"github.com/pbaille/wordlist/internal/ranking"
)

var (
	// ErrMissingCredential is returned when the embedding API key is not set
	ErrMissingCredential = errors.New("missing credential")
	// ErrInvalid is returned by Validate
	ErrInvalid = errors.New("invalid configuration")
)

// DatabaseConfig locates persistent state
type DatabaseConfig struct {
	Path      string `yaml:"path"`
	ModelsDir string `yaml:"models_dir"`
}

// EmbeddingConfig selects the embedding provider
type EmbeddingConfig struct {
	Provider  string        `yaml:"provider"`
	BaseURL   string        `yaml:"base_url"`
	APIKeyEnv string        `yaml:"api_key_env"`
	Model     string        `yaml:"model"`
	ChunkSize int           `yaml:"chunk_size"`
	Pace      time.Duration `yaml:"pace"`
	Timeout   time.Duration `yaml:"timeout"`
}

// PromptConfig shapes the classification prompt
type PromptConfig struct {
	Template string `yaml:"template"`
	MaxClues int    `yaml:"max_clues"`
}

// CluesConfig configures the clue fetcher
type CluesConfig struct {
	URLTemplate string        `yaml:"url_template"`
	MaxClues    int           `yaml:"max_clues"`
	Delay       time.Duration `yaml:"delay"`
	Timeout     time.Duration `yaml:"timeout"`
	UserAgent   string        `yaml:"user_agent"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// AppConfig is the root configuration
type AppConfig struct {
	LogLevel  string                   `yaml:"log_level"`
	Database  DatabaseConfig           `yaml:"database"`
	Embedding EmbeddingConfig          `yaml:"embedding"`
	Prompt    PromptConfig             `yaml:"prompt"`
	Training  classifier.TrainerConfig `yaml:"training"`
	Ranking   ranking.Config           `yaml:"ranking"`
	Clues     CluesConfig              `yaml:"clues"`
	Server    ServerConfig             `yaml:"server"`
}

// Default returns the built-in configuration
func Default() *AppConfig {
	cfg := defaultConfig()
	applyDefaults(cfg)
	return cfg
}

// defaultConfig leaves provider-dependent embedding fields empty
func defaultConfig() *AppConfig {
	home, _ := os.UserHomeDir()
	base := filepath.Join(home, ".wordlist")

	cfg := &AppConfig{
		LogLevel: "info",
		Database: DatabaseConfig{
			Path:      filepath.Join(base, "wordlist.db"),
			ModelsDir: filepath.Join(base, "models"),
		},
		Embedding: EmbeddingConfig{
			Provider:  embedding.ProviderOpenAI,
			ChunkSize: embedding.DefaultChunkSize,
			Pace:      embedding.DefaultPace,
			Timeout:   60 * time.Second,
		},
		Prompt: PromptConfig{
			Template: prompt.DefaultTemplate,
			MaxClues: prompt.DefaultMaxClues,
		},
		Training: classifier.DefaultTrainerConfig(),
		Ranking:  ranking.DefaultConfig(),
		Clues: CluesConfig{
			URLTemplate: fetcher.DefaultURLTemplate,
			MaxClues:    fetcher.DefaultMaxClues,
			Delay:       fetcher.DefaultDelay,
			Timeout:     10 * time.Second,
			UserAgent:   fetcher.DefaultUserAgent,
		},
		Server: ServerConfig{Addr: "127.0.0.1:8080"},
	}
	return cfg
}

// Load reads the config at path over the defaults. A missing file yields
// the defaults.
func Load(path string) (*AppConfig, error) {
	cfg := defaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			applyDefaults(cfg)
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config to path, creating directories as needed
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// applyDefaults fills provider-dependent fields left empty
func applyDefaults(cfg *AppConfig) {
	e := &cfg.Embedding
	if url, model, keyEnv, ok := embedding.Preset(e.Provider); ok {
		if e.BaseURL == "" {
			e.BaseURL = url
		}
		if e.Model == "" {
			e.Model = model
		}
		if e.APIKeyEnv == "" {
			e.APIKeyEnv = keyEnv
		}
	}
	if e.ChunkSize == 0 {
		e.ChunkSize = embedding.DefaultChunkSize
	}
	if cfg.Prompt.Template == "" {
		cfg.Prompt.Template = prompt.DefaultTemplate
	}
	if cfg.Prompt.MaxClues == 0 {
		cfg.Prompt.MaxClues = prompt.DefaultMaxClues
	}
	if cfg.Training.Workers == 0 {
		cfg.Training.Workers = 1
	}
}

// Validate checks the values the pipeline depends on
func (c *AppConfig) Validate() error {
	e := c.Embedding
	switch {
	case e.BaseURL == "":
		return fmt.Errorf("%w: embedding.base_url is required for provider %q", ErrInvalid, e.Provider)
	case e.Model == "":
		return fmt.Errorf("%w: embedding.model is required", ErrInvalid)
	case e.APIKeyEnv == "":
		return fmt.Errorf("%w: embedding.api_key_env is required", ErrInvalid)
	case e.ChunkSize < 1:
		return fmt.Errorf("%w: embedding.chunk_size must be positive", ErrInvalid)
	case e.Pace < 0:
		return fmt.Errorf("%w: embedding.pace must not be negative", ErrInvalid)
	}

	t := c.Training
	if t.TestRatio <= 0 || t.TestRatio >= 1 {
		return fmt.Errorf("%w: training.test_ratio must be in (0, 1)", ErrInvalid)
	}
	if t.Folds < 2 {
		return fmt.Errorf("%w: training.folds must be at least 2", ErrInvalid)
	}
	if _, err := t.Grid.Candidates(); err != nil {
		return fmt.Errorf("%w: training.grid: %v", ErrInvalid, err)
	}
	if err := c.Ranking.Validate(); err != nil {
		return fmt.Errorf("%w: ranking: %v", ErrInvalid, err)
	}
	if c.Database.Path == "" || c.Database.ModelsDir == "" {
		return fmt.Errorf("%w: database.path and database.models_dir are required", ErrInvalid)
	}
	return nil
}

// APIKey returns the embedding API key from the configured environment
// variable
func (c *AppConfig) APIKey() (string, error) {
	key := os.Getenv(c.Embedding.APIKeyEnv)
	if key == "" {
		return "", fmt.Errorf("%w: environment variable %s not set", ErrMissingCredential, c.Embedding.APIKeyEnv)
	}
	return key, nil
}

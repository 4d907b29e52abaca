// Package config loads browserguard's settings: a YAML file layered over
// built-in defaults, with credentials filled in from the environment.
//
// Example file:
//
//	allowed_domains: [example.com, localhost]
//	llm:
//	  model: gpt-4o
//	execution:
//	  default_wait: 2s
//	  navigate_settle: 2s
//	  action_settle: 500ms
//	  inspect_delay: 5s
//	browser:
//	  headless: false
//	  lookup_timeout: 10s
//	planner:
//	  max_page_chars: 3000
//	logging:
//	  level: info
//	approval:
//	  token: "yes"
//
// A Config is read once at startup and treated as immutable afterwards.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables consulted by ApplyEnv.
const (
	EnvAPIKey  = "OPENAI_API_KEY"
	EnvBaseURL = "OPENAI_BASE_URL"
	EnvModel   = "OPENAI_MODEL"
)

// DefaultFileName is looked up in ~/.browserguard when no path is given.
const DefaultFileName = "config.yaml"

// Config is the complete application configuration.
type Config struct {
	// AllowedDomains is the baseline allowlist. Matching is exact after
	// normalization; there are no wildcards.
	AllowedDomains []string `yaml:"allowed_domains" validate:"required,min=1,dive,required,hostname_rfc1123|hostname_port"`

	LLM       LLMConfig       `yaml:"llm"`
	Execution ExecutionConfig `yaml:"execution"`
	Browser   BrowserConfig   `yaml:"browser"`
	Planner   PlannerConfig   `yaml:"planner"`
	Logging   LoggingConfig   `yaml:"logging"`
	Approval  ApprovalConfig  `yaml:"approval"`
}

// LLMConfig selects the planning model.
type LLMConfig struct {
	Model   string `yaml:"model" validate:"required"`
	BaseURL string `yaml:"base_url" validate:"omitempty,url"`
	APIKey  string `yaml:"api_key"`
}

// ExecutionConfig holds the executor's delays.
type ExecutionConfig struct {
	DefaultWait    time.Duration `yaml:"default_wait" validate:"gte=0s"`
	NavigateSettle time.Duration `yaml:"navigate_settle" validate:"gte=0s"`
	ActionSettle   time.Duration `yaml:"action_settle" validate:"gte=0s"`
	// InspectDelay keeps the browser open after a run.
	InspectDelay time.Duration `yaml:"inspect_delay" validate:"gte=0s"`
}

// BrowserConfig controls the Playwright session.
type BrowserConfig struct {
	Headless       bool          `yaml:"headless"`
	InstallDriver  bool          `yaml:"install_driver"`
	LookupTimeout  time.Duration `yaml:"lookup_timeout" validate:"gt=0s"`
	ViewportWidth  int           `yaml:"viewport_width" validate:"gt=0"`
	ViewportHeight int           `yaml:"viewport_height" validate:"gt=0"`
}

// PlannerConfig bounds what is sent to the model.
type PlannerConfig struct {
	MaxPageChars int `yaml:"max_page_chars" validate:"gt=0"`
}

// LoggingConfig controls the log file.
type LoggingConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error DEBUG INFO WARN WARNING ERROR"`
	// Dir overrides ~/.browserguard/logs.
	Dir string `yaml:"dir"`
}

// ApprovalConfig sets the affirmation token typed to approve a plan.
type ApprovalConfig struct {
	Token string `yaml:"token" validate:"required"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		AllowedDomains: []string{"example.com", "localhost"},
		LLM: LLMConfig{
			Model: "gpt-4o",
		},
		Execution: ExecutionConfig{
			DefaultWait:    2 * time.Second,
			NavigateSettle: 2 * time.Second,
			ActionSettle:   500 * time.Millisecond,
			InspectDelay:   5 * time.Second,
		},
		Browser: BrowserConfig{
			Headless:       false,
			InstallDriver:  false,
			LookupTimeout:  10 * time.Second,
			ViewportWidth:  1280,
			ViewportHeight: 720,
		},
		Planner: PlannerConfig{
			MaxPageChars: 3000,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Approval: ApprovalConfig{
			Token: "yes",
		},
	}
}

// DefaultPath returns ~/.browserguard/config.yaml.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".browserguard", DefaultFileName), nil
}

// Load reads path over the defaults. An empty path means the default
// location, which may be absent; an explicit path must exist. The result is
// not validated; call Validate after any overrides are applied.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return cfg, nil
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config from %s: %w", path, err)
	}

	if err := decode(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ApplyEnv fills LLM settings that the file left empty from the process
// environment.
func (c *Config) ApplyEnv() {
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = os.Getenv(EnvAPIKey)
	}
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = os.Getenv(EnvBaseURL)
	}
	if v := os.Getenv(EnvModel); v != "" && c.LLM.Model == Default().LLM.Model {
		c.LLM.Model = v
	}
}

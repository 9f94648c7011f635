// Package config provides configuration loading and management for dqagent.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete dqagent configuration.
type Config struct {
	Model     ModelConfig     `yaml:"model"`
	NL2SQL    NL2SQLConfig    `yaml:"nl2sql"`
	Workflow  WorkflowConfig  `yaml:"workflow"`
	Warehouse WarehouseConfig `yaml:"warehouse"`
	Store     StoreConfig     `yaml:"store"`
	Server    ServerConfig    `yaml:"server"`
}

// ModelConfig configures the LLM endpoint.
type ModelConfig struct {
	// Provider selects the provider adapter ("anthropic", "openai", "ollama").
	Provider string `yaml:"provider"`
	// Endpoint is the provider base URL (empty = provider default).
	Endpoint string `yaml:"endpoint"`
	// Model is the model identifier sent to the provider.
	Model string `yaml:"model"`
	// Temperature controls randomness for generation (0.0-1.0).
	Temperature float64 `yaml:"temperature"`
	// Timeout is the maximum time to wait for model responses.
	Timeout time.Duration `yaml:"timeout"`
}

// NL2SQLConfig configures the SQL generation strategy.
type NL2SQLConfig struct {
	// Method selects the generation strategy ("baseline" or "chase").
	// Fixed at startup; never re-checked per call.
	Method string `yaml:"method"`
}

// WorkflowConfig configures the lifecycle workflows.
type WorkflowConfig struct {
	// MaxGenerateAttempts bounds generate/validate rounds per workflow.
	MaxGenerateAttempts int `yaml:"max_generate_attempts"`
}

// WarehouseConfig configures the warehouse target and query service.
type WarehouseConfig struct {
	// ProjectID and DatasetID scope every session started by this
	// process.
	ProjectID string `yaml:"project_id"`
	DatasetID string `yaml:"dataset_id"`
	// QueryServiceURL is the base URL of the query service used for
	// schema introspection, dry-run validation, and exploration.
	QueryServiceURL string `yaml:"query_service_url"`
}

// StoreConfig configures rule persistence.
type StoreConfig struct {
	// Driver selects the store backend ("sqlite" or "memory").
	Driver string `yaml:"driver"`
	// Path is the SQLite database path (sqlite driver only).
	Path string `yaml:"path"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	// Addr is the listen address.
	Addr string `yaml:"addr"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Model: ModelConfig{
			Provider:    "ollama",
			Endpoint:    "http://localhost:11434/v1",
			Model:       "qwen2.5-coder:32b",
			Temperature: 0.1,
			Timeout:     3 * time.Minute,
		},
		NL2SQL: NL2SQLConfig{
			Method: "baseline",
		},
		Workflow: WorkflowConfig{
			MaxGenerateAttempts: 3,
		},
		Warehouse: WarehouseConfig{
			QueryServiceURL: "http://127.0.0.1:5000",
		},
		Store: StoreConfig{
			Driver: "sqlite",
			Path:   "data/dqrules.db",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Model.Provider == "" {
		return fmt.Errorf("model.provider is required")
	}
	if c.Model.Model == "" {
		return fmt.Errorf("model.model is required")
	}
	if c.Model.Temperature < 0 || c.Model.Temperature > 1 {
		return fmt.Errorf("model.temperature must be between 0 and 1")
	}
	switch c.NL2SQL.Method {
	case "baseline", "chase":
	default:
		return fmt.Errorf("nl2sql.method must be \"baseline\" or \"chase\"")
	}
	if c.Workflow.MaxGenerateAttempts < 1 {
		return fmt.Errorf("workflow.max_generate_attempts must be at least 1")
	}
	if c.Warehouse.ProjectID == "" || c.Warehouse.DatasetID == "" {
		return fmt.Errorf("warehouse.project_id and warehouse.dataset_id are required")
	}
	if c.Warehouse.QueryServiceURL == "" {
		return fmt.Errorf("warehouse.query_service_url is required")
	}
	switch c.Store.Driver {
	case "sqlite":
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for the sqlite driver")
		}
	case "memory":
	default:
		return fmt.Errorf("store.driver must be \"sqlite\" or \"memory\"")
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file, applied over the
// defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file.
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence
// for non-zero values).
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.Model.Provider != "" {
		c.Model.Provider = other.Model.Provider
	}
	if other.Model.Endpoint != "" {
		c.Model.Endpoint = other.Model.Endpoint
	}
	if other.Model.Model != "" {
		c.Model.Model = other.Model.Model
	}
	if other.Model.Temperature != 0 {
		c.Model.Temperature = other.Model.Temperature
	}
	if other.Model.Timeout != 0 {
		c.Model.Timeout = other.Model.Timeout
	}

	if other.NL2SQL.Method != "" {
		c.NL2SQL.Method = other.NL2SQL.Method
	}

	if other.Workflow.MaxGenerateAttempts != 0 {
		c.Workflow.MaxGenerateAttempts = other.Workflow.MaxGenerateAttempts
	}

	if other.Warehouse.ProjectID != "" {
		c.Warehouse.ProjectID = other.Warehouse.ProjectID
	}
	if other.Warehouse.DatasetID != "" {
		c.Warehouse.DatasetID = other.Warehouse.DatasetID
	}
	if other.Warehouse.QueryServiceURL != "" {
		c.Warehouse.QueryServiceURL = other.Warehouse.QueryServiceURL
	}

	if other.Store.Driver != "" {
		c.Store.Driver = other.Store.Driver
	}
	if other.Store.Path != "" {
		c.Store.Path = other.Store.Path
	}

	if other.Server.Addr != "" {
		c.Server.Addr = other.Server.Addr
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validConfig returns defaults completed with the fields that have no
// sensible default.
func validConfig() *Config {
	c := DefaultConfig()
	c.Warehouse.ProjectID = "acme-analytics"
	c.Warehouse.DatasetID = "sales"
	return c
}

func TestValidate(t *testing.T) {
	assert.NoError(t, validConfig().Validate())

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "missing provider",
			mutate:  func(c *Config) { c.Model.Provider = "" },
			wantErr: "model.provider",
		},
		{
			name:    "missing model",
			mutate:  func(c *Config) { c.Model.Model = "" },
			wantErr: "model.model",
		},
		{
			name:    "temperature out of range",
			mutate:  func(c *Config) { c.Model.Temperature = 1.5 },
			wantErr: "model.temperature",
		},
		{
			name:    "unknown nl2sql method",
			mutate:  func(c *Config) { c.NL2SQL.Method = "divination" },
			wantErr: "nl2sql.method",
		},
		{
			name:    "zero generate attempts",
			mutate:  func(c *Config) { c.Workflow.MaxGenerateAttempts = 0 },
			wantErr: "workflow.max_generate_attempts",
		},
		{
			name:    "missing warehouse target",
			mutate:  func(c *Config) { c.Warehouse.ProjectID = "" },
			wantErr: "warehouse.project_id",
		},
		{
			name:    "missing query service",
			mutate:  func(c *Config) { c.Warehouse.QueryServiceURL = "" },
			wantErr: "warehouse.query_service_url",
		},
		{
			name:    "unknown store driver",
			mutate:  func(c *Config) { c.Store.Driver = "postgres" },
			wantErr: "store.driver",
		},
		{
			name:    "sqlite without path",
			mutate:  func(c *Config) { c.Store.Path = "" },
			wantErr: "store.path",
		},
		{
			name:    "missing server addr",
			mutate:  func(c *Config) { c.Server.Addr = "" },
			wantErr: "server.addr",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMemoryDriverNeedsNoPath(t *testing.T) {
	c := validConfig()
	c.Store.Driver = "memory"
	c.Store.Path = ""
	assert.NoError(t, c.Validate())
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
model:
  provider: anthropic
  model: claude-sonnet-4-5
nl2sql:
  method: chase
warehouse:
  project_id: acme-analytics
  dataset_id: sales
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	c, err := LoadFromFile(path)
	require.NoError(t, err)

	// File values override defaults; unset fields keep them.
	assert.Equal(t, "anthropic", c.Model.Provider)
	assert.Equal(t, "chase", c.NL2SQL.Method)
	assert.Equal(t, "acme-analytics", c.Warehouse.ProjectID)
	assert.Equal(t, 3, c.Workflow.MaxGenerateAttempts)
	assert.Equal(t, ":8080", c.Server.Addr)
	assert.NoError(t, c.Validate())
}

func TestLoadFromFileErrors(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("model: [not a map"), 0644))
	_, err = LoadFromFile(bad)
	assert.Error(t, err)
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	c := validConfig()
	c.Model.Timeout = 90 * time.Second
	require.NoError(t, c.SaveToFile(path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, c, loaded)
}

func TestMerge(t *testing.T) {
	base := DefaultConfig()
	base.Merge(&Config{
		Model:     ModelConfig{Provider: "openai", Model: "gpt-4o"},
		Warehouse: WarehouseConfig{ProjectID: "acme-analytics", DatasetID: "sales"},
		Workflow:  WorkflowConfig{MaxGenerateAttempts: 5},
	})

	assert.Equal(t, "openai", base.Model.Provider)
	assert.Equal(t, "gpt-4o", base.Model.Model)
	assert.Equal(t, 5, base.Workflow.MaxGenerateAttempts)
	// Untouched fields keep their defaults.
	assert.Equal(t, "baseline", base.NL2SQL.Method)
	assert.Equal(t, ":8080", base.Server.Addr)

	base.Merge(nil) // no-op
	assert.Equal(t, "openai", base.Model.Provider)
}

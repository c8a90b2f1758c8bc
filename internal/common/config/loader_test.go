package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
camunda:
  broker_address: localhost:26500
database:
  postgres:
    host: localhost
    database: erp
    user: erp
  redis:
    address: localhost:6379
workers:
  chatbot-respond:
    enabled: true
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	t.Setenv("GENAI_API_KEY", "test-key")

	cfg, err := LoadFromFile(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "test-key", cfg.APIs.GenAI.APIKey)
	assert.Equal(t, "openai", cfg.APIs.GenAI.Provider)
	assert.Equal(t, 0.1, cfg.APIs.GenAI.Temperature)

	assert.Equal(t, 255, cfg.Chatbot.MaxInputLength)
	assert.Equal(t, 10, cfg.Chatbot.MemoryTurns)
	assert.True(t, cfg.Chatbot.IncludeSchema)
	assert.True(t, cfg.Chatbot.ReadOnlyGuard)
	assert.Equal(t, 255, cfg.Chatbot.TitleMaxLength)
	assert.Equal(t, "conversations", cfg.Chatbot.ConversationTable)
	assert.Equal(t, 300, cfg.Chatbot.SchemaCacheTTL)

	worker := cfg.Workers["chatbot-respond"]
	assert.True(t, worker.Enabled)
	assert.Equal(t, 5, worker.MaxJobsActive)
	assert.Equal(t, 30000, worker.Timeout)
	assert.Equal(t, 3, worker.MaxRetries)

	assert.Equal(t, 5432, cfg.Database.Postgres.Port)
	assert.Equal(t, ":8080", cfg.Observability.MetricsAddress)
}

func TestLoadFromFile_ExplicitFalseToggles(t *testing.T) {
	t.Setenv("GENAI_API_KEY", "test-key")

	body := minimalYAML + `
chatbot:
  include_schema: false
  read_only_guard: false
  memory_turns: 4
  schema_cache_ttl: 0
`
	cfg, err := LoadFromFile(writeConfig(t, body))
	require.NoError(t, err)

	assert.False(t, cfg.Chatbot.IncludeSchema)
	assert.False(t, cfg.Chatbot.ReadOnlyGuard)
	assert.Equal(t, 4, cfg.Chatbot.MemoryTurns)
	assert.Equal(t, 0, cfg.Chatbot.SchemaCacheTTL)
}

func TestLoadFromFile_ExpandsEnvReferences(t *testing.T) {
	t.Setenv("TEST_GENAI_KEY", "from-env")

	body := minimalYAML + `
apis:
  genai:
    provider: gemini
    api_key: ${TEST_GENAI_KEY}
`
	cfg, err := LoadFromFile(writeConfig(t, body))
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.APIs.GenAI.APIKey)
	assert.Equal(t, "https://generativelanguage.googleapis.com", cfg.APIs.GenAI.BaseURL)
}

func TestValidateConfig(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{}
		cfg.Camunda.BrokerAddress = "localhost:26500"
		cfg.Database.Postgres.Host = "localhost"
		cfg.Database.Postgres.Database = "erp"
		cfg.Database.Postgres.User = "erp"
		cfg.Database.Redis.Address = "localhost:6379"
		cfg.APIs.GenAI.APIKey = "key"
		applyDefaults(cfg)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing broker", func(c *Config) { c.Camunda.BrokerAddress = "" }, "camunda.broker_address"},
		{"missing postgres host", func(c *Config) { c.Database.Postgres.Host = "" }, "database.postgres.host"},
		{"missing redis", func(c *Config) { c.Database.Redis.Address = "" }, "database.redis.address"},
		{"missing api key", func(c *Config) { c.APIs.GenAI.APIKey = "" }, "apis.genai.api_key"},
		{"unknown provider", func(c *Config) { c.APIs.GenAI.Provider = "bard" }, "not supported"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := validateConfig(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetWorkerConfig(t *testing.T) {
	cfg := &Config{Workers: map[string]WorkerConfig{
		"describe-database": {Enabled: false, MaxJobsActive: 1, Timeout: 1000, MaxRetries: 1},
	}}

	assert.False(t, IsWorkerEnabled(cfg, "describe-database"))
	assert.True(t, IsWorkerEnabled(cfg, "chatbot-respond"))
	assert.Equal(t, 5, GetWorkerConfig(cfg, "chatbot-respond").MaxJobsActive)
	assert.Equal(t, time.Second, GetDuration(GetWorkerConfig(cfg, "describe-database").Timeout))
}

func TestPostgresConfig_GetDSN(t *testing.T) {
	p := PostgresConfig{Host: "db", Port: 5433, User: "u", Password: "p", Database: "erp", SSLMode: "require"}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=erp sslmode=require", p.GetDSN())
}

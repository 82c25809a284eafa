package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
server:
  port: 9090
dsb:
  username: "123456"
  password: "secret"
  readTimeoutMS: 2000
database:
  driver: postgres
  dsn: "host=localhost user=dsb dbname=dsb"
scheduler:
  intervalMS: 60000
logging:
  level: debug
`

func TestParse_AppliesValuesAndDefaults(t *testing.T) {
	cfg, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "123456", cfg.DSB.Username)
	assert.Equal(t, 2000, cfg.DSB.ReadTimeoutMS)
	assert.Equal(t, DefaultConnectTimeoutMS, cfg.DSB.ConnectTimeoutMS)
	assert.Equal(t, DefaultDSBEndpoint, cfg.DSB.Endpoint)
	assert.Equal(t, "de", cfg.DSB.Language)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 60000, cfg.Scheduler.IntervalMS)
	assert.Equal(t, DefaultInitialDelayMS, cfg.Scheduler.InitialDelayMS)
	assert.Equal(t, DefaultPageConcurrency, cfg.Aggregator.PageConcurrency)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestParse_EmptyFileUsesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(""))
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "dsbplan.db", cfg.Database.DSN)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.EqualValues(t, DefaultMaxBodyBytes, cfg.Parser.MaxBodyBytes)
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("invalid: yaml: content: [[["))
	assert.Error(t, err)
}

func TestParse_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "bad driver", yaml: "database:\n  driver: mysql\n"},
		{name: "bad endpoint", yaml: "dsb:\n  endpoint: not-a-url\n"},
		{name: "negative timeout", yaml: "dsb:\n  readTimeoutMS: -1\n"},
		{name: "bad level", yaml: "logging:\n  level: verbose\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestParse_EnvironmentOverrides(t *testing.T) {
	t.Setenv("DSB_USERNAME", "env-user")
	t.Setenv("DSB_PASSWORD", "env-pass")
	t.Setenv("DATABASE_DSN", "file:env.db")

	cfg, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "env-user", cfg.DSB.Username)
	assert.Equal(t, "env-pass", cfg.DSB.Password)
	assert.Equal(t, "file:env.db", cfg.Database.DSN)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadAppConfig_FromExplicitPath(t *testing.T) {
	orig := Config
	defer func() { Config = orig }()

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0644))

	require.NoError(t, LoadAppConfig(path))
	assert.Equal(t, 9090, Config.Server.Port)
}

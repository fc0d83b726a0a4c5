package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("/nonexistent/openbis.yaml")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
	assert.Equal(t, 60*time.Second, cfg.Timeout)
	assert.Equal(t, uint32(5), cfg.Transport.Breaker.MaxFailures)
}

func TestLoadYAML(t *testing.T) {
	p := writeFile(t, "openbis.yaml", `
url: https://openbis.example.org
user: alice
timeout: 15s
transport:
  rate_limit: 4.5
  burst: 2
  breaker:
    max_failures: 3
    timeout: 1m
auth:
  token_url: https://sso.example.org/token
  client_id: cli
  scopes: [openbis, profile]
logger:
  level: debug
  format: json
`)
	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "https://openbis.example.org", cfg.URL)
	assert.Equal(t, "alice", cfg.User)
	assert.Equal(t, 15*time.Second, cfg.Timeout)
	assert.Equal(t, 4.5, cfg.Transport.RateLimit)
	assert.Equal(t, 2, cfg.Transport.Burst)
	assert.Equal(t, uint32(3), cfg.Transport.Breaker.MaxFailures)
	assert.Equal(t, time.Minute, cfg.Transport.Breaker.Timeout)
	assert.Equal(t, 60*time.Second, cfg.Transport.Breaker.Interval, "unset keys keep defaults")
	assert.Equal(t, []string{"openbis", "profile"}, cfg.Auth.Scopes)
	assert.Equal(t, "json", cfg.Logger.Format)
	assert.Equal(t, "stderr", cfg.Logger.Output)
}

func TestLoadTOML(t *testing.T) {
	p := writeFile(t, "openbis.toml", `
url = "http://localhost:8443"
allow_http = true

[tracer]
enabled = true
exporter = "stdout"
`)
	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8443", cfg.URL)
	assert.True(t, cfg.AllowHTTP)
	assert.True(t, cfg.Tracer.Enabled)
	assert.Equal(t, "stdout", cfg.Tracer.Exporter)
}

func TestLoadPrecedence(t *testing.T) {
	p := writeFile(t, "openbis.yaml", "url: https://file.example.org\nuser: file\nlogger:\n  level: error\n")
	dotenv := writeFile(t, ".env", "OPENBIS_USER=dotenv\nOPENBIS_LOGGER_LEVEL=info\nOPENBIS_SESSION_PASSPHRASE=hunter2\n")
	t.Setenv("OPENBIS_LOGGER_LEVEL", "debug")
	t.Setenv("OPENBIS_TRANSPORT_BREAKER_TIMEOUT", "5s")
	t.Setenv("OPENBIS_AUTH_SCOPES", "a,b")
	t.Setenv("OPENBIS_AUTH_TOKEN_URL", "https://sso.example.org/token")
	t.Setenv("OPENBIS_AUTH_CLIENT_ID", "cli")

	cfg, err := Load(p, dotenv, filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "https://file.example.org", cfg.URL)
	assert.Equal(t, "dotenv", cfg.User)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, "hunter2", cfg.Session.Passphrase)
	assert.Equal(t, 5*time.Second, cfg.Transport.Breaker.Timeout)
	assert.Equal(t, []string{"a", "b"}, cfg.Auth.Scopes)
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"plain http", "url: http://openbis.example.org\n", "allow_http"},
		{"relative url", "url: openbis.example.org\n", "absolute"},
		{"bad scheme", "url: ftp://openbis.example.org\n", "scheme"},
		{"log format", "logger:\n  format: xml\n", "logger.format"},
		{"exporter", "tracer:\n  exporter: jaeger\n", "tracer.exporter"},
		{"auth client", "auth:\n  issuer: https://sso.example.org\n", "client_id"},
		{"auth http", "auth:\n  token_url: http://sso.example.org/t\n  client_id: x\n", "https"},
		{"unknown key", "urll: https://openbis.example.org\n", "urll"},
		{"bad duration", "timeout: soon\n", "timeout"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeFile(t, "c.yaml", tc.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}

	_, err := Load(writeFile(t, "c.json", "{}"))
	assert.ErrorContains(t, err, "unknown format")
}

func TestValidationErrorListsAll(t *testing.T) {
	cfg := Defaults()
	cfg.URL = "http://x"
	cfg.Logger.Level = "loud"
	err := Validate(cfg)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Errors, 2)
}

func TestEnvName(t *testing.T) {
	assert.Equal(t, "OPENBIS_TRANSPORT_BREAKER_MAX_FAILURES", EnvName([]string{"transport", "breaker", "max_failures"}))

	var names []string
	for _, k := range keys(reflect.TypeOf(Config{}), nil) {
		names = append(names, EnvName(k))
	}
	assert.Contains(t, names, "OPENBIS_URL")
	assert.Contains(t, names, "OPENBIS_AUTH_CLIENT_SECRET")
	assert.Contains(t, names, "OPENBIS_SESSION_DIR")
	assert.NotContains(t, names, "OPENBIS_TRANSPORT_BREAKER")
}

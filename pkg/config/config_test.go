package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 5*time.Second, MustDuration(cfg.Pipeline.Timeout))
}

func TestLoadFromFile_YAML(t *testing.T) {
	path := writeFile(t, "rxmux.yaml", `
server:
  addr: ":9090"
logging:
  level: debug
  format: json
pipeline:
  timeout: 250ms
  joinMaxAge: 1m
guard:
  jwtSecret: s3cret
  rateLimit:
    rate: 5
    burst: 10
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "10s", cfg.Server.ShutdownTimeout, "unset fields keep defaults")
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 250*time.Millisecond, MustDuration(cfg.Pipeline.Timeout))
	assert.Equal(t, time.Minute, MustDuration(cfg.Pipeline.JoinMaxAge))
	assert.Equal(t, "s3cret", cfg.Guard.JWTSecret)
	assert.Equal(t, 5.0, cfg.Guard.RateLimit.Rate)
	assert.Equal(t, 10, cfg.Guard.RateLimit.Burst)
}

func TestLoadFromFile_JSON(t *testing.T) {
	path := writeFile(t, "rxmux.json", `{"server":{"addr":":7070"},"pipeline":{"timeoutUnsafe":true}}`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.True(t, cfg.Pipeline.TimeoutUnsafe)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFromFile_Errors(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
		want error
	}{
		{"missing", func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope.yaml") }, ErrFileNotFound},
		{"empty", func(t *testing.T) string { return writeFile(t, "e.yaml", "  \n") }, ErrEmptyFile},
		{"bad yaml", func(t *testing.T) string { return writeFile(t, "b.yaml", "server: [") }, ErrInvalidYAML},
		{"bad json", func(t *testing.T) string { return writeFile(t, "b.json", "{server") }, ErrInvalidJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(tt.path(t))
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := LoadFromFile(t.TempDir())
	assert.ErrorContains(t, err, "directory")
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.Addr = ""
	cfg.Pipeline.Timeout = "soon"
	cfg.Pipeline.JoinMaxAge = "-1s"
	cfg.Logging.Level = "loud"
	cfg.Logging.Format = "xml"
	cfg.Guard.RateLimit.Rate = -1

	err := cfg.Validate()
	require.Error(t, err)
	for _, field := range []string{"server.addr", "pipeline.timeout", "pipeline.joinMaxAge", "logging.level", "logging.format", "guard.rateLimit.rate"} {
		assert.ErrorContains(t, err, field)
	}

	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvAddr:      ":1234",
		EnvLogLevel:  "warn",
		EnvLogFormat: "json",
	}
	cfg := DefaultConfig()
	cfg.ApplyEnv(func(k string) string { return env[k] })

	assert.Equal(t, ":1234", cfg.Server.Addr)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad(t *testing.T) {
	t.Setenv(EnvAddr, ":5555")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":5555", cfg.Server.Addr)

	path := writeFile(t, "bad.yaml", "pipeline:\n  timeout: soon\n")
	_, err = Load(path)
	assert.ErrorContains(t, err, "invalid configuration")
}

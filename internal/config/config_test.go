package config

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("CREDENTIAL_FILE", "")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080/api", cfg.APIURL)
	assert.Equal(t, 10*time.Second, cfg.APITimeout)
	assert.Equal(t, BackendFile, cfg.CredentialBackend)
	assert.Equal(t, "auth_token", cfg.CredentialSlot)
	assert.Equal(t, "/auth/login", cfg.LoginPath)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSOrigins)
	assert.Equal(t, "credentials.yaml", filepath.Base(cfg.CredentialFile))
	assert.Equal(t, ".storefront", filepath.Base(filepath.Dir(cfg.CredentialFile)))
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("STOREFRONT_API_URL", "https://shop.example.com/api")
	t.Setenv("STOREFRONT_API_TIMEOUT", "3s")
	t.Setenv("CREDENTIAL_BACKEND", "memory")
	t.Setenv("CREDENTIAL_FILE", "/tmp/creds.yaml")
	t.Setenv("CORS_ORIGINS", "http://a.test,http://b.test")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "https://shop.example.com/api", cfg.APIURL)
	assert.Equal(t, 3*time.Second, cfg.APITimeout)
	assert.Equal(t, BackendMemory, cfg.CredentialBackend)
	assert.Equal(t, "/tmp/creds.yaml", cfg.CredentialFile)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
}

func TestFromEnvRejectsUnknownBackend(t *testing.T) {
	t.Setenv("CREDENTIAL_FILE", "/tmp/creds.yaml")
	t.Setenv("CREDENTIAL_BACKEND", "floppy")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CREDENTIAL_BACKEND")
}

func TestLoggerFormatAndLevel(t *testing.T) {
	var buf bytes.Buffer
	cfg := Config{LogLevel: "warn", LogFormat: "json"}
	logger := cfg.Logger(&buf, "shop")

	logger.Info("hidden")
	logger.Warn("shown", slog.Int("n", 1))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"service":"shop"`)
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("CONFIG_PATH", "")
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, envFile, err := Load()
	require.NoError(t, err)
	assert.Empty(t, envFile)
	assert.Equal(t, "8080", cfg.HTTP.Port)
	assert.Equal(t, []string{"http://localhost:5173", "http://127.0.0.1:5173"}, cfg.HTTP.CORSOrigins)
	assert.Equal(t, 10*time.Second, cfg.HTTP.ShutdownTimeout)
	assert.Equal(t, EventsDriverNone, cfg.Events.Driver)
	assert.Equal(t, time.Minute, cfg.Expiry.Interval)
	assert.True(t, cfg.Expiry.Enabled)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, int32(10), cfg.Postgres.MaxConns)
}

func TestLoad_DotEnvDoesNotOverrideEnvironment(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("JWT_SECRET=from-file\nPORT=9999\n"), 0o600))
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("PORT", "")
	os.Unsetenv("PORT")

	cfg, envFile, err := Load()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ".env"), envFile)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	assert.Equal(t, "9999", cfg.HTTP.Port)
}

func TestLoad_YAMLFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.yaml")
	yaml := `
http:
  port: "9090"
events:
  driver: kafka
  kafka_brokers: ["k1:9092", "k2:9092"]
auth:
  jwt_secret: yaml-secret
  reviewers: ["mod-1", "mod-2"]
expiry:
  interval: 30s
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	t.Setenv("CONFIG_PATH", path)

	cfg, _, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.HTTP.Port)
	assert.Equal(t, EventsDriverKafka, cfg.Events.Driver)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Events.KafkaBrokers)
	assert.Equal(t, []string{"mod-1", "mod-2"}, cfg.Auth.Reviewers)
	assert.Equal(t, 30*time.Second, cfg.Expiry.Interval)
}

func TestValidate(t *testing.T) {
	cfg := Config{
		Auth:   AuthConfig{JWTSecret: "x"},
		Events: EventsConfig{Driver: EventsDriverNATS},
		Expiry: ExpiryConfig{Enabled: true, Interval: time.Second},
	}
	require.NoError(t, cfg.Validate())

	bad := cfg
	bad.Auth.JWTSecret = " "
	bad.Events.Driver = "rabbit"
	bad.Expiry.Interval = 0
	err := bad.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
	assert.Contains(t, err.Error(), "rabbit")
	assert.Contains(t, err.Error(), "EXPIRY_INTERVAL")
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdirTemp runs the test from an empty directory so no stray .env is loaded.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadYAML(t *testing.T) {
	dir := chdirTemp(t)
	path := filepath.Join(dir, "ephemera.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "9000"
db_path: /var/lib/ephemera/notes.db
log_level: debug
secret_key: from-yaml
access_token_ttl: 5m
purge_interval: 1h
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "/var/lib/ephemera/notes.db", cfg.DBPath)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "from-yaml", cfg.SecretKey)
	assert.Equal(t, 5*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 24*time.Hour, cfg.RefreshTokenTTL)
	assert.Equal(t, time.Hour, cfg.PurgeInterval)
}

func TestLoadEnvOverridesYAML(t *testing.T) {
	dir := chdirTemp(t)
	path := filepath.Join(dir, "ephemera.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: \"9000\"\nsecret_key: from-yaml\n"), 0o600))

	t.Setenv("EPHEMERA_PORT", "7000")
	t.Setenv("EPHEMERA_PURGE_INTERVAL", "15m")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "7000", cfg.Port)
	assert.Equal(t, "from-yaml", cfg.SecretKey)
	assert.Equal(t, 15*time.Minute, cfg.PurgeInterval)
}

func TestLoadDotEnv(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("EPHEMERA_FIELD_ENCRYPTION_KEY=from-dotenv\n"), 0o600))
	t.Setenv("EPHEMERA_FIELD_ENCRYPTION_KEY", "")
	os.Unsetenv("EPHEMERA_FIELD_ENCRYPTION_KEY")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.FieldEncryptionKey)
}

func TestLoadBadDuration(t *testing.T) {
	chdirTemp(t)
	t.Setenv("EPHEMERA_ACCESS_TOKEN_TTL", "soon")

	_, err := Load("")
	assert.ErrorContains(t, err, "EPHEMERA_ACCESS_TOKEN_TTL")
}

func TestLoadMissingFile(t *testing.T) {
	chdirTemp(t)

	_, err := Load("does-not-exist.yaml")
	assert.Error(t, err)
}

func TestRequireSecrets(t *testing.T) {
	cfg := Default()
	err := cfg.RequireSecrets()
	require.Error(t, err)
	assert.ErrorContains(t, err, "secret_key")
	assert.ErrorContains(t, err, "field_encryption_key")

	cfg.SecretKey = "s"
	cfg.FieldEncryptionKey = "f"
	assert.NoError(t, cfg.RequireSecrets())

	cfg.PurgeInterval = -time.Second
	assert.Error(t, cfg.RequireSecrets())
}

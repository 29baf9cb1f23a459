package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "*:8080", cfg.Listen)
	assert.Equal(t, 60*time.Second, cfg.CacheTTL)
}

func TestLoadFlagsOverrideDefaults(t *testing.T) {
	cfg, err := Load([]string{"--listen", "*:9090", "--cache-ttl", "30s"})
	require.NoError(t, err)
	assert.Equal(t, "*:9090", cfg.Listen)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
}

func TestLoadFlagsOverrideFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ttlcached.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: \":7070\"\ncache_ttl: 45s\n"), 0o600))

	cfg, err := Load([]string{"--config", path})
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Listen)
	assert.Equal(t, 45*time.Second, cfg.CacheTTL)

	// An explicit flag still wins over the file.
	cfg, err = Load([]string{"--config", path, "--listen", "*:1111"})
	require.NoError(t, err)
	assert.Equal(t, "*:1111", cfg.Listen)
	assert.Equal(t, 45*time.Second, cfg.CacheTTL)
}

func TestLoadMissingConfigFileErrors(t *testing.T) {
	_, err := Load([]string{"--config", "/nonexistent/ttlcached.yaml"})
	assert.Error(t, err)
}

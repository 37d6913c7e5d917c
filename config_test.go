package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("PGCONN", "sqlite::memory:")
	t.Setenv("CLIENT_ID", "client")
	t.Setenv("CLIENT_SECRET", "secret")
	t.Setenv("ADMINS", "a@example.com,b@example.com")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequiredEnv(t)
	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 1000, cfg.MaxRestarts)
	assert.Equal(t, 5000, cfg.Budget)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, cfg.Admins)
}

func TestLoadConfigErrors(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("MAX_RESTARTS", "many")
	_, err := loadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env:")

	t.Setenv("MAX_RESTARTS", "10")
	os.Unsetenv("CLIENT_SECRET")
	_, err = loadConfig()
	assert.Error(t, err)
}

func TestConfigTopologyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rooms:\n  - name: Attic\ncharacters: [Ghost]\n"), 0o644))

	top, err := serverConfig{TopologyFile: path}.topology()
	require.NoError(t, err)
	assert.Equal(t, []string{"Ghost"}, top.Characters)

	_, err = serverConfig{TopologyFile: filepath.Join(t.TempDir(), "missing.yaml")}.topology()
	assert.Error(t, err)
}

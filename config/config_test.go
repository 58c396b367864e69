package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCoordinatorConfigDefaults(t *testing.T) {
	cfg, err := LoadCoordinatorConfig("")
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Threshold)
	assert.Equal(t, int64(1000000), cfg.Base)
	assert.Equal(t, "localhost", cfg.Host)
}

func TestLoadCoordinatorConfigFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "coordinator.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
threshold: 3
base: 7
host: 0.0.0.0
port: 9001
vector_length: 3
`), 0o600))

	cfg, err := LoadCoordinatorConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Threshold)
	assert.Equal(t, int64(7), cfg.Base)
	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, 9001, cfg.Port)
	assert.Equal(t, 3, cfg.VectorLength)
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("SECAGG_THRESHOLD", "5")
	defer os.Unsetenv("SECAGG_THRESHOLD")

	path := filepath.Join(t.TempDir(), "coordinator.yaml")
	require.NoError(t, os.WriteFile(path, []byte("threshold: 3\n"), 0o600))

	cfg, err := LoadCoordinatorConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Threshold)
}

func TestCoordinatorValidateRejectsBadBase(t *testing.T) {
	cfg := &CoordinatorConfig{Threshold: 2, Base: 1, Host: "localhost", Port: 8001, VectorLength: 1}
	assert.ErrorIs(t, cfg.Validate(), ErrConfig)
}

func TestClientValidateRejectsEmptyVector(t *testing.T) {
	cfg := &ClientConfig{Host: "localhost", Port: 8001}
	assert.ErrorIs(t, cfg.Validate(), ErrConfig)
}

func TestLoadDotEnvMissingFileIsNotAnError(t *testing.T) {
	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "does-not-exist.env")))
}

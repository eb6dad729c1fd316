package process_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/solsim/pkg/adapters/process"
)

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := process.LoadConfig(filepath.Join(t.TempDir(), "localnet.yaml"))
	require.NoError(t, err)
	assert.Equal(t, process.DefaultConfig(), cfg)
}

func TestLoadConfig_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "localnet.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
command: [solana-test-validator, --reset]
dir: ./program
poll_interval: 250ms
terminate_timeout: 3s
reuse_running: true
env:
  RUST_LOG: warn
`), 0o644))

	cfg, err := process.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"solana-test-validator", "--reset"}, cfg.Command)
	assert.Equal(t, "./program", cfg.Dir)
	assert.Equal(t, 250*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, 3*time.Second, cfg.TerminateTimeout)
	assert.Equal(t, process.DefaultStartupTimeout, cfg.StartupTimeout)
	assert.Equal(t, process.DefaultReadyMarker, cfg.ReadyMarker)
	assert.True(t, cfg.ReuseRunning)
	assert.Equal(t, "warn", cfg.Env["RUST_LOG"])
}

func TestLoadConfig_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "localnet.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"process_name": "my-validator", "ready_marker": "ready"}`), 0o644))

	cfg, err := process.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "my-validator", cfg.ProcessName)
	assert.Equal(t, "ready", cfg.ReadyMarker)
}

func TestConfig_Validate(t *testing.T) {
	cfg := process.DefaultConfig()
	require.NoError(t, cfg.Validate())

	bad := cfg
	bad.ReadyMarker = ""
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.PollInterval = 0
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.TerminateTimeout = -time.Second
	assert.Error(t, bad.Validate())
}

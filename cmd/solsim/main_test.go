package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/solsim/internal/cli"
	"github.com/aretw0/solsim/internal/config"
	"github.com/aretw0/solsim/pkg/adapters/lua"
	"github.com/aretw0/solsim/pkg/adapters/process"
)

const model = `
watch = {"n"}
function initial_step() return {n = 1} end
function step(state, history) return {n = state.n * 3} end
`

func writeModel(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.lua")
	require.NoError(t, os.WriteFile(path, []byte(model), 0o644))
	return path
}

func TestBuildScript_Plain(t *testing.T) {
	path := writeModel(t)
	target, err := buildScript(context.Background(), cli.Env{Config: config.Default(), Args: []string{path}})
	require.NoError(t, err)
	defer target.Close()

	assert.False(t, target.System.ProcessBacked())
	assert.Equal(t, []string{"n"}, target.Watchlist.Names())
}

func TestBuildScript_ConfigWatchWins(t *testing.T) {
	cfg := config.Default()
	cfg.Script = writeModel(t)
	cfg.Watch = []string{"other"}

	target, err := buildScript(context.Background(), cli.Env{Config: cfg})
	require.NoError(t, err)
	defer target.Close()
	assert.Equal(t, []string{"other"}, target.Watchlist.Names())
}

func TestBuildScript_Localnet(t *testing.T) {
	cfg := config.Default()
	cfg.Localnet.Enabled = true

	target, err := buildScript(context.Background(), cli.Env{
		Config:     cfg,
		Args:       []string{writeModel(t)},
		Supervisor: process.NewSupervisor(cfg.Process()),
	})
	require.NoError(t, err)
	defer target.Close()

	assert.True(t, target.System.ProcessBacked())
	_, ok := target.System.(*lua.ProcessScript)
	assert.True(t, ok)
}

func TestBuildScript_NoScript(t *testing.T) {
	_, err := buildScript(context.Background(), cli.Env{Config: config.Default()})
	assert.ErrorContains(t, err, "no script")
}

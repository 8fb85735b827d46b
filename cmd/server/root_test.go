package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/live-server/backend/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resolve(t *testing.T, argv ...string) (*config.Config, error) {
	t.Helper()
	cmd := newRootCmd()
	require.NoError(t, cmd.ParseFlags(argv))
	return resolveConfig(cmd, cmd.Flags().Args())
}

func TestResolveConfig_Defaults(t *testing.T) {
	cfg, err := resolve(t)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestResolveConfig_FlagsOverrideFile(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "live.yaml")
	yaml := "server:\n  host: 10.0.0.1\n  port: 9000\nlog:\n  level: warn\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(yaml), 0644))

	cfg, err := resolve(t, "--config", cfgPath, "--port", "9100", "public")
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "public", cfg.Watch.Root)
}

func TestResolveConfig_ShortFlags(t *testing.T) {
	cfg, err := resolve(t, "-H", "0.0.0.0", "-p", "3000", "--log-level", "debug")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestResolveConfig_InvalidPort(t *testing.T) {
	_, err := resolve(t, "--port", "0")
	assert.Error(t, err)
}

func TestResolveConfig_MissingConfigFile(t *testing.T) {
	_, err := resolve(t, "--config", filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestRootCmd_TooManyArgs(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"a", "b"})
	assert.Error(t, cmd.Execute())
}

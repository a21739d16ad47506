package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromFileAppliesDefaultsAndOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "runtime.toml")
	toml := `
[llm]
search_paths = ["/opt/models"]

[server]
conduit_port = 9001
`
	require.NoError(t, os.WriteFile(path, []byte(toml), DefaultFilePermissions))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"/opt/models"}, cfg.LLM.SearchPaths)
	assert.Equal(t, 9001, cfg.Server.ConduitPort)
	// Untouched sections still carry their defaults.
	assert.Equal(t, 10000, cfg.Diagnostics.RetainEntries)
	assert.True(t, cfg.Extension.Keepalive.Enabled)
}

func TestDefaultsAppliedToBareViper(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))

	assert.Equal(t, DefaultConduitPort, cfg.Server.ConduitPort)
	assert.Equal(t, "everforest", cfg.Server.LogTheme)
	assert.Contains(t, cfg.Server.AllowedOrigins, "http://localhost")
	assert.Equal(t, 3, cfg.Extension.Keepalive.ReconnectAttempts)
}

func TestWriteRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.toml")

	cfg := &Config{
		Server: ServerConfig{ConduitPort: 1234, LogTheme: "dawn"},
	}
	require.NoError(t, Write(path, cfg))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1234, loaded.Server.ConduitPort)
	assert.Equal(t, "dawn", loaded.Server.LogTheme)
}

func TestResetClearsCache(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	first, err := Load()
	require.NoError(t, err)
	Reset()
	second, err := Load()
	require.NoError(t, err)
	assert.NotSame(t, first, second)
}

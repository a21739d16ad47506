// Package config loads the runtime's host/application configuration: the
// operator-level TOML document that sits above the per-app wire config
// (internal/ini). It holds AI/LLM model search paths, extension-plugin
// discovery paths, diagnostics retention, and conduit's allowed origins.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"

	"github.com/teranos/qntx-runtime/rterr"
)

// DefaultConduitPort is the default port for the conduit websocket listener.
const DefaultConduitPort = 8877

const (
	DefaultDirPermissions  = 0o755
	DefaultFilePermissions = 0o644
)

// LLMConfig configures the ai.llm service's model and LoRA discovery.
type LLMConfig struct {
	SearchPaths    []string `mapstructure:"search_paths" toml:"search_paths"`
	LoRAPaths      []string `mapstructure:"lora_paths" toml:"lora_paths"`
	ContextSize    int      `mapstructure:"context_size" toml:"context_size"`
	TimeoutSeconds int      `mapstructure:"timeout_seconds" toml:"timeout_seconds"`
}

// ExtensionConfig configures the extension loader's plugin discovery.
type ExtensionConfig struct {
	Enabled   []string                 `mapstructure:"enabled" toml:"enabled"`
	Paths     []string                 `mapstructure:"paths" toml:"paths"`
	Keepalive ExtensionKeepaliveConfig `mapstructure:"keepalive" toml:"keepalive"`
}

// ExtensionKeepaliveConfig mirrors the teacher's plugin websocket keepalive
// tuning, repurposed for the extension host's gRPC/websocket transport.
type ExtensionKeepaliveConfig struct {
	Enabled           bool `mapstructure:"enabled" toml:"enabled"`
	PingIntervalSecs  int  `mapstructure:"ping_interval_secs" toml:"ping_interval_secs"`
	PongTimeoutSecs   int  `mapstructure:"pong_timeout_secs" toml:"pong_timeout_secs"`
	ReconnectAttempts int  `mapstructure:"reconnect_attempts" toml:"reconnect_attempts"`
}

// DiagnosticsConfig configures the diagnostics store's retention policy.
type DiagnosticsConfig struct {
	Path          string `mapstructure:"path" toml:"path"`
	RetainEntries int    `mapstructure:"retain_entries" toml:"retain_entries"`
}

// ServerConfig configures the conduit websocket listener and window preload
// log theme.
type ServerConfig struct {
	ConduitPort    int      `mapstructure:"conduit_port" toml:"conduit_port"`
	AllowedOrigins []string `mapstructure:"allowed_origins" toml:"allowed_origins"`
	LogTheme       string   `mapstructure:"log_theme" toml:"log_theme"`
}

// PermissionsConfig gates optional hardware/OS access points that default
// to denied, mirroring the original's permissions_allow_* build flags.
type PermissionsConfig struct {
	AllowBluetooth bool `mapstructure:"allow_bluetooth" toml:"allow_bluetooth"`
}

// Config is the top-level host/application configuration document.
type Config struct {
	LLM         LLMConfig         `mapstructure:"llm" toml:"llm"`
	Extension   ExtensionConfig   `mapstructure:"extension" toml:"extension"`
	Diagnostics DiagnosticsConfig `mapstructure:"diagnostics" toml:"diagnostics"`
	Server      ServerConfig      `mapstructure:"server" toml:"server"`
	Permissions PermissionsConfig `mapstructure:"permissions" toml:"permissions"`
}

var globalConfig *Config
var viperInstance *viper.Viper

// Load reads the runtime configuration using Viper, merging system, user,
// and project config files (lowest to highest precedence) plus environment
// variables prefixed QNTXRT_.
func Load() (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	v := initViper()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, rterr.Internal("failed to unmarshal config: %v", err)
	}

	globalConfig = &cfg
	return globalConfig, nil
}

// Reset clears the cached configuration and Viper instance. Useful for
// tests and for ConfigWatcher-driven reloads.
func Reset() {
	globalConfig = nil
	viperInstance = nil
}

// LoadFromFile loads configuration from a specific TOML file path, bypassing
// the merge-and-cache behavior of Load.
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, rterr.Internal("failed to read config file %s: %v", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, rterr.Internal("failed to unmarshal config from %s: %v", path, err)
	}
	return &cfg, nil
}

func initViper() *viper.Viper {
	if viperInstance != nil {
		return viperInstance
	}

	v := viper.New()
	v.SetEnvPrefix("QNTXRT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	mergeConfigFiles(v)

	viperInstance = v
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("llm.search_paths", []string{"~/.qntx-runtime/models"})
	v.SetDefault("llm.lora_paths", []string{"~/.qntx-runtime/loras"})
	v.SetDefault("llm.context_size", 4096)
	v.SetDefault("llm.timeout_seconds", 120)

	v.SetDefault("extension.enabled", []string{})
	v.SetDefault("extension.paths", []string{"~/.qntx-runtime/extensions", "./extensions"})
	v.SetDefault("extension.keepalive.enabled", true)
	v.SetDefault("extension.keepalive.ping_interval_secs", 30)
	v.SetDefault("extension.keepalive.pong_timeout_secs", 60)
	v.SetDefault("extension.keepalive.reconnect_attempts", 3)

	v.SetDefault("diagnostics.path", "diagnostics.db")
	v.SetDefault("diagnostics.retain_entries", 10000)

	v.SetDefault("server.conduit_port", DefaultConduitPort)
	v.SetDefault("server.allowed_origins", []string{
		"http://localhost",
		"https://localhost",
		"http://127.0.0.1",
		"https://127.0.0.1",
	})
	v.SetDefault("server.log_theme", "everforest")

	v.SetDefault("permissions.allow_bluetooth", false)
}

// findProjectConfig walks up from the working directory looking for
// runtime.toml, mirroring the teacher's am.toml-over-config.toml search.
func findProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		path := filepath.Join(dir, "runtime.toml")
		if _, err := os.Stat(path); err == nil {
			return path
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// mergeConfigFiles merges config files in precedence order: system < user <
// project < env vars, same scheme as the teacher's mergeConfigFiles.
func mergeConfigFiles(v *viper.Viper) {
	homeDir, _ := os.UserHomeDir()
	userDir := filepath.Join(homeDir, ".qntx-runtime")
	os.MkdirAll(userDir, DefaultDirPermissions)

	configPaths := []string{
		"/etc/qntx-runtime/runtime.toml",
		filepath.Join(userDir, "runtime.toml"),
	}
	if project := findProjectConfig(); project != "" {
		configPaths = append(configPaths, project)
	}

	for _, path := range configPaths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		tempViper := viper.New()
		tempViper.SetConfigFile(path)
		tempViper.SetConfigType("toml")
		if err := tempViper.ReadInConfig(); err != nil {
			continue
		}

		settings := tempViper.AllSettings()
		keys := make([]string, 0, len(settings))
		for key := range settings {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			v.Set(key, settings[key])
		}
	}
}

// Write serializes cfg as TOML to path with safe file permissions.
func Write(path string, cfg *Config) error {
	buf := &strings.Builder{}
	encoder := toml.NewEncoder(buf)
	if err := encoder.Encode(cfg); err != nil {
		return rterr.Internal("failed to encode config as TOML: %v", err)
	}
	if err := os.WriteFile(path, []byte(buf.String()), DefaultFilePermissions); err != nil {
		return rterr.Internal("failed to write config file %s: %v", path, err)
	}
	return nil
}

// String renders a compact summary, matching am.Config.String's style.
func (c *Config) String() string {
	return fmt.Sprintf("Config{LLM: %d search path(s), Extension: %d path(s), Server: {ConduitPort: %d}}",
		len(c.LLM.SearchPaths), len(c.Extension.Paths), c.Server.ConduitPort)
}

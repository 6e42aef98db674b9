package resourcecache

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds everything needed to host resource caches.
type Config struct {
	EngineType string `toml:"engine" yaml:"engine" env:"RESOURCECACHE_ENGINE"`
	PoolSize   int    `toml:"pool_size" yaml:"pool_size" env:"RESOURCECACHE_POOL_SIZE"`

	// ScriptRoot overrides the bundled scripts for app:/// paths.
	ScriptRoot string `toml:"script_root" yaml:"script_root" env:"RESOURCECACHE_SCRIPT_ROOT"`
	// ScriptPath defaults to the bundled script for EngineType.
	ScriptPath string `toml:"script_path" yaml:"script_path" env:"RESOURCECACHE_SCRIPT_PATH"`

	Namespace string `toml:"namespace" yaml:"namespace" env:"RESOURCECACHE_NAMESPACE"`
	Property  string `toml:"property" yaml:"property" env:"RESOURCECACHE_PROPERTY"`
	GateAll   bool   `toml:"gate_all" yaml:"gate_all" env:"RESOURCECACHE_GATE_ALL"`

	LogLevel  string `toml:"log_level" yaml:"log_level" env:"RESOURCECACHE_LOG_LEVEL"`
	LogFormat string `toml:"log_format" yaml:"log_format" env:"RESOURCECACHE_LOG_FORMAT"`
}

// DefaultConfig returns the configuration used when nothing overrides it.
func DefaultConfig() Config {
	return Config{
		EngineType: TypeEngineJs,
		PoolSize:   1,
		Namespace:  DefaultNamespace,
		Property:   DefaultProperty,
		GateAll:    true,
		LogLevel:   "info",
		LogFormat:  "text",
	}
}

// LoadConfig starts from DefaultConfig, applies the file at path (TOML or
// YAML by extension) when path is not empty, then RESOURCECACHE_*
// environment variables, and validates the result.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		switch ext := strings.ToLower(filepath.Ext(path)); ext {
		case ".toml":
			err = toml.Unmarshal(data, &cfg)
		case ".yaml", ".yml":
			err = yaml.Unmarshal(data, &cfg)
		default:
			err = fmt.Errorf("unsupported config format %q", ext)
		}
		if err != nil {
			return Config{}, Wrap(CodeInvalidConfig, "decode config "+path, err)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, Wrap(CodeInvalidConfig, "parse env", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	if _, ok := engineTypes[c.EngineType]; !ok {
		return NewError(CodeInvalidConfig, fmt.Sprintf("unknown engine type %q", c.EngineType))
	}
	if c.PoolSize < 1 {
		return NewError(CodeInvalidConfig, "pool size must be positive")
	}
	if c.Namespace == "" || c.Property == "" {
		return NewError(CodeInvalidConfig, "namespace and property are required")
	}
	return nil
}

// PluginOptions translates the configuration into Plugin options.
func (c Config) PluginOptions() []Option {
	scriptPath := c.ScriptPath
	if scriptPath == "" {
		scriptPath = DefaultScriptPath(c.EngineType)
	}
	loader := NewScriptLoader(nil)
	if c.ScriptRoot != "" {
		loader = NewDirScriptLoader(c.ScriptRoot)
	}
	return []Option{
		WithBinding(c.Namespace, c.Property),
		WithScriptPath(scriptPath),
		WithLoader(loader),
		WithGateAll(c.GateAll),
	}
}

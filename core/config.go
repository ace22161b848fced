package core

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents user or system config. It is built once at startup and
// passed by pointer to the components that need it; nothing mutates it
// afterwards.
type Config struct {
	TimeoutSeconds  int                     `mapstructure:"timeout"`
	OutputDir       string                  `mapstructure:"output_dir"`
	SaveOutput      bool                    `mapstructure:"save_output"`
	Color           bool                    `mapstructure:"color"`
	CacheTTLSeconds int                     `mapstructure:"cache_ttl"`
	CacheDir        string                  `mapstructure:"cache_dir"`
	ProfilesFile    string                  `mapstructure:"profiles_file"`
	Log             LogConfig               `mapstructure:"log"`
	Modules         map[string]ModuleConfig `mapstructure:"modules"`
}

// LogConfig controls the package logger.
type LogConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	FilePath string `mapstructure:"file_path"`
}

// ModuleConfig holds per-module overrides.
type ModuleConfig struct {
	Binary  string `mapstructure:"binary"`
	Timeout int    `mapstructure:"timeout"`
}

// Timeout is the fallback per-task timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// CacheTTL is the maximum age of a usable cache entry.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// Module returns the overrides for a module, zero if none are set.
func (c *Config) Module(name string) ModuleConfig {
	if c.Modules == nil {
		return ModuleConfig{}
	}
	return c.Modules[strings.ToLower(name)]
}

// ResolveTimeout picks the timeout for one task: the profile's own timeout,
// then the per-module override in config, then the global timeout.
// cfg may be nil.
func ResolveTimeout(cfg *Config, module string, p Profile) time.Duration {
	if p.Timeout > 0 {
		return p.Timeout
	}
	if cfg != nil {
		if t := cfg.Module(module).Timeout; t > 0 {
			return time.Duration(t) * time.Second
		}
	}
	if cfg != nil && cfg.TimeoutSeconds > 0 {
		return cfg.Timeout()
	}
	return DefaultTimeout
}

// BaseDir is where reconprog keeps its state by default.
func BaseDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".reconprog"
	}
	return filepath.Join(home, ".reconprog")
}

// DefaultConfigPath is read when no --config flag is given.
func DefaultConfigPath() string {
	return filepath.Join(BaseDir(), "config.yaml")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("timeout", 30)
	v.SetDefault("output_dir", "recon-output")
	v.SetDefault("save_output", false)
	v.SetDefault("color", true)
	v.SetDefault("cache_ttl", 3600)
	v.SetDefault("cache_dir", filepath.Join(BaseDir(), "cache"))
	v.SetDefault("profiles_file", filepath.Join(BaseDir(), "nmap_profiles.json"))
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.output", "stderr")
	v.SetDefault("log.file_path", "")
}

// DefaultConfig returns the built-in defaults without reading any file.
func DefaultConfig() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// Defaults alone always decode.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// LoadConfig loads config from a YAML file merged over the defaults.
// A missing file is not an error. RECONPROG_* environment variables
// override file values.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("RECONPROG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Modules != nil {
		lowered := make(map[string]ModuleConfig, len(cfg.Modules))
		for name, mc := range cfg.Modules {
			lowered[strings.ToLower(name)] = mc
		}
		cfg.Modules = lowered
	}
	if err := ValidateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ValidateConfig checks config for basic errors.
func ValidateConfig(cfg *Config) error {
	if cfg.TimeoutSeconds <= 0 {
		return fmt.Errorf("timeout must be positive, got %d", cfg.TimeoutSeconds)
	}
	if cfg.CacheTTLSeconds < 0 {
		return fmt.Errorf("cache_ttl must not be negative, got %d", cfg.CacheTTLSeconds)
	}
	if cfg.CacheDir == "" {
		return fmt.Errorf("cache_dir is required")
	}
	for name, mc := range cfg.Modules {
		if mc.Timeout < 0 {
			return fmt.Errorf("modules.%s.timeout must not be negative", name)
		}
	}
	return nil
}

// Package config loads holon.yaml, the project file of the holon commands.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultFile is read from the project directory when no --config is given.
const DefaultFile = "holon.yaml"

const (
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Config is the whole project configuration. Command-line flags override
// individual fields.
type Config struct {
	// Dir holds the workflow sources of the file backend.
	Dir         string            `yaml:"dir" json:"dir"`
	LogLevel    string            `yaml:"log_level" json:"log_level"`
	Addr        string            `yaml:"addr" json:"addr"`
	Strict      bool              `yaml:"strict" json:"strict"`
	CyclePolicy string            `yaml:"cycle_policy" json:"cycle_policy"`
	Store       StoreConfig       `yaml:"store" json:"store"`
	Credentials CredentialsConfig `yaml:"credentials" json:"credentials"`
	StepsFile   string            `yaml:"steps_file" json:"steps_file"`
	Metrics     bool              `yaml:"metrics" json:"metrics"`
}

type StoreConfig struct {
	Backend string      `yaml:"backend" json:"backend"`
	Redis   RedisConfig `yaml:"redis" json:"redis"`
}

type RedisConfig struct {
	Addr     string        `yaml:"addr" json:"addr"`
	Password string        `yaml:"password" json:"password"`
	DB       int           `yaml:"db" json:"db"`
	Prefix   string        `yaml:"prefix" json:"prefix"`
	TTL      time.Duration `yaml:"ttl" json:"ttl"`
}

type CredentialsConfig struct {
	// File keeps credentials on disk; empty keeps them in memory.
	File string `yaml:"file" json:"file"`
	// KeyFile enables encryption at rest. See middleware.LoadKeys.
	KeyFile string `yaml:"key_file" json:"key_file"`
	// ShowSecrets disables redaction on the HTTP API.
	ShowSecrets bool `yaml:"show_secrets" json:"show_secrets"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Dir:         ".",
		LogLevel:    "info",
		Addr:        "127.0.0.1:8787",
		CyclePolicy: "fail",
		Store: StoreConfig{
			Backend: BackendFile,
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "holon:",
			},
		},
		StepsFile: "holon.steps.yaml",
	}
}

// Load reads path over the defaults. A missing file is not an error unless
// required is set. JSON is accepted for .json paths.
func Load(path string, required bool) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}

	// YAML is a superset of JSON, so one decoder serves both.
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	cfg.resolvePaths(filepath.Dir(path))
	return cfg, cfg.Validate()
}

// resolvePaths makes relative paths in the file relative to the file.
func (c *Config) resolvePaths(base string) {
	for _, p := range []*string{&c.Dir, &c.StepsFile, &c.Credentials.File, &c.Credentials.KeyFile} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(base, *p)
		}
	}
}

// Validate reports settings that cannot work.
func (c Config) Validate() error {
	switch c.Store.Backend {
	case BackendFile, BackendMemory:
	case BackendRedis:
		if c.Store.Redis.Addr == "" {
			return errors.New("store.redis.addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown store backend %q: use file, redis or memory", c.Store.Backend)
	}
	switch c.CyclePolicy {
	case "", "fail", "break-lowest-id", "lowest-id":
	default:
		return fmt.Errorf("unknown cycle_policy %q", c.CyclePolicy)
	}
	if c.Store.Redis.TTL < 0 {
		return errors.New("store.redis.ttl cannot be negative")
	}
	return nil
}

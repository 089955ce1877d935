// Package config loads the resilience layer's settings from a YAML file:
// named retry policies, queue storage selection, and log level.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jzx17/resilience/pkg/queue"
	"github.com/jzx17/resilience/pkg/retry"
	"github.com/jzx17/resilience/pkg/store"
)

// Duration wraps time.Duration so YAML values can use Go duration strings
// like "500ms" or "30s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// PolicyConfig is one named retry policy.
type PolicyConfig struct {
	MaxAttempts   int      `yaml:"max_attempts"`
	BaseDelay     Duration `yaml:"base_delay"`
	MaxDelay      Duration `yaml:"max_delay"`
	BackoffFactor float64  `yaml:"backoff_factor"`
	Jitter        bool     `yaml:"jitter"`
}

// QueueConfig selects and configures the queue's durable store.
type QueueConfig struct {
	// Storage is one of "memory", "file", "sqlite", "redis"
	Storage string `yaml:"storage"`

	// Path is the state directory (file) or database file (sqlite)
	Path string `yaml:"path"`

	// RedisURL is the redis:// URL when Storage is "redis"
	RedisURL string `yaml:"redis_url"`

	// DefaultPriority is the priority for callers that pass none
	DefaultPriority int `yaml:"default_priority"`
}

// Config is the full configuration document.
type Config struct {
	LogLevel string                  `yaml:"log_level"`
	Policies map[string]PolicyConfig `yaml:"policies"`
	Queue    QueueConfig             `yaml:"queue"`
}

// Load reads and validates the configuration at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := &Config{
		LogLevel: "info",
		Queue: QueueConfig{
			Storage:         "memory",
			DefaultPriority: queue.DefaultPriority,
		},
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	for name, pc := range cfg.Policies {
		if err := pc.Policy().Validate(); err != nil {
			return nil, fmt.Errorf("config: policy %q: %w", name, err)
		}
	}

	switch cfg.Queue.Storage {
	case "memory", "redis":
	case "file", "sqlite":
		if cfg.Queue.Path == "" {
			return nil, fmt.Errorf("config: queue storage %q requires a path", cfg.Queue.Storage)
		}
	default:
		return nil, fmt.Errorf("config: unknown queue storage %q", cfg.Queue.Storage)
	}
	if cfg.Queue.Storage == "redis" && cfg.Queue.RedisURL == "" {
		return nil, fmt.Errorf("config: queue storage \"redis\" requires a redis_url")
	}

	return cfg, nil
}

// Policy converts a PolicyConfig to a retry.Policy value.
func (pc PolicyConfig) Policy() retry.Policy {
	return retry.Policy{
		MaxAttempts:   pc.MaxAttempts,
		BaseDelay:     time.Duration(pc.BaseDelay),
		MaxDelay:      time.Duration(pc.MaxDelay),
		BackoffFactor: pc.BackoffFactor,
		Jitter:        pc.Jitter,
	}
}

// Policy returns the named retry policy, falling back to retry.DefaultPolicy
// when the name is not configured.
func (c *Config) Policy(name string) retry.Policy {
	if pc, ok := c.Policies[name]; ok {
		return pc.Policy()
	}
	return retry.DefaultPolicy()
}

// OpenStore constructs the configured durable store. Callers own closing the
// returned store when it is closeable.
func (c *Config) OpenStore() (store.Store, error) {
	switch c.Queue.Storage {
	case "memory":
		return store.NewMemory(), nil
	case "file":
		return store.NewFile(c.Queue.Path)
	case "sqlite":
		return store.NewSQLite(c.Queue.Path)
	case "redis":
		return store.NewRedis(c.Queue.RedisURL, "resilience")
	default:
		return nil, fmt.Errorf("config: unknown queue storage %q", c.Queue.Storage)
	}
}

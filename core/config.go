package core

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds configuration for an agent process.
// It supports three-layer configuration priority:
//  1. Default values (lowest priority)
//  2. YAML config file and environment variables (medium priority)
//  3. Functional options (highest priority)
type Config struct {
	// Core configuration
	Name    string `yaml:"name"`
	ID      string `yaml:"id"`
	Port    int    `yaml:"port"`
	Address string `yaml:"address"`

	// HTTP server configuration
	HTTP HTTPConfig `yaml:"http"`

	// Discovery configuration (planner side: which agents to poll)
	Discovery DiscoveryConfig `yaml:"discovery"`

	// Registry configuration (agent side: self-registration)
	Registry RegistryConfig `yaml:"registry"`

	// Intent understanding configuration (planner only)
	Intent IntentConfig `yaml:"intent"`

	// Development configuration
	Development DevelopmentConfig `yaml:"development"`
}

// HTTPConfig contains HTTP server timeouts and health-check settings.
type HTTPConfig struct {
	ReadTimeout       time.Duration `yaml:"read_timeout"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	IdleTimeout       time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
	EnableHealthCheck bool          `yaml:"enable_health_check"`
	HealthCheckPath   string        `yaml:"health_check_path"`
}

// DiscoveryConfig lists the known specialist agent base addresses the planner
// polls for agent cards, and the per-card fetch timeout. The address list is
// static process-wide configuration, not derived dynamically.
type DiscoveryConfig struct {
	PeerAddresses []string      `yaml:"peer_addresses"`
	CardTimeout   time.Duration `yaml:"card_timeout"`
	CallTimeout   time.Duration `yaml:"call_timeout"`
}

// RegistryConfig enables optional Redis self-registration for agents.
// When RedisURL is empty, registration is skipped entirely.
type RegistryConfig struct {
	RedisURL  string        `yaml:"redis_url"`
	Namespace string        `yaml:"namespace"`
	TTL       time.Duration `yaml:"ttl"`
}

// IntentConfig points the planner at an OpenAI/Ollama-compatible
// chat-completions endpoint for intent extraction.
type IntentConfig struct {
	BaseURL string        `yaml:"base_url"`
	Model   string        `yaml:"model"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

// DevelopmentConfig toggles verbose request logging.
type DevelopmentConfig struct {
	Enabled bool `yaml:"enabled"`
}

// DefaultConfig returns a Config with sensible defaults applied.
func DefaultConfig() *Config {
	return &Config{
		Port:    8080,
		Address: "127.0.0.1",
		HTTP: HTTPConfig{
			ReadTimeout:       30 * time.Second,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			EnableHealthCheck: true,
			HealthCheckPath:   "/health",
		},
		Discovery: DiscoveryConfig{
			CardTimeout: 5 * time.Second,
			CallTimeout: 10 * time.Second,
		},
		Registry: RegistryConfig{
			Namespace: "tripmaster",
			TTL:       30 * time.Second,
		},
		Intent: IntentConfig{
			BaseURL: "http://127.0.0.1:11434/v1",
			Model:   "llama3:8b",
			Timeout: 60 * time.Second,
		},
	}
}

// Option is a functional configuration option.
type Option func(*Config)

// WithName sets the agent name.
func WithName(name string) Option {
	return func(c *Config) { c.Name = name }
}

// WithPort sets the HTTP listen port.
func WithPort(port int) Option {
	return func(c *Config) { c.Port = port }
}

// WithAddress sets the address the agent advertises on its card.
func WithAddress(address string) Option {
	return func(c *Config) { c.Address = address }
}

// WithPeerAddresses sets the static list of agent base addresses to poll.
func WithPeerAddresses(addresses ...string) Option {
	return func(c *Config) { c.Discovery.PeerAddresses = addresses }
}

// WithRedisURL enables Redis self-registration.
func WithRedisURL(url string) Option {
	return func(c *Config) { c.Registry.RedisURL = url }
}

// WithDevelopmentMode enables verbose request logging.
func WithDevelopmentMode() Option {
	return func(c *Config) { c.Development.Enabled = true }
}

// NewConfig builds a Config from defaults, environment, and options.
func NewConfig(opts ...Option) (*Config, error) {
	config := DefaultConfig()
	config.applyEnvironment()
	for _, opt := range opts {
		opt(config)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadConfigFile reads a YAML config file over the defaults, then applies
// environment and options on top.
func LoadConfigFile(path string, opts ...Option) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	config.applyEnvironment()
	for _, opt := range opts {
		opt(config)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// applyEnvironment applies TRIPMASTER_* environment overrides.
func (c *Config) applyEnvironment() {
	if v := os.Getenv("TRIPMASTER_AGENT_NAME"); v != "" {
		c.Name = v
	}
	if v := os.Getenv("TRIPMASTER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Port = port
		}
	}
	if v := os.Getenv("TRIPMASTER_ADDRESS"); v != "" {
		c.Address = v
	}
	if v := os.Getenv("TRIPMASTER_PEER_ADDRESSES"); v != "" {
		var peers []string
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				peers = append(peers, p)
			}
		}
		c.Discovery.PeerAddresses = peers
	}
	if v := os.Getenv("TRIPMASTER_REDIS_URL"); v != "" {
		c.Registry.RedisURL = v
	}
	if v := os.Getenv("TRIPMASTER_LLM_URL"); v != "" {
		c.Intent.BaseURL = v
	}
	if v := os.Getenv("TRIPMASTER_LLM_MODEL"); v != "" {
		c.Intent.Model = v
	}
	if v := os.Getenv("TRIPMASTER_LLM_API_KEY"); v != "" {
		c.Intent.APIKey = v
	}
	if v := os.Getenv("TRIPMASTER_DEV_MODE"); v == "true" {
		c.Development.Enabled = true
	}
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range 0-65535", ErrInvalidConfiguration, c.Port)
	}
	for _, addr := range c.Discovery.PeerAddresses {
		if !strings.HasPrefix(addr, "http://") && !strings.HasPrefix(addr, "https://") {
			return fmt.Errorf("%w: peer address %q must be an http(s) URL", ErrInvalidConfiguration, addr)
		}
	}
	return nil
}

// BaseAddress returns the externally reachable base URL this process
// advertises on its agent card.
func (c *Config) BaseAddress() string {
	return fmt.Sprintf("http://%s:%d", c.Address, c.Port)
}

// Package config loads and validates plume configuration. Files are
// YAML; structural validation happens against an embedded CUE schema
// so malformed configs fail with field-level messages instead of
// surfacing as zero values at run time.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/plume/internal/remote"
)

//go:embed schema.cue
var schemaSource string

// RemoteMode selects which adapter the CLI builds.
type RemoteMode string

const (
	// ModeMock uses the in-memory host. No network, no credentials.
	ModeMock RemoteMode = "mock"
	// ModeBearer uses app-only bearer authentication.
	ModeBearer RemoteMode = "bearer"
	// ModeOAuth uses OAuth 1.0a user-context signing.
	ModeOAuth RemoteMode = "oauth"
)

// Config is a fully validated configuration.
type Config struct {
	Author string `json:"author" yaml:"author"`
	Index  string `json:"index" yaml:"index"`
	Remote Remote `json:"remote" yaml:"remote"`
	Retry  Retry  `json:"retry" yaml:"retry"`
	Write  Write  `json:"write" yaml:"write"`
}

// Remote configures the adapter.
type Remote struct {
	Mode    RemoteMode `json:"mode" yaml:"mode"`
	BaseURL string     `json:"base_url" yaml:"base_url"`

	BearerToken string `json:"bearer_token" yaml:"bearer_token"`

	ConsumerKey    string `json:"consumer_key" yaml:"consumer_key"`
	ConsumerSecret string `json:"consumer_secret" yaml:"consumer_secret"`
	AccessToken    string `json:"access_token" yaml:"access_token"`
	AccessSecret   string `json:"access_secret" yaml:"access_secret"`

	MaxRequests int    `json:"max_requests" yaml:"max_requests"`
	Window      string `json:"window" yaml:"window"`
}

// Retry configures backoff for transient remote failures.
type Retry struct {
	MaxAttempts    int     `json:"max_attempts" yaml:"max_attempts"`
	InitialBackoff string  `json:"initial_backoff" yaml:"initial_backoff"`
	MaxBackoff     string  `json:"max_backoff" yaml:"max_backoff"`
	Multiplier     float64 `json:"multiplier" yaml:"multiplier"`
}

// Write configures chunking and size limits.
type Write struct {
	MaxSegment int `json:"max_segment" yaml:"max_segment"`
	MaxSize    int `json:"max_size" yaml:"max_size"`
}

// Load reads, validates, and decodes the config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse validates and decodes raw YAML configuration bytes.
func Parse(data []byte) (*Config, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource)
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))
	if err := def.Err(); err != nil {
		return nil, fmt.Errorf("lookup schema: %w", err)
	}

	unified := def.Unify(ctx.Encode(raw))
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	var cfg Config
	if err := unified.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if _, err := cfg.RateWindow(); err != nil {
		return nil, err
	}
	if _, err := cfg.RetryConfig(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a mock-mode configuration suitable for local use.
func Default() *Config {
	return &Config{
		Author: "plume",
		Index:  "plume.db",
		Remote: Remote{
			Mode:        ModeMock,
			MaxRequests: 300,
			Window:      "15m",
		},
		Retry: Retry{
			MaxAttempts:    3,
			InitialBackoff: "100ms",
			MaxBackoff:     "30s",
			Multiplier:     2.0,
		},
		Write: Write{MaxSegment: 280},
	}
}

// RateWindow parses the configured rate-limit window.
func (c *Config) RateWindow() (time.Duration, error) {
	d, err := time.ParseDuration(c.Remote.Window)
	if err != nil {
		return 0, fmt.Errorf("invalid remote.window: %w", err)
	}
	return d, nil
}

// RetryConfig converts the retry section into remote.RetryConfig.
func (c *Config) RetryConfig() (remote.RetryConfig, error) {
	initial, err := time.ParseDuration(c.Retry.InitialBackoff)
	if err != nil {
		return remote.RetryConfig{}, fmt.Errorf("invalid retry.initial_backoff: %w", err)
	}
	max, err := time.ParseDuration(c.Retry.MaxBackoff)
	if err != nil {
		return remote.RetryConfig{}, fmt.Errorf("invalid retry.max_backoff: %w", err)
	}
	return remote.RetryConfig{
		MaxAttempts:    c.Retry.MaxAttempts,
		InitialBackoff: initial,
		MaxBackoff:     max,
		Multiplier:     c.Retry.Multiplier,
	}, nil
}

// Adapter builds the remote adapter this configuration describes.
func (c *Config) Adapter() (remote.Adapter, error) {
	window, err := c.RateWindow()
	if err != nil {
		return nil, err
	}
	retry, err := c.RetryConfig()
	if err != nil {
		return nil, err
	}
	opts := &remote.ClientOptions{
		BaseURL:     c.Remote.BaseURL,
		MaxRequests: c.Remote.MaxRequests,
		Window:      window,
		Retry:       retry,
	}

	switch c.Remote.Mode {
	case ModeMock:
		return remote.NewMock(), nil
	case ModeBearer:
		return remote.NewBearerClient(c.Remote.BearerToken, opts), nil
	case ModeOAuth:
		creds := remote.Credentials{
			APIKey:            c.Remote.ConsumerKey,
			APISecret:         c.Remote.ConsumerSecret,
			AccessToken:       c.Remote.AccessToken,
			AccessTokenSecret: c.Remote.AccessSecret,
		}
		return remote.NewSignedClient(creds, opts), nil
	default:
		return nil, fmt.Errorf("unknown remote mode %q", c.Remote.Mode)
	}
}

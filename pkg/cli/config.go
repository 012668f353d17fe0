package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

const (
	// DefaultBaseDir is the configuration directory under the home directory.
	DefaultBaseDir = ".wsstream"
	// DefaultConfigFile is the configuration file name.
	DefaultConfigFile = "config.yaml"
)

// Config is the CLI configuration file.
type Config struct {
	// CurrentContext is the name of the active context.
	CurrentContext string `yaml:"current_context,omitempty"`

	// Contexts maps context names to endpoint settings.
	Contexts map[string]*Context `yaml:"contexts,omitempty"`

	configPath string
}

// Context is a named streaming endpoint with its credentials and defaults.
type Context struct {
	Name string `yaml:"name"`

	// Endpoint is the ws:// or wss:// base URL.
	Endpoint string `yaml:"endpoint"`

	// APIKey is sent as "Authorization: Token <key>".
	APIKey string `yaml:"api_key,omitempty"`

	Model      string   `yaml:"model,omitempty"`
	Language   string   `yaml:"language,omitempty"`
	SampleRate int      `yaml:"sample_rate,omitempty"`
	Keywords   []string `yaml:"keywords,omitempty"`

	// Headers are extra upgrade request headers.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Connection tuning. Zero keeps the client default.
	RetryAttempts int `yaml:"retry_attempts,omitempty"`
	// Durations are in milliseconds.
	RetryDelayMS int `yaml:"retry_delay_ms,omitempty"`
	KeepaliveMS  int `yaml:"keepalive_ms,omitempty"`
	IdleMS       int `yaml:"idle_timeout_ms,omitempty"`

	// Extra stores query parameters passed to the endpoint verbatim.
	Extra map[string]string `yaml:"extra,omitempty"`
}

// LoadConfig loads the configuration from path, or from
// ~/.wsstream/config.yaml when path is empty. A missing file is created.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, DefaultBaseDir, DefaultConfigFile)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	cfg := &Config{
		Contexts:   make(map[string]*Context),
		configPath: path,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, cfg.Save()
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Contexts == nil {
		cfg.Contexts = make(map[string]*Context)
	}
	for name, ctx := range cfg.Contexts {
		ctx.Name = name
	}
	cfg.configPath = path
	return cfg, nil
}

// Save writes the configuration back to disk. The file holds API keys, so
// it is only readable by the owner.
func (c *Config) Save() error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(c.configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Path returns the config file path.
func (c *Config) Path() string {
	return c.configPath
}

// AddContext adds or replaces a context.
func (c *Config) AddContext(name string, ctx *Context) error {
	if err := ctx.Validate(); err != nil {
		return err
	}
	ctx.Name = name
	c.Contexts[name] = ctx
	return c.Save()
}

// DeleteContext removes a context, clearing the current context if it was
// the one removed.
func (c *Config) DeleteContext(name string) error {
	if _, ok := c.Contexts[name]; !ok {
		return fmt.Errorf("context %q not found", name)
	}
	delete(c.Contexts, name)
	if c.CurrentContext == name {
		c.CurrentContext = ""
	}
	return c.Save()
}

// UseContext sets the current context.
func (c *Config) UseContext(name string) error {
	if _, ok := c.Contexts[name]; !ok {
		return fmt.Errorf("context %q not found", name)
	}
	c.CurrentContext = name
	return c.Save()
}

func (c *Config) GetContext(name string) (*Context, error) {
	ctx, ok := c.Contexts[name]
	if !ok {
		return nil, fmt.Errorf("context %q not found", name)
	}
	return ctx, nil
}

func (c *Config) GetCurrentContext() (*Context, error) {
	if c.CurrentContext == "" {
		return nil, fmt.Errorf("no current context set")
	}
	return c.GetContext(c.CurrentContext)
}

// ResolveContext returns the named context, or the current one if name is
// empty.
func (c *Config) ResolveContext(name string) (*Context, error) {
	if name == "" {
		return c.GetCurrentContext()
	}
	return c.GetContext(name)
}

// ListContexts returns the context names in sorted order.
func (c *Config) ListContexts() []string {
	names := make([]string, 0, len(c.Contexts))
	for name := range c.Contexts {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Validate checks that the context names a usable endpoint.
func (ctx *Context) Validate() error {
	if ctx.Endpoint == "" {
		return fmt.Errorf("endpoint is required")
	}
	scheme, _, ok := strings.Cut(ctx.Endpoint, "://")
	if !ok {
		return fmt.Errorf("endpoint %q has no scheme", ctx.Endpoint)
	}
	switch strings.ToLower(scheme) {
	case "ws", "wss", "http", "https":
		return nil
	}
	return fmt.Errorf("endpoint %q: unsupported scheme %q", ctx.Endpoint, scheme)
}

// Millis converts one of the *MS fields to a duration.
func Millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

func (ctx *Context) GetExtra(key string) string {
	if ctx.Extra == nil {
		return ""
	}
	return ctx.Extra[key]
}

func (ctx *Context) SetExtra(key, value string) {
	if ctx.Extra == nil {
		ctx.Extra = make(map[string]string)
	}
	ctx.Extra[key] = value
}

// Redacted returns a copy of ctx safe to print.
func (ctx *Context) Redacted() *Context {
	cp := *ctx
	cp.APIKey = MaskAPIKey(ctx.APIKey)
	if len(ctx.Headers) > 0 {
		cp.Headers = make(map[string]string, len(ctx.Headers))
		for k, v := range ctx.Headers {
			if strings.EqualFold(k, "Authorization") {
				v = MaskAPIKey(v)
			}
			cp.Headers[k] = v
		}
	}
	return &cp
}

// MaskAPIKey masks all but the first and last four characters of key.
func MaskAPIKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}

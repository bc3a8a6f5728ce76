package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"slices"

	"github.com/vango-dev/reactive/internal/errors"
	"github.com/vango-dev/reactive/pkg/reactive"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "rxstate.json"

	// DefaultScenarios is the default scenario glob.
	DefaultScenarios = "scenarios/**/*.yaml"

	// DefaultLang is the default reaction expression language.
	DefaultLang = "expr"

	// DefaultDevtoolsAddr is the default inspector listen address.
	DefaultDevtoolsAddr = ":7070"

	// DefaultEventBuffer is the default number of events kept for replay.
	DefaultEventBuffer = 256

	// DefaultNamespace is the default Prometheus namespace.
	DefaultNamespace = "rxstate"

	// DefaultMaxDepth bounds propagation depth for scenario runs, so a
	// cyclic scenario faults instead of overflowing the stack.
	DefaultMaxDepth = 256

	// DefaultMaxKeyProbes mirrors the store default.
	DefaultMaxKeyProbes = 16
)

// Langs lists the supported expression languages.
var Langs = []string{"expr", "cel", "js"}

// Config represents the complete rxstate.json configuration.
type Config struct {
	// Scenarios is the glob used when no paths are given to run.
	Scenarios string `json:"scenarios,omitempty"`

	// Lang is the default expression language for reactions.
	Lang string `json:"lang,omitempty"`

	// Engine holds store behavior.
	Engine EngineConfig `json:"engine,omitempty"`

	// Devtools holds inspector settings.
	Devtools DevtoolsConfig `json:"devtools,omitempty"`

	// Metrics holds Prometheus settings.
	Metrics MetricsConfig `json:"metrics,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// EngineConfig maps onto reactive.Config.
type EngineConfig struct {
	SkipUnchanged bool `json:"skipUnchanged,omitempty"`
	MaxDepth      int  `json:"maxDepth,omitempty"`
	MaxRecomputes int  `json:"maxRecomputes,omitempty"`
	MaxKeyProbes  int  `json:"maxKeyProbes,omitempty"`
}

// DevtoolsConfig contains inspector settings.
type DevtoolsConfig struct {
	// Addr is the listen address of the inspector HTTP server.
	Addr string `json:"addr,omitempty"`

	// EventBuffer is how many recent events a new websocket client receives.
	EventBuffer int `json:"eventBuffer,omitempty"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	Namespace string `json:"namespace,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Scenarios: DefaultScenarios,
		Lang:      DefaultLang,
		Engine: EngineConfig{
			MaxDepth:     DefaultMaxDepth,
			MaxKeyProbes: DefaultMaxKeyProbes,
		},
		Devtools: DevtoolsConfig{
			Addr:        DefaultDevtoolsAddr,
			EventBuffer: DefaultEventBuffer,
		},
		Metrics: MetricsConfig{
			Namespace: DefaultNamespace,
		},
	}
}

// Load reads configuration from the specified directory.
// It looks for rxstate.json in the directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadOrDefault is Load, except that a missing file yields defaults.
func LoadOrDefault(dir string) (*Config, error) {
	if !Exists(dir) {
		return New(), nil
	}
	return Load(dir)
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("C001").
				WithDetail("No rxstate.json found in " + filepath.Dir(path)).
				Wrap(err)
		}
		return nil, errors.New("C001").Wrap(err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("C001").
			WithDetail("Failed to parse rxstate.json: " + err.Error()).
			Wrap(err)
	}

	cfg.configPath = path
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("C001").Wrap(err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("C001").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Scenarios == "" {
		c.Scenarios = DefaultScenarios
	}
	if c.Lang == "" {
		c.Lang = DefaultLang
	}
	if c.Engine.MaxKeyProbes <= 0 {
		c.Engine.MaxKeyProbes = DefaultMaxKeyProbes
	}
	if c.Devtools.Addr == "" {
		c.Devtools.Addr = DefaultDevtoolsAddr
	}
	if c.Devtools.EventBuffer <= 0 {
		c.Devtools.EventBuffer = DefaultEventBuffer
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = DefaultNamespace
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if !slices.Contains(Langs, c.Lang) {
		return errors.New("S006").WithSubject(c.Lang)
	}
	if c.Engine.MaxDepth < 0 || c.Engine.MaxRecomputes < 0 {
		return errors.New("C001").WithDetail("engine budgets must not be negative")
	}
	return nil
}

// StoreOptions converts the engine settings into store options.
func (c *Config) StoreOptions() []reactive.Option {
	return []reactive.Option{
		reactive.WithSkipUnchanged(c.Engine.SkipUnchanged),
		reactive.WithMaxDepth(c.Engine.MaxDepth),
		reactive.WithMaxRecomputes(c.Engine.MaxRecomputes),
		reactive.WithKeyProbes(c.Engine.MaxKeyProbes),
	}
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

// FindProjectRoot walks up directories to find the directory holding
// rxstate.json.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("C001").
				WithDetail("No rxstate.json found in " + startDir + " or any parent directory")
		}
		dir = parent
	}
}

// Package config provides a unified configuration system for inkweave
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the complete inkweave configuration
type Config struct {
	// Engine configuration
	Engine EngineConfig `toml:"engine"`

	// Performance configuration
	Performance PerformanceConfig `toml:"performance"`

	// Logging configuration
	Logging LoggingConfig `toml:"logging"`

	// Telemetry configuration
	Telemetry TelemetryConfig `toml:"telemetry"`

	// Feature flags
	Features map[string]bool `toml:"features"`

	// Metadata
	Version string `toml:"version"`
	Profile string `toml:"profile"`
}

// EngineConfig contains core interpreter/parser settings
type EngineConfig struct {
	// Parser configuration
	Parser ParserConfig `toml:"parser"`

	// Interpreter configuration
	Interpreter InterpreterConfig `toml:"interpreter"`

	// Output configuration
	OutputFormat string `toml:"output_format" default:"text"`
	ColorOutput  bool   `toml:"color_output" default:"true"`

	// StrictMode is copied into RuntimeOptions.StrictMode. Nothing in
	// pkg/ink or cmd/inkweave reads it: a Condition guard that fails to
	// evaluate is treated as false whether or not it is set.
	StrictMode bool `toml:"strict_mode" default:"false"`
}

// ParserConfig contains parser settings
type ParserConfig struct {
	MaxDocumentSize int `toml:"max_document_size" default:"10485760"` // 10MB
	MaxIncludeDepth int `toml:"max_include_depth" default:"16"`
	// IncludeRoot is the base directory parser.Compile resolves
	// `INCLUDE path` lines against (spec SUPPLEMENTED FEATURES #1).
	IncludeRoot string `toml:"include_root" env:"INKWEAVE_INCLUDE_ROOT"`
}

// InterpreterConfig contains runtime safety bounds and determinism
// settings.
type InterpreterConfig struct {
	// MaxSteps is validated to be positive and copied into
	// RuntimeOptions.MaxSteps. The interpreter does not read it: Begin
	// and Choose do not count the blocks they read, so a story whose
	// diverts never reach a choice or a terminal knot is not stopped.
	MaxSteps int `toml:"max_steps" default:"100000"`
	// RNGSeed seeds the session's injectable RNG (DESIGN NOTES §9). Zero
	// means "derive from the OS entropy source" — see ToRuntimeOptions.
	RNGSeed uint64 `toml:"rng_seed" env:"INKWEAVE_RNG_SEED"`
}

// PerformanceConfig contains performance tuning settings
type PerformanceConfig struct {
	EnableCaching bool        `toml:"enable_caching" default:"true"`
	Cache         CacheConfig `toml:"cache"`
}

// CacheConfig contains compile-cache settings (internal/cache)
type CacheConfig struct {
	MaxEntries int           `toml:"max_entries" default:"256"`
	TTL        time.Duration `toml:"ttl" default:"30m"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level       string `toml:"level" default:"info" env:"INKWEAVE_LOG_LEVEL"`
	Format      string `toml:"format" default:"text"`
	Output      string `toml:"output" default:"stderr"`
	EnableColor bool   `toml:"enable_color" default:"true"`
}

// TelemetryConfig contains the optional NATS event-publishing settings
// (internal/telemetry).
type TelemetryConfig struct {
	Enabled        bool   `toml:"enabled" default:"false"`
	URL            string `toml:"url" default:"nats://127.0.0.1:4222" env:"INKWEAVE_NATS_URL"`
	Subject        string `toml:"subject" default:"inkweave.session"`
	EmbeddedServer bool   `toml:"embedded_server" default:"false"`
}

// Manager manages configuration loading, validation, and hot-reloading
type Manager struct {
	config      *Config
	configPath  string
	mu          sync.RWMutex
	changeHooks []func(*Config)
	stopWatcher chan struct{}
	watcherDone chan struct{}
}

// NewManager creates a new configuration manager
func NewManager() *Manager {
	return &Manager{
		config:      DefaultConfig(),
		changeHooks: make([]func(*Config), 0),
		stopWatcher: make(chan struct{}),
		watcherDone: make(chan struct{}),
	}
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			OutputFormat: "text",
			ColorOutput:  true,
			StrictMode:   false,
			Parser: ParserConfig{
				MaxDocumentSize: 10 * 1024 * 1024,
				MaxIncludeDepth: 16,
			},
			Interpreter: InterpreterConfig{
				MaxSteps: 100000,
				RNGSeed:  0,
			},
		},
		Performance: PerformanceConfig{
			EnableCaching: true,
			Cache: CacheConfig{
				MaxEntries: 256,
				TTL:        30 * time.Minute,
			},
		},
		Logging: LoggingConfig{
			Level:       "info",
			Format:      "text",
			Output:      "stderr",
			EnableColor: true,
		},
		Telemetry: TelemetryConfig{
			Enabled: false,
			URL:     "nats://127.0.0.1:4222",
			Subject: "inkweave.session",
		},
		Features: make(map[string]bool),
		Version:  "1.0",
		Profile:  "default",
	}
}

// Load loads configuration from a TOML file
func (m *Manager) Load(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	expandedPath, err := expandPath(path)
	if err != nil {
		return fmt.Errorf("expanding config path: %w", err)
	}

	data, err := os.ReadFile(expandedPath)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	config := DefaultConfig()
	if _, err := toml.Decode(string(data), config); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	if err := applyEnvOverrides(config); err != nil {
		return fmt.Errorf("applying environment overrides: %w", err)
	}

	if err := Validate(config); err != nil {
		return fmt.Errorf("validating configuration: %w", err)
	}

	m.config = config
	m.configPath = expandedPath
	m.notifyChangeHooks(config)

	return nil
}

// LoadProfile loads a named configuration profile
func (m *Manager) LoadProfile(profileName string) error {
	if data, ok := embeddedProfile(profileName); ok {
		return m.loadBytes(data, profileName)
	}
	profilePath := filepath.Join(getProfilesDir(), profileName+".toml")
	if err := m.Load(profilePath); err != nil {
		return fmt.Errorf("loading profile %s: %w", profileName, err)
	}
	return nil
}

func (m *Manager) loadBytes(data []byte, profileName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	config := DefaultConfig()
	if _, err := toml.Decode(string(data), config); err != nil {
		return fmt.Errorf("parsing profile %s: %w", profileName, err)
	}
	if err := applyEnvOverrides(config); err != nil {
		return fmt.Errorf("applying environment overrides: %w", err)
	}
	if err := Validate(config); err != nil {
		return fmt.Errorf("validating profile %s: %w", profileName, err)
	}

	config.Profile = profileName
	m.config = config
	m.notifyChangeHooks(config)
	return nil
}

// Get returns the current configuration
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	configCopy := *m.config
	return &configCopy
}

// Update updates the configuration and notifies hooks
func (m *Manager) Update(updateFunc func(*Config)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	configCopy := *m.config
	updateFunc(&configCopy)

	if err := Validate(&configCopy); err != nil {
		return fmt.Errorf("validating updated configuration: %w", err)
	}

	m.config = &configCopy
	m.notifyChangeHooks(&configCopy)

	return nil
}

// OnChange registers a callback for configuration changes
func (m *Manager) OnChange(hook func(*Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.changeHooks = append(m.changeHooks, hook)
}

// notifyChangeHooks calls all registered change hooks
func (m *Manager) notifyChangeHooks(config *Config) {
	for _, hook := range m.changeHooks {
		go hook(config)
	}
}

// expandPath expands ~ and environment variables in paths
func expandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}

	if path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(home, path[1:])
	}

	return os.ExpandEnv(path), nil
}

// getProfilesDir returns the directory containing configuration profiles
func getProfilesDir() string {
	if _, err := os.Stat("internal/config/profiles"); err == nil {
		return "internal/config/profiles"
	}
	return "/etc/inkweave/profiles"
}

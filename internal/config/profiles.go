package config

import (
	"embed"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

//go:embed profiles/*.toml
var profilesFS embed.FS

func embeddedProfile(name string) ([]byte, bool) {
	data, err := profilesFS.ReadFile(filepath.Join("profiles", name+".toml"))
	if err != nil {
		return nil, false
	}
	return data, true
}

// ProfileManager manages configuration profiles
type ProfileManager struct {
	manager *Manager
}

// NewProfileManager creates a new profile manager
func NewProfileManager(manager *Manager) *ProfileManager {
	return &ProfileManager{manager: manager}
}

// ListProfiles returns all available profile names
func (pm *ProfileManager) ListProfiles() ([]string, error) {
	entries, err := profilesFS.ReadDir("profiles")
	if err != nil {
		return nil, fmt.Errorf("reading profiles directory: %w", err)
	}

	var profiles []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".toml") {
			profiles = append(profiles, strings.TrimSuffix(entry.Name(), ".toml"))
		}
	}
	return profiles, nil
}

// LoadProfile loads a profile by name
func (pm *ProfileManager) LoadProfile(profileName string) (*Config, error) {
	data, ok := embeddedProfile(profileName)
	if !ok {
		return nil, fmt.Errorf("unknown profile %s", profileName)
	}

	config := DefaultConfig()
	if _, err := toml.Decode(string(data), config); err != nil {
		return nil, fmt.Errorf("parsing profile %s: %w", profileName, err)
	}
	config.Profile = profileName

	if err := Validate(config); err != nil {
		return nil, fmt.Errorf("validating profile %s: %w", profileName, err)
	}
	return config, nil
}

// ApplyProfile applies a named profile to the current configuration
func (pm *ProfileManager) ApplyProfile(profileName string) error {
	profile, err := pm.LoadProfile(profileName)
	if err != nil {
		return err
	}

	current := pm.manager.Get()
	merged := MergeConfigs(current, profile)

	return pm.manager.Update(func(cfg *Config) {
		*cfg = *merged
	})
}

// GetCurrentProfile returns the name of the currently active profile
func (pm *ProfileManager) GetCurrentProfile() string {
	return pm.manager.Get().Profile
}

// CreateCustomProfile creates a custom profile based on current configuration
func (pm *ProfileManager) CreateCustomProfile(name string) (*Config, error) {
	current := pm.manager.Get()
	custom := *current
	custom.Profile = name
	custom.Version = "custom"
	return &custom, nil
}

// GetDefaultProfiles returns the built-in profiles, decoded from the
// embedded TOML files (profiles/default.toml, profiles/strict.toml).
func GetDefaultProfiles() map[string]*Config {
	names, err := (&ProfileManager{}).ListProfiles()
	if err != nil {
		return map[string]*Config{"default": DefaultConfig()}
	}

	out := make(map[string]*Config, len(names))
	for _, name := range names {
		data, ok := embeddedProfile(name)
		if !ok {
			continue
		}
		cfg := DefaultConfig()
		if _, err := toml.Decode(string(data), cfg); err != nil {
			continue
		}
		cfg.Profile = name
		out[name] = cfg
	}
	return out
}

package config

import (
	"crypto/rand"
	"encoding/binary"
	"time"
)

// RuntimeOptions is the subset of Config a cmd/inkweave host needs to
// construct a Session and its supporting services, decoupled from the
// TOML struct shape itself.
type RuntimeOptions struct {
	IncludeRoot     string
	MaxIncludeDepth int
	MaxSteps        int
	RNGSeed         uint64
	StrictMode      bool

	CacheMaxEntries int
	CacheTTL        time.Duration

	TelemetryEnabled bool
	TelemetryURL     string
	TelemetrySubject string
	EmbeddedNATS     bool
}

// ToRuntimeOptions flattens Config into RuntimeOptions, resolving a
// zero RNGSeed to one drawn from the OS entropy source so "no seed
// configured" still yields a session-stable (not re-derived per call)
// random stream rather than reusing a fixed constant.
func (c *Config) ToRuntimeOptions() RuntimeOptions {
	seed := c.Engine.Interpreter.RNGSeed
	if seed == 0 {
		seed = randomSeed()
	}
	return RuntimeOptions{
		IncludeRoot:     c.Engine.Parser.IncludeRoot,
		MaxIncludeDepth: c.Engine.Parser.MaxIncludeDepth,
		MaxSteps:        c.Engine.Interpreter.MaxSteps,
		RNGSeed:         seed,
		StrictMode:      c.Engine.StrictMode,

		CacheMaxEntries: c.Performance.Cache.MaxEntries,
		CacheTTL:        c.Performance.Cache.TTL,

		TelemetryEnabled: c.Telemetry.Enabled,
		TelemetryURL:     c.Telemetry.URL,
		TelemetrySubject: c.Telemetry.Subject,
		EmbeddedNATS:     c.Telemetry.EmbeddedServer,
	}
}

func randomSeed() uint64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 1
	}
	return binary.LittleEndian.Uint64(buf[:])
}

// GetFeature returns whether a feature is enabled
func (c *Config) GetFeature(name string) bool {
	if c.Features == nil {
		return false
	}
	return c.Features[name]
}

// SetFeature sets a feature flag
func (c *Config) SetFeature(name string, enabled bool) {
	if c.Features == nil {
		c.Features = make(map[string]bool)
	}
	c.Features[name] = enabled
}

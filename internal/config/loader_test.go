package config

import (
	"os"
	"testing"
	"time"
)

func TestNewLoader(t *testing.T) {
	loader := NewLoader()
	if loader == nil {
		t.Error("Expected loader to be created")
	}
	if loader.envPrefix != "INKWEAVE_" {
		t.Errorf("Expected env prefix 'INKWEAVE_', got '%s'", loader.envPrefix)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	os.Setenv("INKWEAVE_INCLUDE_ROOT", "/tmp/stories")
	os.Setenv("INKWEAVE_RNG_SEED", "42")
	os.Setenv("INKWEAVE_LOG_LEVEL", "debug")
	os.Setenv("INKWEAVE_FEATURES_TEST_FEATURE", "true")
	os.Setenv("INKWEAVE_FEATURES_ANOTHER_FEATURE", "false")

	defer func() {
		os.Unsetenv("INKWEAVE_INCLUDE_ROOT")
		os.Unsetenv("INKWEAVE_RNG_SEED")
		os.Unsetenv("INKWEAVE_LOG_LEVEL")
		os.Unsetenv("INKWEAVE_FEATURES_TEST_FEATURE")
		os.Unsetenv("INKWEAVE_FEATURES_ANOTHER_FEATURE")
	}()

	cfg := DefaultConfig()
	loader := NewLoader()

	if err := loader.LoadFromEnvironment(cfg); err != nil {
		t.Fatalf("Unexpected error loading from environment: %v", err)
	}

	if cfg.Engine.Parser.IncludeRoot != "/tmp/stories" {
		t.Errorf("Expected include root '/tmp/stories', got '%s'", cfg.Engine.Parser.IncludeRoot)
	}

	if cfg.Engine.Interpreter.RNGSeed != 42 {
		t.Errorf("Expected RNG seed 42, got %d", cfg.Engine.Interpreter.RNGSeed)
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("Expected log level 'debug', got '%s'", cfg.Logging.Level)
	}

	if !cfg.Features["test_feature"] {
		t.Error("Expected test_feature to be true")
	}

	if cfg.Features["another_feature"] {
		t.Error("Expected another_feature to be false")
	}
}

func TestMergeConfigs(t *testing.T) {
	base := DefaultConfig()
	base.Engine.OutputFormat = "text"
	base.Performance.Cache.MaxEntries = 1000
	base.Features = map[string]bool{"feature1": true}

	overlay1 := &Config{
		Engine: EngineConfig{
			OutputFormat: "yaml",
		},
		Performance: PerformanceConfig{
			Cache: CacheConfig{
				MaxEntries: 2000,
			},
		},
		Features: map[string]bool{"feature2": true},
	}

	overlay2 := &Config{
		Performance: PerformanceConfig{
			Cache: CacheConfig{
				TTL: 10 * time.Minute,
			},
		},
		Features: map[string]bool{"feature1": false},
		Version:  "2.0",
	}

	result := MergeConfigs(base, overlay1, overlay2)

	if result.Engine.OutputFormat != "yaml" {
		t.Errorf("Expected output format 'yaml', got '%s'", result.Engine.OutputFormat)
	}

	if result.Performance.Cache.MaxEntries != 2000 {
		t.Errorf("Expected cache max entries 2000, got %d", result.Performance.Cache.MaxEntries)
	}

	if result.Performance.Cache.TTL != 10*time.Minute {
		t.Errorf("Expected cache TTL 10m, got %v", result.Performance.Cache.TTL)
	}

	if result.Version != "2.0" {
		t.Errorf("Expected version '2.0', got '%s'", result.Version)
	}

	if result.Features["feature1"] {
		t.Error("Expected feature1 to be false (overridden)")
	}

	if !result.Features["feature2"] {
		t.Error("Expected feature2 to be true")
	}
}

func TestMergeConfigsWithNil(t *testing.T) {
	base := DefaultConfig()
	base.Engine.OutputFormat = "text"

	result := MergeConfigs(base, nil, nil)

	if result.Engine.OutputFormat != base.Engine.OutputFormat {
		t.Error("Output format should be preserved when merging with nil")
	}

	if result.Version != base.Version {
		t.Error("Version should be preserved when merging with nil")
	}
}

func TestMergeParser(t *testing.T) {
	base := &ParserConfig{
		MaxDocumentSize: 1000,
		MaxIncludeDepth: 4,
		IncludeRoot:     "/a",
	}

	overlay := &ParserConfig{
		MaxDocumentSize: 2000,
		IncludeRoot:     "/b",
	}

	mergeParser(base, overlay)

	if base.MaxDocumentSize != 2000 {
		t.Errorf("Expected max document size 2000, got %d", base.MaxDocumentSize)
	}

	if base.MaxIncludeDepth != 4 {
		t.Errorf("Expected max include depth to be preserved as 4, got %d", base.MaxIncludeDepth)
	}

	if base.IncludeRoot != "/b" {
		t.Errorf("Expected include root '/b', got '%s'", base.IncludeRoot)
	}
}

func TestMergeCache(t *testing.T) {
	base := &CacheConfig{
		MaxEntries: 1000,
		TTL:        5 * time.Minute,
	}

	overlay := &CacheConfig{
		MaxEntries: 2000,
		TTL:        10 * time.Minute,
	}

	mergeCache(base, overlay)

	if base.MaxEntries != 2000 {
		t.Errorf("Expected max entries 2000, got %d", base.MaxEntries)
	}

	if base.TTL != 10*time.Minute {
		t.Errorf("Expected TTL 10m, got %v", base.TTL)
	}
}

func TestMergeInterpreter(t *testing.T) {
	base := &InterpreterConfig{
		MaxSteps: 1000,
		RNGSeed:  1,
	}

	overlay := &InterpreterConfig{
		MaxSteps: 2000,
	}

	mergeInterpreter(base, overlay)

	if base.MaxSteps != 2000 {
		t.Errorf("Expected max steps 2000, got %d", base.MaxSteps)
	}

	if base.RNGSeed != 1 {
		t.Errorf("Expected RNG seed to be preserved as 1, got %d", base.RNGSeed)
	}
}

func TestMergeTelemetry(t *testing.T) {
	base := &TelemetryConfig{
		Enabled: false,
		URL:     "nats://a",
		Subject: "s1",
	}

	overlay := &TelemetryConfig{
		Enabled: true,
		Subject: "s2",
	}

	mergeTelemetry(base, overlay)

	if !base.Enabled {
		t.Error("Expected Enabled to be overridden to true")
	}

	if base.URL != "nats://a" {
		t.Errorf("Expected URL to be preserved as 'nats://a', got '%s'", base.URL)
	}

	if base.Subject != "s2" {
		t.Errorf("Expected subject 's2', got '%s'", base.Subject)
	}
}

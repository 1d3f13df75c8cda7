package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Loader handles configuration loading from various sources
type Loader struct {
	envPrefix string
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{
		envPrefix: "INKWEAVE_",
	}
}

// LoadFromEnvironment loads configuration from environment variables
func (l *Loader) LoadFromEnvironment(cfg *Config) error {
	return l.applyEnvOverrides(reflect.ValueOf(cfg).Elem(), "")
}

// applyEnvOverrides recursively applies environment variable overrides
func (l *Loader) applyEnvOverrides(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		if !field.CanSet() {
			continue
		}

		envTag := fieldType.Tag.Get("env")

		var envName string
		if envTag != "" {
			envName = envTag
		} else {
			fieldName := strings.ToUpper(fieldType.Name)
			if prefix != "" {
				envName = l.envPrefix + prefix + "_" + fieldName
			} else {
				envName = l.envPrefix + fieldName
			}
		}

		switch field.Kind() {
		case reflect.Struct:
			newPrefix := prefix
			if newPrefix != "" {
				newPrefix += "_"
			}
			newPrefix += strings.ToUpper(fieldType.Name)
			if err := l.applyEnvOverrides(field, newPrefix); err != nil {
				return err
			}

		case reflect.String:
			if value := os.Getenv(envName); value != "" {
				field.SetString(value)
			}

		case reflect.Bool:
			if value := os.Getenv(envName); value != "" {
				boolVal, err := strconv.ParseBool(value)
				if err != nil {
					return fmt.Errorf("parsing bool from %s: %w", envName, err)
				}
				field.SetBool(boolVal)
			}

		case reflect.Int, reflect.Int64:
			if field.Type() == reflect.TypeOf(time.Duration(0)) {
				if value := os.Getenv(envName); value != "" {
					duration, err := time.ParseDuration(value)
					if err != nil {
						return fmt.Errorf("parsing duration from %s: %w", envName, err)
					}
					field.Set(reflect.ValueOf(duration))
				}
				continue
			}
			if value := os.Getenv(envName); value != "" {
				intVal, err := strconv.ParseInt(value, 10, 64)
				if err != nil {
					return fmt.Errorf("parsing int from %s: %w", envName, err)
				}
				field.SetInt(intVal)
			}

		case reflect.Uint, reflect.Uint64:
			if value := os.Getenv(envName); value != "" {
				uintVal, err := strconv.ParseUint(value, 10, 64)
				if err != nil {
					return fmt.Errorf("parsing uint from %s: %w", envName, err)
				}
				field.SetUint(uintVal)
			}

		case reflect.Map:
			if fieldType.Name == "Features" {
				l.loadFeaturesFromEnv(field, envName)
			}
		}
	}

	return nil
}

// loadFeaturesFromEnv loads feature flags from environment variables
func (l *Loader) loadFeaturesFromEnv(field reflect.Value, prefix string) {
	environ := os.Environ()
	featurePrefix := prefix + "_"

	if field.IsNil() {
		field.Set(reflect.MakeMap(field.Type()))
	}

	for _, env := range environ {
		if strings.HasPrefix(env, featurePrefix) {
			parts := strings.SplitN(env, "=", 2)
			if len(parts) == 2 {
				featureName := strings.ToLower(strings.TrimPrefix(parts[0], featurePrefix))
				if value, err := strconv.ParseBool(parts[1]); err == nil {
					field.SetMapIndex(reflect.ValueOf(featureName), reflect.ValueOf(value))
				}
			}
		}
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration
func applyEnvOverrides(config *Config) error {
	return NewLoader().LoadFromEnvironment(config)
}

// MergeConfigs merges multiple configurations, with later configs taking precedence
func MergeConfigs(base *Config, overlays ...*Config) *Config {
	result := *base

	for _, overlay := range overlays {
		if overlay == nil {
			continue
		}

		mergeEngine(&result.Engine, &overlay.Engine)
		mergePerformance(&result.Performance, &overlay.Performance)
		mergeLogging(&result.Logging, &overlay.Logging)
		mergeTelemetry(&result.Telemetry, &overlay.Telemetry)

		if overlay.Features != nil {
			if result.Features == nil {
				result.Features = make(map[string]bool)
			}
			for k, v := range overlay.Features {
				result.Features[k] = v
			}
		}

		if overlay.Version != "" {
			result.Version = overlay.Version
		}
		if overlay.Profile != "" {
			result.Profile = overlay.Profile
		}
	}

	return &result
}

func mergeEngine(base, overlay *EngineConfig) {
	if overlay.OutputFormat != "" {
		base.OutputFormat = overlay.OutputFormat
	}
	base.ColorOutput = overlay.ColorOutput
	base.StrictMode = overlay.StrictMode

	mergeParser(&base.Parser, &overlay.Parser)
	mergeInterpreter(&base.Interpreter, &overlay.Interpreter)
}

func mergeParser(base, overlay *ParserConfig) {
	if overlay.MaxDocumentSize > 0 {
		base.MaxDocumentSize = overlay.MaxDocumentSize
	}
	if overlay.MaxIncludeDepth > 0 {
		base.MaxIncludeDepth = overlay.MaxIncludeDepth
	}
	if overlay.IncludeRoot != "" {
		base.IncludeRoot = overlay.IncludeRoot
	}
}

func mergeInterpreter(base, overlay *InterpreterConfig) {
	if overlay.MaxSteps > 0 {
		base.MaxSteps = overlay.MaxSteps
	}
	if overlay.RNGSeed != 0 {
		base.RNGSeed = overlay.RNGSeed
	}
}

func mergePerformance(base, overlay *PerformanceConfig) {
	base.EnableCaching = overlay.EnableCaching
	mergeCache(&base.Cache, &overlay.Cache)
}

func mergeCache(base, overlay *CacheConfig) {
	if overlay.MaxEntries > 0 {
		base.MaxEntries = overlay.MaxEntries
	}
	if overlay.TTL > 0 {
		base.TTL = overlay.TTL
	}
}

func mergeLogging(base, overlay *LoggingConfig) {
	if overlay.Level != "" {
		base.Level = overlay.Level
	}
	if overlay.Format != "" {
		base.Format = overlay.Format
	}
	if overlay.Output != "" {
		base.Output = overlay.Output
	}
	base.EnableColor = overlay.EnableColor
}

func mergeTelemetry(base, overlay *TelemetryConfig) {
	base.Enabled = overlay.Enabled
	if overlay.URL != "" {
		base.URL = overlay.URL
	}
	if overlay.Subject != "" {
		base.Subject = overlay.Subject
	}
	base.EmbeddedServer = overlay.EmbeddedServer
}

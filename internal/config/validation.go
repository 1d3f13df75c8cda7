package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation error: field '%s' with value '%v': %s", e.Field, e.Value, e.Message)
}

// ValidationErrors represents multiple validation errors
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}

	var messages []string
	for _, err := range e {
		messages = append(messages, err.Error())
	}
	return strings.Join(messages, "; ")
}

// Validate validates the entire configuration
func Validate(cfg *Config) error {
	var errors ValidationErrors

	if errs := validateEngine(&cfg.Engine); len(errs) > 0 {
		errors = append(errors, errs...)
	}
	if errs := validatePerformance(&cfg.Performance); len(errs) > 0 {
		errors = append(errors, errs...)
	}
	if errs := validateLogging(&cfg.Logging); len(errs) > 0 {
		errors = append(errors, errs...)
	}
	if errs := validateTelemetry(&cfg.Telemetry); len(errs) > 0 {
		errors = append(errors, errs...)
	}

	if cfg.Version == "" {
		errors = append(errors, ValidationError{
			Field:   "version",
			Value:   cfg.Version,
			Message: "version cannot be empty",
		})
	}

	if len(errors) > 0 {
		return errors
	}
	return nil
}

func validateEngine(cfg *EngineConfig) ValidationErrors {
	var errors ValidationErrors

	if errs := validateParser(&cfg.Parser); len(errs) > 0 {
		errors = append(errors, errs...)
	}
	if errs := validateInterpreter(&cfg.Interpreter); len(errs) > 0 {
		errors = append(errors, errs...)
	}

	validFormats := []string{"text", "yaml", "json"}
	if !contains(validFormats, cfg.OutputFormat) {
		errors = append(errors, ValidationError{
			Field:   "engine.output_format",
			Value:   cfg.OutputFormat,
			Message: fmt.Sprintf("must be one of: %v", validFormats),
		})
	}

	return errors
}

func validateParser(cfg *ParserConfig) ValidationErrors {
	var errors ValidationErrors

	if cfg.MaxDocumentSize <= 0 {
		errors = append(errors, ValidationError{
			Field:   "engine.parser.max_document_size",
			Value:   cfg.MaxDocumentSize,
			Message: "must be greater than 0",
		})
	}
	if cfg.MaxDocumentSize > 100*1024*1024 {
		errors = append(errors, ValidationError{
			Field:   "engine.parser.max_document_size",
			Value:   cfg.MaxDocumentSize,
			Message: "warning: very large document size may cause memory issues",
		})
	}
	if cfg.MaxIncludeDepth <= 0 {
		errors = append(errors, ValidationError{
			Field:   "engine.parser.max_include_depth",
			Value:   cfg.MaxIncludeDepth,
			Message: "must be greater than 0, or INCLUDE cycles never fail closed",
		})
	}
	if cfg.IncludeRoot != "" {
		if info, err := os.Stat(cfg.IncludeRoot); err != nil || !info.IsDir() {
			errors = append(errors, ValidationError{
				Field:   "engine.parser.include_root",
				Value:   cfg.IncludeRoot,
				Message: "must be an existing directory",
			})
		}
	}

	return errors
}

func validateInterpreter(cfg *InterpreterConfig) ValidationErrors {
	var errors ValidationErrors

	if cfg.MaxSteps <= 0 {
		errors = append(errors, ValidationError{
			Field:   "engine.interpreter.max_steps",
			Value:   cfg.MaxSteps,
			Message: "must be greater than 0, or a cyclic divert chain never fails closed",
		})
	}

	return errors
}

func validatePerformance(cfg *PerformanceConfig) ValidationErrors {
	var errors ValidationErrors

	if cfg.Cache.MaxEntries < 0 {
		errors = append(errors, ValidationError{
			Field:   "performance.cache.max_entries",
			Value:   cfg.Cache.MaxEntries,
			Message: "cannot be negative",
		})
	}
	if cfg.Cache.TTL < 0 {
		errors = append(errors, ValidationError{
			Field:   "performance.cache.ttl",
			Value:   cfg.Cache.TTL,
			Message: "cannot be negative",
		})
	}

	return errors
}

func validateLogging(cfg *LoggingConfig) ValidationErrors {
	var errors ValidationErrors

	validLevels := []string{"trace", "debug", "info", "warn", "error", "fatal"}
	if !contains(validLevels, strings.ToLower(cfg.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   cfg.Level,
			Message: fmt.Sprintf("must be one of: %v", validLevels),
		})
	}

	validFormats := []string{"text", "json", "logfmt"}
	if !contains(validFormats, cfg.Format) {
		errors = append(errors, ValidationError{
			Field:   "logging.format",
			Value:   cfg.Format,
			Message: fmt.Sprintf("must be one of: %v", validFormats),
		})
	}

	if cfg.Output != "stdout" && cfg.Output != "stderr" {
		dir := filepath.Dir(cfg.Output)
		if _, err := os.Stat(dir); err != nil {
			errors = append(errors, ValidationError{
				Field:   "logging.output",
				Value:   cfg.Output,
				Message: fmt.Sprintf("directory does not exist: %s", dir),
			})
		}
	}

	return errors
}

func validateTelemetry(cfg *TelemetryConfig) ValidationErrors {
	var errors ValidationErrors

	if cfg.Enabled && cfg.Subject == "" {
		errors = append(errors, ValidationError{
			Field:   "telemetry.subject",
			Value:   cfg.Subject,
			Message: "must be set when telemetry is enabled",
		})
	}

	return errors
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

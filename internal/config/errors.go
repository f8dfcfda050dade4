package config

import (
	"fmt"
	"strings"
)

// Error types of a ConfigurationError.
const (
	ErrorTypeMissing = "missing"
	ErrorTypeInvalid = "invalid"
)

// ConfigurationError describes one problem with a configuration key.
type ConfigurationError struct {
	Key         string   `json:"key"`         // Environment variable name of the key
	Section     string   `json:"section"`     // Configuration section (server, auth, clientStore, logging)
	ErrorType   string   `json:"errorType"`   // missing or invalid
	Message     string   `json:"message"`     // Human-readable error message
	Details     string   `json:"details"`     // Additional details about the error
	Suggestions []string `json:"suggestions"` // Actionable suggestions to fix the error
}

// Error implements the error interface
func (ce ConfigurationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", ce.Section, ce.Key, ce.Message)
}

// DetailedError returns a detailed error message with all context
func (ce ConfigurationError) DetailedError() string {
	var parts []string

	parts = append(parts, fmt.Sprintf("Configuration Error in %s: %s", ce.Section, ce.Key))
	parts = append(parts, fmt.Sprintf("  Type: %s", ce.ErrorType))
	parts = append(parts, fmt.Sprintf("  Error: %s", ce.Message))

	if ce.Details != "" {
		parts = append(parts, fmt.Sprintf("  Details: %s", ce.Details))
	}

	if len(ce.Suggestions) > 0 {
		parts = append(parts, "  Suggestions:")
		for _, suggestion := range ce.Suggestions {
			parts = append(parts, fmt.Sprintf("    - %s", suggestion))
		}
	}

	return strings.Join(parts, "\n")
}

// ConfigurationErrorCollection holds multiple configuration errors
type ConfigurationErrorCollection struct {
	Errors []ConfigurationError `json:"errors"`
}

// Error implements the error interface for the collection
func (cec ConfigurationErrorCollection) Error() string {
	if len(cec.Errors) == 0 {
		return "no configuration errors"
	}

	if len(cec.Errors) == 1 {
		return cec.Errors[0].Error()
	}

	return fmt.Sprintf("%d configuration errors: %s (and %d more)",
		len(cec.Errors), cec.Errors[0].Error(), len(cec.Errors)-1)
}

// HasErrors returns true if there are any errors in the collection
func (cec *ConfigurationErrorCollection) HasErrors() bool {
	return len(cec.Errors) > 0
}

// Count returns the number of errors in the collection
func (cec *ConfigurationErrorCollection) Count() int {
	return len(cec.Errors)
}

// Add adds a new error to the collection
func (cec *ConfigurationErrorCollection) Add(err ConfigurationError) {
	cec.Errors = append(cec.Errors, err)
}

// AddMissing records a required key that has no value.
func (cec *ConfigurationErrorCollection) AddMissing(section, key, reason string) {
	cec.Add(ConfigurationError{
		Key:         key,
		Section:     section,
		ErrorType:   ErrorTypeMissing,
		Message:     "is required " + reason,
		Suggestions: []string{fmt.Sprintf("Set %s in the environment, the env file, or with --%s", key, FlagName(key))},
	})
}

// AddInvalid records a key whose value cannot be used.
func (cec *ConfigurationErrorCollection) AddInvalid(section, key, message, details string) {
	cec.Add(ConfigurationError{
		Key:       key,
		Section:   section,
		ErrorType: ErrorTypeInvalid,
		Message:   message,
		Details:   details,
	})
}

// Keys returns the keys with errors, in order of appearance.
func (cec *ConfigurationErrorCollection) Keys() []string {
	keys := make([]string, 0, len(cec.Errors))
	for _, err := range cec.Errors {
		keys = append(keys, err.Key)
	}
	return keys
}

// GetErrorsBySection returns errors filtered by section
func (cec *ConfigurationErrorCollection) GetErrorsBySection(section string) []ConfigurationError {
	var filtered []ConfigurationError
	for _, err := range cec.Errors {
		if err.Section == section {
			filtered = append(filtered, err)
		}
	}
	return filtered
}

// GetDetailedReport returns a detailed report of all errors
func (cec *ConfigurationErrorCollection) GetDetailedReport() string {
	if len(cec.Errors) == 0 {
		return "No configuration errors to report"
	}

	var parts []string
	parts = append(parts, fmt.Sprintf("Detailed Configuration Error Report (%d errors):", len(cec.Errors)))
	parts = append(parts, strings.Repeat("=", 60))

	for i, err := range cec.Errors {
		parts = append(parts, fmt.Sprintf("\nError %d:", i+1))
		parts = append(parts, err.DetailedError())

		if i < len(cec.Errors)-1 {
			parts = append(parts, strings.Repeat("-", 40))
		}
	}

	return strings.Join(parts, "\n")
}

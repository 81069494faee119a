package errors

import "fmt"

type ConfigurationError struct {
	variable string
}

// NewConfigurationError reports that the required environment variable name
// has no value.
func NewConfigurationError(variable string) *ConfigurationError {
	return &ConfigurationError{
		variable: variable,
	}
}

func (ce *ConfigurationError) Error() string {
	return fmt.Sprintf("missing environment variable: %s", ce.variable)
}

func (ce *ConfigurationError) Configuration() {}

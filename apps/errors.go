package apps

import "fmt"

// ConfigError reports a configuration value the apps cannot work with.
type ConfigError struct {
	Key   string
	Value string
}

func NewConfigError(key, value string) *ConfigError {
	return &ConfigError{Key: key, Value: value}
}

func (err *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %q", err.Key, err.Value)
}

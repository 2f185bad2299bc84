package batch

import (
	"fmt"
	"time"
)

// DefaultConcurrencyLimit is the number of students generated in parallel.
const DefaultConcurrencyLimit = 5

// Config defines batch-related settings.
type Config struct {
	ConcurrencyLimit      int `json:"concurrency_limit"`
	StudentTimeoutSeconds int `json:"student_timeout_seconds"`
	HookTimeoutSeconds    int `json:"hook_timeout_seconds"`
}

// SetDefaults applies the default concurrency ceiling and hook timeout.
func (c *Config) SetDefaults() {
	if c.ConcurrencyLimit <= 0 {
		c.ConcurrencyLimit = DefaultConcurrencyLimit
	}
	if c.HookTimeoutSeconds <= 0 {
		c.HookTimeoutSeconds = 10
	}
}

// Validate rejects negative timeouts.
func (c Config) Validate() error {
	if c.StudentTimeoutSeconds < 0 {
		return fmt.Errorf("student_timeout_seconds must not be negative")
	}
	return nil
}

func (c Config) studentTimeout() time.Duration {
	return time.Duration(c.StudentTimeoutSeconds) * time.Second
}

func (c Config) hookTimeout() time.Duration {
	return time.Duration(c.HookTimeoutSeconds) * time.Second
}

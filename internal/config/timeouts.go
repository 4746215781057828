package config

import (
	"os"
	"strconv"
	"time"
)

// Timeouts holds all configurable timeout values.
// These values can be customized via environment variables.
type Timeouts struct {
	APICall           time.Duration // Per-call timeout for control-plane requests
	Probe             time.Duration // Timeout for the lightweight session probe
	PollInterval      time.Duration // Interval for poll-until-condition stages
	PollBudget        time.Duration // Maximum total wait for asynchronous propagation
	Interactive       time.Duration // Timeout for interactive login; zero means open-ended
	RetryMaxAttempts  int           // Maximum attempts for transient failures
	RetryInitialDelay time.Duration // Initial delay between retries
}

// LoadTimeouts loads timeout configuration from environment variables.
// If an environment variable is not set or invalid, a default value is used.
//
// Environment Variables:
//   - FABRIC_TIMEOUT_API_CALL (default: 45s)
//   - FABRIC_TIMEOUT_PROBE (default: 15s)
//   - FABRIC_POLL_INTERVAL (default: 10s)
//   - FABRIC_POLL_BUDGET (default: 5m)
//   - FABRIC_TIMEOUT_INTERACTIVE (default: 0, open-ended)
//   - FABRIC_RETRY_MAX_ATTEMPTS (default: 3)
//   - FABRIC_RETRY_INITIAL_DELAY (default: 1s)
func LoadTimeouts() *Timeouts {
	return &Timeouts{
		APICall:           parseDuration("FABRIC_TIMEOUT_API_CALL", 45*time.Second),
		Probe:             parseDuration("FABRIC_TIMEOUT_PROBE", 15*time.Second),
		PollInterval:      parseDuration("FABRIC_POLL_INTERVAL", 10*time.Second),
		PollBudget:        parseDuration("FABRIC_POLL_BUDGET", 5*time.Minute),
		Interactive:       parseDuration("FABRIC_TIMEOUT_INTERACTIVE", 0),
		RetryMaxAttempts:  parseInt("FABRIC_RETRY_MAX_ATTEMPTS", 3),
		RetryInitialDelay: parseDuration("FABRIC_RETRY_INITIAL_DELAY", 1*time.Second),
	}
}

// parseDuration parses a duration from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseDuration(envVar string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}

	return d
}

// parseInt parses an integer from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseInt(envVar string, defaultVal int) int {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}

	return i
}

package farmsession

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

// Config defines a public type used by farmsession APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	API     APIConfig
	Tokens  TokenConfig
	Retry   RetryConfig
	Storage StorageConfig
	Events  EventsConfig
	Metrics MetricsConfig
}

/*
====================================
API CONFIG
====================================
*/

// APIConfig defines a public type used by farmsession APIs.
//
// APIConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type APIConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
	UserAgent      string
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig defines a public type used by farmsession APIs.
//
// TokenConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type TokenConfig struct {
	// RenewalLead is how long before the access token's exp the proactive
	// renewal timer fires.
	RenewalLead time.Duration
	// GraceWindow is the post-login interval during which authentication
	// failures are treated as transient rather than session-ending. A freshly
	// issued token can be rejected by the backend for a few seconds while it
	// propagates; terminating the session there causes a login loop.
	GraceWindow time.Duration
}

// RetryConfig defines a public type used by farmsession APIs.
//
// RetryConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
	Jitter      float64
}

// StorageConfig defines a public type used by farmsession APIs.
//
// StorageConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type StorageConfig struct {
	TokenKey        string
	RefreshTokenKey string
	UserKey         string
}

// EventsConfig defines a public type used by farmsession APIs.
//
// EventsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type EventsConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig defines a public type used by farmsession APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

func defaultConfig() Config {
	return Config{
		API: APIConfig{
			RequestTimeout: 15 * time.Second,
			UserAgent:      "farmsession",
		},
		Tokens: TokenConfig{
			RenewalLead: 5 * time.Minute,
			GraceWindow: 5 * time.Second,
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   500 * time.Millisecond,
			MaxDelay:    5 * time.Second,
			Multiplier:  2.0,
			Jitter:      0.2,
		},
		Storage: StorageConfig{
			TokenKey:        "token",
			RefreshTokenKey: "refresh_token",
			UserKey:         "auth",
		},
		Events: EventsConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

/*
====================================
VALIDATION
====================================
*/

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Config) Validate() error {
	// API
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return errors.New("API BaseURL is required")
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.New("API BaseURL must be an absolute URL")
	}
	if c.API.RequestTimeout <= 0 {
		return errors.New("API RequestTimeout must be > 0")
	}

	// Tokens
	if c.Tokens.RenewalLead <= 0 {
		return errors.New("Tokens RenewalLead must be > 0")
	}
	if c.Tokens.GraceWindow < 0 {
		return errors.New("Tokens GraceWindow must be >= 0")
	}

	// Retry
	if c.Retry.MaxAttempts < 1 {
		return errors.New("Retry MaxAttempts must be >= 1")
	}
	if c.Retry.BaseDelay < 0 {
		return errors.New("Retry BaseDelay must be >= 0")
	}
	if c.Retry.MaxDelay < 0 {
		return errors.New("Retry MaxDelay must be >= 0")
	}
	if c.Retry.MaxDelay > 0 && c.Retry.BaseDelay > 0 && c.Retry.MaxDelay < c.Retry.BaseDelay {
		return errors.New("Retry MaxDelay must be >= BaseDelay")
	}
	if c.Retry.Multiplier < 1 {
		return errors.New("Retry Multiplier must be >= 1")
	}
	if c.Retry.Jitter < 0 || c.Retry.Jitter > 1 {
		return errors.New("Retry Jitter must be within [0, 1]")
	}

	// Storage
	if c.Storage.TokenKey == "" || c.Storage.RefreshTokenKey == "" || c.Storage.UserKey == "" {
		return errors.New("Storage keys must not be empty")
	}
	if c.Storage.TokenKey == c.Storage.RefreshTokenKey ||
		c.Storage.TokenKey == c.Storage.UserKey ||
		c.Storage.RefreshTokenKey == c.Storage.UserKey {
		return errors.New("Storage keys must be distinct")
	}

	// Events
	if c.Events.Enabled {
		if c.Events.BufferSize <= 0 {
			return errors.New("Events BufferSize must be > 0 when the event sink is enabled")
		}
	}

	return nil
}

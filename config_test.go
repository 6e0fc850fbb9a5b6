package farmsession

import (
	"strings"
	"testing"
	"time"
)

func validTestConfig() Config {
	cfg := defaultConfig()
	cfg.API.BaseURL = "https://api.farm.test"
	return cfg
}

func TestDefaultConfigWithBaseURLValidates(t *testing.T) {
	cfg := validTestConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestConfigValidationFailures(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantSub string
	}{
		{
			name:    "missing base url",
			mutate:  func(c *Config) { c.API.BaseURL = "" },
			wantSub: "BaseURL is required",
		},
		{
			name:    "relative base url",
			mutate:  func(c *Config) { c.API.BaseURL = "/api" },
			wantSub: "absolute URL",
		},
		{
			name:    "zero request timeout",
			mutate:  func(c *Config) { c.API.RequestTimeout = 0 },
			wantSub: "RequestTimeout",
		},
		{
			name:    "zero renewal lead",
			mutate:  func(c *Config) { c.Tokens.RenewalLead = 0 },
			wantSub: "RenewalLead",
		},
		{
			name:    "negative grace window",
			mutate:  func(c *Config) { c.Tokens.GraceWindow = -time.Second },
			wantSub: "GraceWindow",
		},
		{
			name:    "zero retry attempts",
			mutate:  func(c *Config) { c.Retry.MaxAttempts = 0 },
			wantSub: "MaxAttempts",
		},
		{
			name:    "max delay below base delay",
			mutate:  func(c *Config) { c.Retry.BaseDelay = time.Second; c.Retry.MaxDelay = time.Millisecond },
			wantSub: "MaxDelay",
		},
		{
			name:    "multiplier below one",
			mutate:  func(c *Config) { c.Retry.Multiplier = 0.5 },
			wantSub: "Multiplier",
		},
		{
			name:    "jitter out of range",
			mutate:  func(c *Config) { c.Retry.Jitter = 1.5 },
			wantSub: "Jitter",
		},
		{
			name:    "empty storage key",
			mutate:  func(c *Config) { c.Storage.TokenKey = "" },
			wantSub: "Storage keys",
		},
		{
			name:    "duplicate storage keys",
			mutate:  func(c *Config) { c.Storage.RefreshTokenKey = c.Storage.TokenKey },
			wantSub: "distinct",
		},
		{
			name:    "events enabled with zero buffer",
			mutate:  func(c *Config) { c.Events.Enabled = true; c.Events.BufferSize = 0 },
			wantSub: "BufferSize",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validTestConfig()
			tc.mutate(&cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.wantSub) {
				t.Fatalf("expected error mentioning %q, got %q", tc.wantSub, err.Error())
			}
		})
	}
}

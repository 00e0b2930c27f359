package config

import (
	"testing"
	"time"
)

func validEngineConfig() EngineConfig {
	return EngineConfig{
		TickInterval:        5 * time.Second,
		MaxQueueSize:        100,
		ReplenishMultiplier: 2,
		StaleLockTimeout:    5 * time.Minute,
		RetryDelay:          15 * time.Minute,
		BlendAlgorithm:      BlendWeighted,
	}
}

func TestEngineConfigValid(t *testing.T) {
	if err := validEngineConfig().Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestEngineConfigRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*EngineConfig)
	}{
		{"zero tick interval", func(c *EngineConfig) { c.TickInterval = 0 }},
		{"negative tick interval", func(c *EngineConfig) { c.TickInterval = -time.Second }},
		{"zero max queue size", func(c *EngineConfig) { c.MaxQueueSize = 0 }},
		{"negative multiplier", func(c *EngineConfig) { c.ReplenishMultiplier = -1 }},
		{"zero stale lock timeout", func(c *EngineConfig) { c.StaleLockTimeout = 0 }},
		{"negative retry delay", func(c *EngineConfig) { c.RetryDelay = -time.Minute }},
		{"unknown blend algorithm", func(c *EngineConfig) { c.BlendAlgorithm = "round_robin" }},
	}

	for _, tc := range cases {
		cfg := validEngineConfig()
		tc.mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}
}

func TestEngineConfigEmptyBlendAlgorithmAllowed(t *testing.T) {
	cfg := validEngineConfig()
	cfg.BlendAlgorithm = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected empty blend algorithm to default, got %v", err)
	}
}

func TestMultiplierDefault(t *testing.T) {
	cfg := EngineConfig{}
	if got := cfg.Multiplier(); got != 2 {
		t.Fatalf("expected default multiplier 2, got %d", got)
	}

	cfg.ReplenishMultiplier = 5
	if got := cfg.Multiplier(); got != 5 {
		t.Fatalf("expected configured multiplier 5, got %d", got)
	}
}

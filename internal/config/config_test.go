package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.Env != "dev" {
		t.Errorf("Env = %q, want dev", c.Env)
	}
	if c.HTTPPort != "8081" {
		t.Errorf("HTTPPort = %q, want 8081", c.HTTPPort)
	}
	if c.AccessTTL != 15*time.Minute {
		t.Errorf("AccessTTL = %v, want 15m", c.AccessTTL)
	}
	if c.ApprovalTTL != 2*time.Minute {
		t.Errorf("ApprovalTTL = %v, want 2m", c.ApprovalTTL)
	}
	if c.RateLimitPerMin != 120 {
		t.Errorf("RateLimitPerMin = %d, want 120", c.RateLimitPerMin)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("CANTEEN_HTTP_PORT", "9000")
	t.Setenv("CANTEEN_QUEUE_BACKEND", "memory")
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.HTTPPort != "9000" {
		t.Errorf("HTTPPort = %q, want 9000", c.HTTPPort)
	}
	if c.QueueBackend != "memory" {
		t.Errorf("QueueBackend = %q, want memory", c.QueueBackend)
	}
}

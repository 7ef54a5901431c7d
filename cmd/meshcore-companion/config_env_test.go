package main

import "testing"

func TestApplyEnvOverrides_AppliesWhenFlagNotSet(t *testing.T) {
	t.Setenv("MESHCORE_COMPANION_DEVICE", "/dev/ttyACM0")
	t.Setenv("MESHCORE_COMPANION_LOG_LEVEL", "debug")

	cfg := &appConfig{device: "/dev/ttyUSB0", logFormat: "text", logLevel: "info"}
	if err := applyEnvOverrides(cfg, map[string]struct{}{}); err != nil {
		t.Fatalf("applyEnvOverrides: %v", err)
	}
	if cfg.device != "/dev/ttyACM0" {
		t.Fatalf("device = %q, want /dev/ttyACM0", cfg.device)
	}
	if cfg.logLevel != "debug" {
		t.Fatalf("logLevel = %q, want debug", cfg.logLevel)
	}
}

func TestApplyEnvOverrides_FlagWinsOverEnv(t *testing.T) {
	t.Setenv("MESHCORE_COMPANION_DEVICE", "/dev/ttyACM0")

	cfg := &appConfig{device: "/dev/ttyUSB0"}
	set := map[string]struct{}{"device": {}}
	if err := applyEnvOverrides(cfg, set); err != nil {
		t.Fatalf("applyEnvOverrides: %v", err)
	}
	if cfg.device != "/dev/ttyUSB0" {
		t.Fatalf("device = %q, want flag value /dev/ttyUSB0 to win", cfg.device)
	}
}

func TestApplyEnvOverrides_RejectsBadDuration(t *testing.T) {
	t.Setenv("MESHCORE_COMPANION_LOG_METRICS_INTERVAL", "not-a-duration")

	cfg := &appConfig{}
	if err := applyEnvOverrides(cfg, map[string]struct{}{}); err == nil {
		t.Fatalf("expected error for malformed duration")
	}
}

package main

import "testing"

func TestValidate_Defaults(t *testing.T) {
	cfg := &appConfig{device: "/dev/ttyUSB0", logFormat: "text", logLevel: "info"}
	if err := cfg.validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestValidate_RejectsBadLogFormat(t *testing.T) {
	cfg := &appConfig{device: "/dev/ttyUSB0", logFormat: "xml", logLevel: "info"}
	if err := cfg.validate(); err == nil {
		t.Fatalf("expected error for invalid log-format")
	}
}

func TestValidate_RejectsBadLogLevel(t *testing.T) {
	cfg := &appConfig{device: "/dev/ttyUSB0", logFormat: "text", logLevel: "verbose"}
	if err := cfg.validate(); err == nil {
		t.Fatalf("expected error for invalid log-level")
	}
}

func TestValidate_RejectsEmptyDevice(t *testing.T) {
	cfg := &appConfig{logFormat: "text", logLevel: "info"}
	if err := cfg.validate(); err == nil {
		t.Fatalf("expected error for empty device")
	}
}

func TestValidate_RejectsNegativeMetricsInterval(t *testing.T) {
	cfg := &appConfig{device: "/dev/ttyUSB0", logFormat: "text", logLevel: "info", logMetricsEvery: -1}
	if err := cfg.validate(); err == nil {
		t.Fatalf("expected error for negative log-metrics-interval")
	}
}

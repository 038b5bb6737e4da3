package config

import "testing"

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Ports != 4 || cfg.LogFilter != "logrus" || !cfg.NetworkComputing || cfg.Debug {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestParseRejectsOddPortCount(t *testing.T) {
	if _, err := Parse([]string{"--ports=5"}); err == nil {
		t.Fatalf("expected error for odd port count")
	}
}

func TestParseRejectsTooFewPorts(t *testing.T) {
	if _, err := Parse([]string{"--ports=2"}); err == nil {
		t.Fatalf("expected error for port count below 4")
	}
}

func TestParseOverridesFlags(t *testing.T) {
	cfg, err := Parse([]string{"--ports=8", "--no-network-computing", "--debug"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Ports != 8 || cfg.NetworkComputing || !cfg.Debug {
		t.Fatalf("flags not applied: %+v", cfg)
	}
}

package main

import "testing"

func TestParseOverrides(t *testing.T) {
	overrides, err := parseOverrides([]string{
		"LOG_LEVEL=debug",
		"kafka_brokers=a:9092,b:9092",
		"EMPTY=",
	})
	if err != nil {
		t.Fatalf("parseOverrides() error = %v", err)
	}
	if overrides["LOG_LEVEL"] != "debug" {
		t.Errorf("LOG_LEVEL = %v, want debug", overrides["LOG_LEVEL"])
	}
	if overrides["kafka_brokers"] != "a:9092,b:9092" {
		t.Errorf("kafka_brokers = %v", overrides["kafka_brokers"])
	}
	if v, ok := overrides["EMPTY"]; !ok || v != "" {
		t.Errorf("EMPTY = %v, want empty string", v)
	}
}

func TestParseOverridesMalformed(t *testing.T) {
	for _, pair := range []string{"novalue", "=value"} {
		if _, err := parseOverrides([]string{pair}); err == nil {
			t.Errorf("parseOverrides(%q) succeeded, want error", pair)
		}
	}
}

func TestParseOverridesEmpty(t *testing.T) {
	overrides, err := parseOverrides(nil)
	if err != nil {
		t.Fatalf("parseOverrides(nil) error = %v", err)
	}
	if overrides != nil {
		t.Errorf("parseOverrides(nil) = %v, want nil", overrides)
	}
}

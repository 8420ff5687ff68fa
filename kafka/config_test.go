package kafka

import (
	"strings"
	"testing"
	"time"

	"github.com/minotaur-io/minotaur/settings"
)

func TestConfigApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()

	if len(cfg.Brokers) != 1 || cfg.Brokers[0] != "localhost:9092" {
		t.Errorf("unexpected default brokers: %v", cfg.Brokers)
	}
	if cfg.GroupID != "minotaur" {
		t.Errorf("unexpected default group id: %q", cfg.GroupID)
	}
	if cfg.Compression != "snappy" {
		t.Errorf("unexpected default compression: %q", cfg.Compression)
	}
	if cfg.Retries != 3 || cfg.BatchSize != 100 {
		t.Errorf("unexpected producer defaults: retries=%d batch=%d", cfg.Retries, cfg.BatchSize)
	}
	if cfg.RequiredAcks != -1 {
		t.Errorf("expected acks=all default, got %d", cfg.RequiredAcks)
	}
	if cfg.SessionTimeout != 30*time.Second || cfg.HeartbeatInterval != 3*time.Second {
		t.Errorf("unexpected consumer defaults: %v / %v", cfg.SessionTimeout, cfg.HeartbeatInterval)
	}
}

func TestConfigApplyDefaultsKeepsExplicit(t *testing.T) {
	cfg := Config{
		Brokers:      []string{"k1:9092", "k2:9092"},
		Compression:  "gzip",
		BatchTimeout: 5 * time.Second,
	}
	cfg.ApplyDefaults()

	if len(cfg.Brokers) != 2 {
		t.Errorf("explicit brokers overwritten: %v", cfg.Brokers)
	}
	if cfg.Compression != "gzip" {
		t.Errorf("explicit compression overwritten: %q", cfg.Compression)
	}
	if cfg.BatchTimeout != 5*time.Second {
		t.Errorf("explicit batch timeout overwritten: %v", cfg.BatchTimeout)
	}
}

func TestConfigValidate(t *testing.T) {
	base := func() Config {
		var cfg Config
		cfg.Enabled = true
		cfg.ApplyDefaults()
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"disabled skips validation", func(c *Config) { c.Enabled = false; c.Brokers = nil }, ""},
		{"no brokers", func(c *Config) { c.Brokers = nil }, "brokers"},
		{"bad sasl mechanism", func(c *Config) { c.EnableSASL = true; c.SASLMechanism = "GSSAPI" }, "SASL mechanism"},
		{"sasl without username", func(c *Config) { c.EnableSASL = true; c.SASLMechanism = "PLAIN" }, "username"},
		{"zero retries", func(c *Config) { c.Retries = -1 }, "retries"},
		{"zero batch size", func(c *Config) { c.BatchSize = -1 }, "batch_size"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestConfigFromSettings(t *testing.T) {
	store, err := settings.New(map[string]any{
		settings.KeyKafkaBrokers: "k1:9092, k2:9092",
		settings.KeyKafkaGroupID: "daemon-group",
	}, settings.PriorityDefault)
	if err != nil {
		t.Fatalf("settings.New failed: %v", err)
	}

	var cfg Config
	cfg.ApplyDefaults()
	cfg.FromSettings(store)

	if len(cfg.Brokers) != 2 || cfg.Brokers[0] != "k1:9092" || cfg.Brokers[1] != "k2:9092" {
		t.Errorf("unexpected brokers from settings: %v", cfg.Brokers)
	}
	if cfg.GroupID != "daemon-group" {
		t.Errorf("unexpected group id from settings: %q", cfg.GroupID)
	}
}

func TestSASLMechanisms(t *testing.T) {
	for _, mech := range []string{"PLAIN", "SCRAM-SHA-256", "SCRAM-SHA-512"} {
		t.Run(mech, func(t *testing.T) {
			cfg := Config{
				EnableSASL:    true,
				SASLMechanism: mech,
				Username:      "user",
				Password:      "pass",
			}
			cfg.ApplyDefaults()

			dialer, err := NewDialer(&cfg)
			if err != nil {
				t.Fatalf("NewDialer failed: %v", err)
			}
			if dialer.SASLMechanism == nil {
				t.Error("expected SASL mechanism on dialer")
			}

			transport, err := NewTransport(&cfg)
			if err != nil {
				t.Fatalf("NewTransport failed: %v", err)
			}
			if transport.SASL == nil {
				t.Error("expected SASL mechanism on transport")
			}
		})
	}

	t.Run("unsupported", func(t *testing.T) {
		cfg := Config{EnableSASL: true, SASLMechanism: "GSSAPI", Username: "u"}
		if _, err := NewDialer(&cfg); err == nil {
			t.Error("expected error for unsupported mechanism")
		}
	})
}

func TestTLSConfig(t *testing.T) {
	t.Run("missing CA file", func(t *testing.T) {
		cfg := Config{EnableTLS: true, TLSCAFile: "/nonexistent/ca.pem"}
		cfg.ApplyDefaults()
		if _, err := NewDialer(&cfg); err == nil {
			t.Error("expected error for unreadable CA file")
		}
	})

	t.Run("skip verify", func(t *testing.T) {
		cfg := Config{EnableTLS: true, TLSSkipVerify: true}
		cfg.ApplyDefaults()
		dialer, err := NewDialer(&cfg)
		if err != nil {
			t.Fatalf("NewDialer failed: %v", err)
		}
		if dialer.TLS == nil || !dialer.TLS.InsecureSkipVerify {
			t.Error("expected TLS config with InsecureSkipVerify")
		}
	})
}

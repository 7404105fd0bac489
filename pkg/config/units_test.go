package config

import (
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input    string
		expected time.Duration
		wantErr  bool
	}{
		{"16ms", 16 * time.Millisecond, false},
		{"250ms", 250 * time.Millisecond, false},
		{"1.5s", 1500 * time.Millisecond, false},
		{"1d", 24 * time.Hour, false},
		{"1w", 168 * time.Hour, false},
		{"2d2h", 50 * time.Hour, false},
		{"1w2d", 216 * time.Hour, false},
		{"1.5d", 36 * time.Hour, false},
		{"-2s", -2 * time.Second, false},
		{"", 0, false},
		{"invalid", 0, true},
		{"3dx", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseDuration(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseDuration(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.expected {
			t.Errorf("ParseDuration(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}

func TestDurationYAML(t *testing.T) {
	type holder struct {
		Timeout Duration `yaml:"timeout"`
	}

	var h holder
	if err := yaml.Unmarshal([]byte("timeout: 2d\n"), &h); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if h.Timeout.Std() != 48*time.Hour {
		t.Errorf("Expected 48h, got %v", h.Timeout.Std())
	}

	out, err := yaml.Marshal(holder{Timeout: Duration(90 * time.Millisecond)})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(out) != "timeout: 90ms\n" {
		t.Errorf("unexpected yaml %q", out)
	}
}

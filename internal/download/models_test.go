package download

import (
	"errors"
	"strings"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"valid ftp", Config{Protocol: "ftp", RetryLimit: 3, TimeoutSeconds: 60, LogDir: "/tmp/logs"}, false},
		{"valid aspera", Config{Protocol: "aspera", RetryLimit: 0, TimeoutSeconds: 60, LogDir: "/tmp/logs"}, false},
		{"invalid protocol", Config{Protocol: "gopher", RetryLimit: 3, TimeoutSeconds: 60, LogDir: "/tmp/logs"}, true},
		{"negative retries", Config{Protocol: "ftp", RetryLimit: -1, TimeoutSeconds: 60, LogDir: "/tmp/logs"}, true},
		{"zero timeout", Config{Protocol: "ftp", RetryLimit: 3, TimeoutSeconds: 0, LogDir: "/tmp/logs"}, true},
		{"missing log dir", Config{Protocol: "ftp", RetryLimit: 3, TimeoutSeconds: 60}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigSetDefaults(t *testing.T) {
	config := Config{}
	config.SetDefaults()

	if config.Protocol != "ftp" {
		t.Errorf("expected default protocol ftp, got %s", config.Protocol)
	}
	if config.RetryLimit != 3 {
		t.Errorf("expected default retry limit 3, got %d", config.RetryLimit)
	}
	if config.TimeoutSeconds != 1800 {
		t.Errorf("expected default timeout 1800s, got %d", config.TimeoutSeconds)
	}
}

func TestFallbackErrorCarriesBothCauses(t *testing.T) {
	primaryErr := errors.New("api unreachable")
	secondaryErr := errors.New("mirror listing empty")

	err := &FallbackError{PrimaryErr: primaryErr, SecondaryErr: secondaryErr}

	if !errors.Is(err, primaryErr) {
		t.Error("expected errors.Is to match the primary cause")
	}
	if !errors.Is(err, secondaryErr) {
		t.Error("expected errors.Is to match the secondary cause")
	}
	msg := err.Error()
	if !strings.Contains(msg, "api unreachable") || !strings.Contains(msg, "mirror listing empty") {
		t.Errorf("expected both causes in the message, got %q", msg)
	}
}

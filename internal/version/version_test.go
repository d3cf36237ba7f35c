// ABOUTME: Tests for version identification
// ABOUTME: Checks the values the handshake and mDNS TXT records carry
package version

import (
	"strconv"
	"strings"
	"testing"
)

func TestVersionIsSemantic(t *testing.T) {
	parts := strings.Split(Version, ".")
	if len(parts) != 3 {
		t.Fatalf("expected major.minor.patch, got %q", Version)
	}
	for _, p := range parts {
		if _, err := strconv.Atoi(p); err != nil {
			t.Errorf("version component %q is not a number", p)
		}
	}
}

func TestString(t *testing.T) {
	if got := String(); got != "Resonate Router 0.3.0" {
		t.Errorf("expected 'Resonate Router 0.3.0', got %q", got)
	}
}

// Product and Version are sent as TXT values and in JSON; keep them on one
// printable line
func TestValuesFitTXTRecords(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"product", Product},
		{"version", Version},
		{"manufacturer", Manufacturer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value == "" {
				t.Fatal("value is empty")
			}
			// A TXT string is at most 255 bytes including "key="
			if len(tt.name)+1+len(tt.value) > 255 {
				t.Errorf("%s=%s does not fit in one TXT string", tt.name, tt.value)
			}
			if strings.ContainsAny(tt.value, "\n\r\t") {
				t.Errorf("%q contains control characters", tt.value)
			}
		})
	}
}

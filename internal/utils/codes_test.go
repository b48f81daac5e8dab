package utils

import (
	"strings"
	"testing"
)

func TestGenerateInternalCode(t *testing.T) {
	code := GenerateInternalCode()

	if !strings.HasPrefix(code, "AUTO") {
		t.Errorf("code = %q, want AUTO prefix", code)
	}
	if len(code) != 14 {
		t.Errorf("len(code) = %d, want 14", len(code))
	}
	if code != strings.ToUpper(code) {
		t.Errorf("code = %q, want uppercase", code)
	}

	// Codes must not collide across calls.
	seen := map[string]bool{}
	for i := 0; i < 1000; i++ {
		c := GenerateInternalCode()
		if seen[c] {
			t.Fatalf("duplicate code generated: %s", c)
		}
		seen[c] = true
	}
}

package idgen

import (
	"strings"
	"testing"
)

func TestWithPrefix(t *testing.T) {
	id := WithPrefix("org_")
	if !strings.HasPrefix(id, "org_") {
		t.Fatalf("expected org_ prefix, got %s", id)
	}
	if len(id) != len("org_")+24 {
		t.Errorf("expected 24 hex chars after prefix, got %d", len(id)-len("org_"))
	}
}

func TestWithPrefix_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := WithPrefix("usr_")
		if seen[id] {
			t.Fatalf("duplicate ID generated: %s", id)
		}
		seen[id] = true
	}
}

func TestHex_Length(t *testing.T) {
	if got := len(Hex(16)); got != 32 {
		t.Errorf("expected 32 chars, got %d", got)
	}
}

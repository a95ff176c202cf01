package uuid

import (
	"testing"

	"github.com/google/uuid"
)

func TestNew(t *testing.T) {
	id1 := New()
	id2 := New()

	if len(id1) == 0 {
		t.Error("UUID should not be empty")
	}

	if id1 == id2 {
		t.Error("run IDs should be unique")
	}

	parsed, err := uuid.Parse(id1)
	if err != nil {
		t.Fatalf("run ID should parse: %v", err)
	}
	if parsed.Version() != 4 {
		t.Errorf("expected a version 4 UUID, got version %d", parsed.Version())
	}
}

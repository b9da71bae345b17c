package observability

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestWithOpID(t *testing.T) {
	ctx := WithOpID(context.Background())
	id := OpID(ctx)
	if id == "" {
		t.Fatal("expected op id")
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		t.Fatalf("op id %q is not a UUID: %v", id, err)
	}
	if parsed.Version() != 4 {
		t.Errorf("version = %d, want 4", parsed.Version())
	}

	if other := OpID(WithOpID(context.Background())); other == id {
		t.Error("op ids should differ between invocations")
	}
}

func TestOpID_Unset(t *testing.T) {
	if id := OpID(context.Background()); id != "" {
		t.Errorf("OpID = %q, want empty", id)
	}
}

package observability

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestWithOpID(t *testing.T) {
	if got := OpID(context.Background()); got != "" {
		t.Errorf("OpID on bare context = %q", got)
	}

	a := OpID(WithOpID(context.Background()))
	b := OpID(WithOpID(context.Background()))
	if a == b {
		t.Error("op ids repeat")
	}
	parsed, err := uuid.Parse(a)
	if err != nil {
		t.Fatalf("op id %q is not a uuid: %v", a, err)
	}
	if parsed.Version() != 4 {
		t.Errorf("version = %d, want 4", parsed.Version())
	}
}

package services

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestWrapPreservesMarkerAndCause(t *testing.T) {
	cause := errors.New("exit status 1")
	err := Wrap(ErrExternalTool, "compose", "concat segments", "playlist rejected", cause)

	if !errors.Is(err, ErrExternalTool) {
		t.Fatal("marker lost")
	}
	if !errors.Is(err, cause) {
		t.Fatal("cause lost")
	}
	msg := err.Error()
	for _, want := range []string{"compose", "concat segments", "playlist rejected", "exit status 1"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("message %q missing %q", msg, want)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := Wrap(nil, "", "", "", nil)
	if !errors.Is(err, ErrTransient) {
		t.Fatal("nil marker should default to transient")
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("empty detail fallback missing: %q", err)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{Wrap(ErrExternalTool, "s", "o", "", nil), "external_tool"},
		{Wrap(ErrValidation, "s", "o", "", nil), "validation"},
		{Wrap(ErrConfiguration, "s", "o", "", nil), "configuration"},
		{Wrap(ErrNotFound, "s", "o", "", nil), "not_found"},
		{Wrap(ErrTimeout, "s", "o", "", nil), "timeout"},
		{errors.New("anything else"), "transient"},
	}
	for _, tc := range cases {
		if got := Classify(tc.err); got != tc.want {
			t.Fatalf("Classify(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestContextFieldsRoundTrip(t *testing.T) {
	ctx := context.Background()
	ctx = WithJobID(ctx, 42)
	ctx = WithStage(ctx, "preparer")
	ctx = WithRequestID(ctx, "req-1")

	if id, ok := JobIDFromContext(ctx); !ok || id != 42 {
		t.Fatalf("job id: %d %v", id, ok)
	}
	if stage, ok := StageFromContext(ctx); !ok || stage != "preparer" {
		t.Fatalf("stage: %q %v", stage, ok)
	}
	if rid, ok := RequestIDFromContext(ctx); !ok || rid != "req-1" {
		t.Fatalf("request id: %q %v", rid, ok)
	}

	if _, ok := JobIDFromContext(context.Background()); ok {
		t.Fatal("empty context should carry no job id")
	}
}

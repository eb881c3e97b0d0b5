package logging

import (
	"context"
	"log/slog"
	"testing"
)

func TestNew_DefaultLevel(t *testing.T) {
	logger := New("", "text")
	if logger == nil {
		t.Fatal("Expected non-nil logger")
	}
}

func TestNew_DebugLevel(t *testing.T) {
	logger := New("debug", "text")
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("Expected debug level to be enabled")
	}
}

func TestNew_ErrorLevel(t *testing.T) {
	logger := New("error", "text")
	if logger.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("Expected info level to be disabled at error level")
	}
}

func TestRequestID_RoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-123")
	if got := RequestID(ctx); got != "req-123" {
		t.Errorf("Expected req-123, got %q", got)
	}
	if got := RequestID(context.Background()); got != "" {
		t.Errorf("Expected empty request ID, got %q", got)
	}
}

func TestOrgID_RoundTrip(t *testing.T) {
	ctx := WithOrgID(context.Background(), "org_abc")
	if got := OrgID(ctx); got != "org_abc" {
		t.Errorf("Expected org_abc, got %q", got)
	}
	// Empty org ID is a no-op.
	ctx2 := WithOrgID(context.Background(), "")
	if got := OrgID(ctx2); got != "" {
		t.Errorf("Expected empty org ID, got %q", got)
	}
}

func TestL_FallsBackToDefault(t *testing.T) {
	if L(context.Background()) == nil {
		t.Fatal("Expected non-nil logger from bare context")
	}
}

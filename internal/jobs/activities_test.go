package jobs

import (
	"errors"
	"testing"

	"go.temporal.io/sdk/temporal"

	"github.com/tessera-ai/knowledge-backend/internal/ingest"
)

func TestAsActivityError(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		wantType     string
		nonRetryable bool
	}{
		{
			name:         "validation is terminal",
			err:          ingest.Validation("op", "asset is COMPLETED"),
			wantType:     ErrTypeValidation,
			nonRetryable: true,
		},
		{
			name:         "not found is terminal",
			err:          ingest.NotFound("op", "no such asset"),
			wantType:     ErrTypeNotFound,
			nonRetryable: true,
		},
		{
			name:         "forbidden is terminal",
			err:          ingest.Forbidden("op", "no capability"),
			wantType:     ErrTypeForbidden,
			nonRetryable: true,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := asActivityError(tc.err)
			var appErr *temporal.ApplicationError
			if !errors.As(got, &appErr) {
				t.Fatalf("expected ApplicationError, got %T: %v", got, got)
			}
			if appErr.Type() != tc.wantType {
				t.Fatalf("type = %q, want %q", appErr.Type(), tc.wantType)
			}
			if appErr.NonRetryable() != tc.nonRetryable {
				t.Fatalf("non-retryable = %v, want %v", appErr.NonRetryable(), tc.nonRetryable)
			}
		})
	}
}

func TestAsActivityErrorPassesInfraThrough(t *testing.T) {
	cause := ingest.Infra("op", errors.New("storage outage"))
	got := asActivityError(cause)
	if got != cause {
		t.Fatalf("infrastructure error was rewrapped: %v", got)
	}

	plain := errors.New("unknown failure")
	if asActivityError(plain) != plain {
		t.Fatal("plain error was rewrapped")
	}
}

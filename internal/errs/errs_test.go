package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_MessageIncludesCause(t *testing.T) {
	t.Parallel()

	cause := errors.New("boom")
	err := Config(cause, "loading %s", "config.yaml")

	want := "ConfigError: loading config.yaml: boom"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestError_MessageWithoutCause(t *testing.T) {
	t.Parallel()

	err := Quote(nil, "insufficient liquidity")
	want := "QuoteError: insufficient liquidity"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestError_Unwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("root cause")
	err := Transport(cause, "call failed")

	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause via Unwrap")
	}
}

func TestKindOf(t *testing.T) {
	t.Parallel()

	err := NoRoute(nil, "no path")
	wrapped := fmt.Errorf("outer: %w", err)

	if KindOf(wrapped) != KindNoRoute {
		t.Errorf("KindOf(wrapped) = %q, want %q", KindOf(wrapped), KindNoRoute)
	}
	if KindOf(errors.New("plain")) != "" {
		t.Error("KindOf should return empty for a non-*Error chain")
	}
}

func TestError_IsMatchesOnKindOnly(t *testing.T) {
	t.Parallel()

	a := Submission(nil, "rejected: reason A")
	b := Submission(nil, "rejected: reason B")
	c := ExecutionTimeout(nil, "timed out")

	if !a.Is(b) {
		t.Error("two *Error values with the same Kind should match via Is")
	}
	if a.Is(c) {
		t.Error("*Error values with different Kinds should not match via Is")
	}
}

func TestAllConstructors_SetExpectedKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  *Error
		want Kind
	}{
		{"Config", Config(nil, "x"), KindConfig},
		{"Transport", Transport(nil, "x"), KindTransport},
		{"Quote", Quote(nil, "x"), KindQuote},
		{"NoRoute", NoRoute(nil, "x"), KindNoRoute},
		{"Submission", Submission(nil, "x"), KindSubmission},
		{"ExecutionTimeout", ExecutionTimeout(nil, "x"), KindExecutionTimeout},
		{"Cancelled", Cancelled(nil, "x"), KindCancelled},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if tt.err.Kind != tt.want {
				t.Errorf("%s: Kind = %q, want %q", tt.name, tt.err.Kind, tt.want)
			}
		})
	}
}

package collector

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestErrorTypeLabel(t *testing.T) {
	base := errors.New("boom")

	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{name: "nil", err: nil, expected: "unknown"},
		{name: "invocation", err: ErrInvocation{Err: base}, expected: "invocation"},
		{name: "extraction", err: ErrExtraction{Err: base}, expected: "extraction"},
		{name: "exhausted", err: ErrExhausted{Attempts: 3, Err: ErrExtraction{Err: base}}, expected: "exhausted"},
		{name: "initialization", err: ErrInitialization{Err: base}, expected: "initialization"},
		{name: "teardown", err: ErrTeardown{Err: base}, expected: "teardown"},
		{name: "cancelled", err: fmt.Errorf("stop: %w", context.Canceled), expected: "cancelled"},
		{name: "invocation timeout", err: ErrInvocation{Err: context.DeadlineExceeded}, expected: "cancelled"},
		{name: "other", err: base, expected: "other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errorTypeLabel(tt.err); got != tt.expected {
				t.Fatalf("errorTypeLabel(%v) = %q, want %q", tt.err, got, tt.expected)
			}
		})
	}
}

func TestFailureReason(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{name: "nil", err: nil, expected: "unknown error"},
		{name: "extraction", err: ErrExtraction{Err: errors.New("no data extracted")}, expected: "no data extracted"},
		{name: "invocation", err: ErrInvocation{Err: errors.New("agent browse: timeout")}, expected: "agent browse: timeout"},
		{
			name:     "exhausted",
			err:      ErrExhausted{Attempts: 3, Err: ErrInvocation{Err: errors.New("tab closed")}},
			expected: "tab closed",
		},
		{name: "plain", err: errors.New("disk full"), expected: "disk full"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := failureReason(tt.err); got != tt.expected {
				t.Fatalf("failureReason(%v) = %q, want %q", tt.err, got, tt.expected)
			}
		})
	}
}

func TestRunErrorMessage(t *testing.T) {
	err := &RunError{RunID: "20261015_093000", State: StateListing, Err: ErrInvocation{Err: errors.New("down")}}
	if got := err.Error(); got != "collect 20261015_093000: listing: invocation: down" {
		t.Fatalf("Error() = %q", got)
	}
	var invocation ErrInvocation
	if !errors.As(err, &invocation) {
		t.Fatalf("RunError must unwrap to its cause")
	}
}

func TestStateTransitions(t *testing.T) {
	happy := []State{StateInitializing, StateScouting, StateListing, StateCollectingDetails, StateFinalizing, StateClosed}
	for i := 0; i+1 < len(happy); i++ {
		if !canTransition(happy[i], happy[i+1]) {
			t.Fatalf("%s -> %s should be allowed", happy[i], happy[i+1])
		}
	}
	if canTransition(StateScouting, StateCollectingDetails) {
		t.Fatalf("phases must not be skipped")
	}
	if canTransition(StateClosed, StateFailed) || canTransition(StateFailed, StateClosed) {
		t.Fatalf("terminal states must not transition")
	}
	if !StateFailed.Terminal() || StateFinalizing.Terminal() {
		t.Fatalf("unexpected terminal classification")
	}
}

package collector

import (
	"context"
	"errors"
	"fmt"
)

// ErrInvocation indicates the agent call itself failed.
type ErrInvocation struct {
	Err error
}

func (e ErrInvocation) Error() string {
	return fmt.Errorf("invocation: %w", e.Err).Error()
}

func (e ErrInvocation) Unwrap() error {
	return e.Err
}

// ErrExtraction indicates the agent answered without a parseable payload.
type ErrExtraction struct {
	Err error
}

func (e ErrExtraction) Error() string {
	return fmt.Errorf("extraction: %w", e.Err).Error()
}

func (e ErrExtraction) Unwrap() error {
	return e.Err
}

// ErrExhausted indicates every attempt for an item failed.
type ErrExhausted struct {
	Attempts int
	Err      error
}

func (e ErrExhausted) Error() string {
	return fmt.Errorf("exhausted after %d attempts: %w", e.Attempts, e.Err).Error()
}

func (e ErrExhausted) Unwrap() error {
	return e.Err
}

// ErrInitialization indicates the shared session or the run's output location could not
// be allocated.
type ErrInitialization struct {
	Err error
}

func (e ErrInitialization) Error() string {
	return fmt.Errorf("initialization: %w", e.Err).Error()
}

func (e ErrInitialization) Unwrap() error {
	return e.Err
}

// ErrTeardown indicates releasing the session failed. It is logged, never returned.
type ErrTeardown struct {
	Err error
}

func (e ErrTeardown) Error() string {
	return fmt.Errorf("teardown: %w", e.Err).Error()
}

func (e ErrTeardown) Unwrap() error {
	return e.Err
}

// RunError is returned by Collect when a run fails. State is the phase that failed.
type RunError struct {
	RunID string
	State State
	Err   error
}

func (e *RunError) Error() string {
	if e.RunID == "" {
		return fmt.Sprintf("collect: %s: %v", e.State, e.Err)
	}
	return fmt.Sprintf("collect %s: %s: %v", e.RunID, e.State, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// errorTypeLabel classifies err for metrics. Wrappers are checked outermost first.
func errorTypeLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	var exhausted ErrExhausted
	if errors.As(err, &exhausted) {
		return "exhausted"
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "cancelled"
	}
	var invocation ErrInvocation
	if errors.As(err, &invocation) {
		return "invocation"
	}
	var extraction ErrExtraction
	if errors.As(err, &extraction) {
		return "extraction"
	}
	var initialization ErrInitialization
	if errors.As(err, &initialization) {
		return "initialization"
	}
	var teardown ErrTeardown
	if errors.As(err, &teardown) {
		return "teardown"
	}
	return "other"
}

// failureReason is the text stored in an item's error placeholder.
func failureReason(err error) string {
	switch e := err.(type) {
	case nil:
		return "unknown error"
	case ErrExhausted:
		return failureReason(e.Err)
	case ErrExtraction:
		return e.Err.Error()
	case ErrInvocation:
		return e.Err.Error()
	}
	return err.Error()
}

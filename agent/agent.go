// Package agent defines the boundary to the autonomous browsing agent and a
// Gemini-backed implementation that drives one shared browser session.
package agent

import (
	"context"
	"fmt"
)

// Task is one natural-language instruction. URL, when set, is the page the agent must
// open before acting, so the task does not depend on where an earlier task left the
// shared session.
type Task struct {
	Instruction    string
	URL            string
	DismissOverlay bool
}

// Agent executes a task and returns free-form text that may embed structured data.
type Agent interface {
	Invoke(ctx context.Context, task Task) (string, error)
}

// Session is an Agent bound to a browsing session that must be released exactly once.
type Session interface {
	Agent
	Close() error
}

// LaunchOptions carries per-run session settings.
type LaunchOptions struct {
	UseVision bool
}

// Launcher allocates the shared session of a run.
type Launcher func(ctx context.Context, opts LaunchOptions) (Session, error)

// InvocationError reports that the agent call itself failed.
type InvocationError struct {
	Stage string
	Err   error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("agent %s: %v", e.Stage, e.Err)
}

func (e *InvocationError) Unwrap() error {
	return e.Err
}

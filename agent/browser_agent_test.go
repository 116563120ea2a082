package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aluiziolira/go-collect-posts/browser"
)

type fakePage struct {
	snap       browser.Snapshot
	err        error
	targets    []string
	dismissed  []bool
	screenshot []bool
	closed     int
}

func (p *fakePage) Capture(ctx context.Context, target string, dismissOverlay, screenshot bool) (browser.Snapshot, error) {
	p.targets = append(p.targets, target)
	p.dismissed = append(p.dismissed, dismissOverlay)
	p.screenshot = append(p.screenshot, screenshot)
	return p.snap, p.err
}

func (p *fakePage) Close() error {
	p.closed++
	return nil
}

type fakeCompleter struct {
	answer string
	err    error
	prompt string
	image  []byte
}

func (c *fakeCompleter) Complete(ctx context.Context, prompt string, image []byte) (string, error) {
	c.prompt = prompt
	c.image = image
	return c.answer, c.err
}

func TestBrowserAgentInvoke(t *testing.T) {
	page := &fakePage{snap: browser.Snapshot{URL: "https://example.test/explore", Title: "Explore", Text: "card one\ncard two", Screenshot: []byte{1, 2}}}
	llm := &fakeCompleter{answer: "<result>```json\n[]\n```</result>"}
	a := NewBrowserAgent(page, llm, true, nil)

	answer, err := a.Invoke(context.Background(), Task{Instruction: "List the posts", URL: "https://example.test/explore", DismissOverlay: true})
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if answer != llm.answer {
		t.Fatalf("answer = %q", answer)
	}
	if page.targets[0] != "https://example.test/explore" || !page.dismissed[0] || !page.screenshot[0] {
		t.Fatalf("unexpected capture: targets=%v dismissed=%v screenshot=%v", page.targets, page.dismissed, page.screenshot)
	}
	if len(llm.image) != 2 {
		t.Fatalf("screenshot not forwarded to model")
	}
	for _, want := range []string{"List the posts", "URL: https://example.test/explore", "card two", "screenshot"} {
		if !strings.Contains(llm.prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, llm.prompt)
		}
	}
}

func TestBrowserAgentInvocationErrors(t *testing.T) {
	tests := []struct {
		name      string
		page      *fakePage
		llm       *fakeCompleter
		wantStage string
	}{
		{
			name:      "browse failure",
			page:      &fakePage{err: errors.New("navigation timeout")},
			llm:       &fakeCompleter{},
			wantStage: "browse",
		},
		{
			name:      "model failure",
			page:      &fakePage{},
			llm:       &fakeCompleter{err: errors.New("quota exceeded")},
			wantStage: "reason",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBrowserAgent(tt.page, tt.llm, false, nil).Invoke(context.Background(), Task{Instruction: "x"})
			var invocationErr *InvocationError
			if !errors.As(err, &invocationErr) {
				t.Fatalf("expected InvocationError, got %v", err)
			}
			if invocationErr.Stage != tt.wantStage {
				t.Fatalf("stage = %q, want %q", invocationErr.Stage, tt.wantStage)
			}
		})
	}
}

func TestBuildPromptWithoutScreenshot(t *testing.T) {
	prompt := BuildPrompt(Task{Instruction: "  Open post 2  "}, browser.Snapshot{URL: "u", Title: "t", Text: "body"})
	if strings.Contains(prompt, "screenshot") {
		t.Fatalf("prompt should not mention a screenshot:\n%s", prompt)
	}
	if !strings.HasPrefix(prompt, "## Instruction\nOpen post 2\n") {
		t.Fatalf("instruction not trimmed:\n%s", prompt)
	}
}

func TestBrowserAgentClose(t *testing.T) {
	page := &fakePage{}
	if err := NewBrowserAgent(page, &fakeCompleter{}, false, nil).Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if page.closed != 1 {
		t.Fatalf("page closed %d times, want 1", page.closed)
	}
}

package agent

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// Completer answers a prompt, optionally with a page screenshot attached.
type Completer interface {
	Complete(ctx context.Context, prompt string, image []byte) (string, error)
}

// Gemini is a Completer backed by the Gemini API.
type Gemini struct {
	client      *genai.Client
	model       string
	temperature float32
}

// NewGemini creates a Gemini completer.
func NewGemini(ctx context.Context, apiKey, model string, temperature float32) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("gemini API key is required")
	}
	if model == "" {
		model = "gemini-flash-latest"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &Gemini{
		client:      client,
		model:       model,
		temperature: temperature,
	}, nil
}

// Complete sends the prompt and returns the concatenated text of the first candidate.
func (g *Gemini) Complete(ctx context.Context, prompt string, image []byte) (string, error) {
	parts := []*genai.Part{genai.NewPartFromText(prompt)}
	if len(image) > 0 {
		parts = append(parts, genai.NewPartFromBytes(image, "image/png"))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	result, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		Temperature:       genai.Ptr(g.temperature),
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
	})
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	return result.Text(), nil
}

const systemPrompt = `You are a careful web data extraction agent working on a social media feed.
You receive an instruction and the current state of a browser page.
Follow the instruction using only what the page shows. Never invent values.
When the instruction asks for data, end your answer with the data wrapped exactly as:
<result>
` + "```json" + `
...
` + "```" + `
</result>`

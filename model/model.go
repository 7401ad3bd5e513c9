// Package model defines the minimal language-model interface the MediSync
// agents use for free-text assistance (clinical reasoning narratives,
// extraction hints). Providers live in the subpackages anthropic and openai.
//
// A Completer is always optional: every agent has a deterministic non-LLM
// path and treats a nil Completer as "no model configured".
package model

import (
	"context"
	"fmt"
)

// Completer produces a single synchronous text completion for a prompt.
type Completer interface {
	// Complete returns the model's completion for the prompt.
	Complete(ctx context.Context, prompt string) (string, error)

	// Info returns metadata about the model implementation.
	Info() Info
}

// Info contains metadata about a model implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "openai", "anthropic", "mock"
}

// MockCompleter is a lightweight in-memory Completer useful for tests and
// demos. Unknown prompts receive a deterministic echo response.
type MockCompleter struct {
	info      Info
	responses map[string]string
}

// NewMockCompleter constructs a MockCompleter.
func NewMockCompleter(name string) *MockCompleter {
	return &MockCompleter{
		info:      Info{Name: name, Provider: "mock"},
		responses: make(map[string]string),
	}
}

// AddResponse registers a deterministic canned completion for a prompt.
func (m *MockCompleter) AddResponse(prompt, response string) { m.responses[prompt] = response }

// Complete implements Completer.
func (m *MockCompleter) Complete(_ context.Context, prompt string) (string, error) {
	if resp, ok := m.responses[prompt]; ok {
		return resp, nil
	}
	return fmt.Sprintf("Mock completion for: %s", prompt), nil
}

// Info implements Completer.
func (m *MockCompleter) Info() Info { return m.info }

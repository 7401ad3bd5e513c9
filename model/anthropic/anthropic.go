// Package anthropic provides a Completer backed by the Anthropic Claude API.
package anthropic

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/medisync/medisync/model"
)

// Options configures the Anthropic completion adapter.
type Options struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string
	// System is an optional system prompt prepended to every completion.
	System string
}

// Completer wraps the Anthropic Messages API behind the model.Completer interface.
type Completer struct {
	client *anthropic.Client
	opts   Options
}

// NewCompleter creates an Anthropic completer using the official client.
func NewCompleter(optFns ...func(o *Options)) *Completer {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   1024,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := anthropic.NewClient(clientOpts...)

	return &Completer{client: &client, opts: opts}
}

// NewCompleterFromClient creates an Anthropic completer from an existing client.
func NewCompleterFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Completer {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   1024,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Completer{client: client, opts: opts}
}

// Complete implements model.Completer with a single non-streaming call.
func (c *Completer) Complete(ctx context.Context, prompt string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:       c.opts.Model,
		MaxTokens:   c.opts.MaxTokens,
		Temperature: anthropic.Float(c.opts.Temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if c.opts.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: c.opts.System}}
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic api error: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.AsText().Text)
		}
	}
	return sb.String(), nil
}

// Info implements model.Completer.
func (c *Completer) Info() model.Info {
	return model.Info{Name: string(c.opts.Model), Provider: "anthropic"}
}

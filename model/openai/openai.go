// Package openai provides a Completer backed by the OpenAI Chat Completions API.
package openai

import (
	"context"
	"fmt"

	"github.com/medisync/medisync/model"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Options configures the OpenAI completion adapter. Fields mirror a subset of
// Chat Completion parameters intentionally kept small.
type Options struct {
	Model               openai.ChatModel
	Temperature         float64
	MaxCompletionTokens int64
	APIKey              string
	// System is an optional system prompt prepended to every completion.
	System string
}

// Completer wraps the OpenAI Chat Completions API behind the model.Completer interface.
type Completer struct {
	client *openai.Client
	opts   Options
}

// NewCompleter creates an OpenAI completer using the official client.
func NewCompleter(optFns ...func(o *Options)) *Completer {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 1024,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := openai.NewClient(clientOpts...)

	return &Completer{client: &client, opts: opts}
}

// NewCompleterFromClient creates an OpenAI completer from an existing client.
func NewCompleterFromClient(client *openai.Client, optFns ...func(o *Options)) *Completer {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 1024,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Completer{client: client, opts: opts}
}

// Complete implements model.Completer with a single non-streaming call.
func (c *Completer) Complete(ctx context.Context, prompt string) (string, error) {
	var messages []openai.ChatCompletionMessageParamUnion
	if c.opts.System != "" {
		messages = append(messages, openai.SystemMessage(c.opts.System))
	}
	messages = append(messages, openai.UserMessage(prompt))

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:               c.opts.Model,
		Messages:            messages,
		Temperature:         openai.Float(c.opts.Temperature),
		MaxCompletionTokens: openai.Int(c.opts.MaxCompletionTokens),
	})
	if err != nil {
		return "", fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// Info implements model.Completer.
func (c *Completer) Info() model.Info {
	return model.Info{Name: string(c.opts.Model), Provider: "openai"}
}

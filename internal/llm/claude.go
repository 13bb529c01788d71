package llm

import (
	"context"
	"fmt"
	"os"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultMaxTokens = 1024

type claudeBackend struct {
	client    anthropic.Client
	modelName string
}

// NewClaude builds a Claude client on the Anthropic Messages API. The model
// defaults to Claude Sonnet 4.5 and can be overridden with ANTHROPIC_MODEL.
func NewClaude(apiKey string) Client {
	model := os.Getenv("ANTHROPIC_MODEL")
	if model == "" {
		model = string(anthropic.ModelClaudeSonnet4_5_20250929)
	}
	return newResilientClient(&claudeBackend{
		client:    anthropic.NewClient(option.WithAPIKey(apiKey)),
		modelName: model,
	})
}

func (c *claudeBackend) name() Provider { return ProviderClaude }
func (c *claudeBackend) model() string  { return c.modelName }

func (c *claudeBackend) invoke(ctx context.Context, prompt string) (string, error) {
	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.modelName),
		MaxTokens: defaultMaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewTextBlock(prompt),
			),
		},
	})
	if err != nil {
		return "", fmt.Errorf("claude api error: %w", err)
	}

	if len(message.Content) == 0 {
		return "", fmt.Errorf("claude api returned empty response")
	}
	textBlock, ok := message.Content[0].AsAny().(anthropic.TextBlock)
	if !ok {
		return "", fmt.Errorf("claude api returned unexpected response type")
	}
	return textBlock.Text, nil
}

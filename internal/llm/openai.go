package llm

import (
	"context"
	"fmt"
	"os"

	openai "github.com/sashabaranov/go-openai"
)

const defaultOpenAIModel = "gpt-4o-mini"

type openaiBackend struct {
	client    *openai.Client
	modelName string
}

// NewOpenAI builds an OpenAI client on the Chat Completions API. The model
// defaults to gpt-4o-mini and can be overridden with OPENAI_MODEL.
func NewOpenAI(apiKey string) Client {
	model := os.Getenv("OPENAI_MODEL")
	if model == "" {
		model = defaultOpenAIModel
	}
	return newResilientClient(&openaiBackend{
		client:    openai.NewClient(apiKey),
		modelName: model,
	})
}

func (o *openaiBackend) name() Provider { return ProviderOpenAI }
func (o *openaiBackend) model() string  { return o.modelName }

func (o *openaiBackend) invoke(ctx context.Context, prompt string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.modelName,
		Messages: []openai.ChatCompletionMessage{{
			Role:    openai.ChatMessageRoleUser,
			Content: prompt,
		}},
	})
	if err != nil {
		return "", fmt.Errorf("openai api error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai api returned empty response")
	}
	return resp.Choices[0].Message.Content, nil
}

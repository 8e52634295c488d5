package qa

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"videoChat/config"
)

// generationTimeout bounds every call to the language model. A timeout is
// treated like any other generation failure: silent fallback, no retry.
const generationTimeout = 60 * time.Second

// Generator is the external answer-generation capability. May fail or time
// out; failure is never fatal to the caller.
type Generator interface {
	Generate(ctx context.Context, instruction, content string) (string, error)
}

// OpenAIGenerator answers through an OpenAI-compatible chat completion
// endpoint with a low temperature for grounded answers.
type OpenAIGenerator struct {
	cli     *openai.Client
	model   string
	timeout time.Duration
}

func NewOpenAIGenerator(cfg *config.Config) *OpenAIGenerator {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return &OpenAIGenerator{
		cli:     openai.NewClientWithConfig(clientConfig),
		model:   cfg.ChatModel,
		timeout: generationTimeout,
	}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, instruction, content string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: instruction},
			{Role: openai.ChatMessageRoleUser, Content: content},
		},
		MaxTokens:   1000,
		Temperature: 0.1,
	}
	resp, err := g.cli.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("generation API call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no generation response received")
	}
	// Returned untouched; the caller decides what a usable answer is.
	return resp.Choices[0].Message.Content, nil
}

package openai

import (
	"context"
	"errors"

	"github.com/sashabaranov/go-openai"
	"github.com/w-h-a/lio/generator"
)

const provider = "openai"

type openaiGenerator struct {
	options generator.Options
	client  *openai.Client
}

func (g *openaiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return generator.Observe(ctx, provider, g.options.Model, func(ctx context.Context) (string, generator.Usage, error) {
		rsp, err := g.client.CreateChatCompletion(ctx, g.request(prompt))
		if err != nil {
			return "", generator.Usage{}, err
		}

		usage := generator.Usage{
			InputTokens:  int64(rsp.Usage.PromptTokens),
			OutputTokens: int64(rsp.Usage.CompletionTokens),
		}

		if len(rsp.Choices) == 0 {
			return "", usage, errors.New("no choices returned")
		}

		return rsp.Choices[0].Message.Content, usage, nil
	})
}

func (g *openaiGenerator) request(prompt string) openai.ChatCompletionRequest {
	msgs := make([]openai.ChatCompletionMessage, 0, 2)
	if len(g.options.System) > 0 {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: g.options.System,
		})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	return openai.ChatCompletionRequest{
		Model:       g.options.Model,
		MaxTokens:   g.options.MaxTokens,
		Temperature: g.options.Temperature,
		Messages:    msgs,
	}
}

func NewGenerator(opts ...generator.Option) generator.Generator {
	options := generator.NewOptions(opts...)

	if len(options.Model) == 0 {
		options.Model = openai.GPT4oMini
	}

	cfg := openai.DefaultConfig(options.ApiKey)
	if baseURL, ok := BaseURLFrom(options.Context); ok {
		cfg.BaseURL = baseURL
	}

	return &openaiGenerator{
		options: options,
		client:  openai.NewClientWithConfig(cfg),
	}
}

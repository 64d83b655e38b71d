package anthropic

import (
	"context"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/w-h-a/lio/generator"
)

const provider = "anthropic"

type anthropicGenerator struct {
	options generator.Options
	client  *anthropic.Client
}

func (g *anthropicGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return generator.Observe(ctx, provider, g.options.Model, func(ctx context.Context) (string, generator.Usage, error) {
		rsp, err := g.client.Messages.New(ctx, g.request(prompt))
		if err != nil {
			return "", generator.Usage{}, err
		}

		var b strings.Builder
		for _, content := range rsp.Content {
			if text, ok := content.AsAny().(anthropic.TextBlock); ok {
				b.WriteString(text.Text)
			}
		}

		return b.String(), generator.Usage{
			InputTokens:  rsp.Usage.InputTokens,
			OutputTokens: rsp.Usage.OutputTokens,
		}, nil
	})
}

func (g *anthropicGenerator) request(prompt string) anthropic.MessageNewParams {
	req := anthropic.MessageNewParams{
		Model:       anthropic.Model(g.options.Model),
		MaxTokens:   int64(g.options.MaxTokens),
		Temperature: anthropic.Float(float64(g.options.Temperature)),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}

	if len(g.options.System) > 0 {
		req.System = []anthropic.TextBlockParam{{Text: g.options.System}}
	}

	return req
}

func NewGenerator(opts ...generator.Option) generator.Generator {
	options := generator.NewOptions(opts...)

	if len(options.Model) == 0 {
		options.Model = "claude-3-5-haiku-latest"
	}

	client := anthropic.NewClient(
		anthropicopt.WithAPIKey(options.ApiKey),
	)

	return &anthropicGenerator{
		options: options,
		client:  &client,
	}
}

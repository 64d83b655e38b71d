package google

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/w-h-a/lio/generator"
	genaiopt "google.golang.org/api/option"
)

const provider = "google"

type googleGenerator struct {
	options generator.Options
	client  *genai.Client
}

func (g *googleGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return generator.Observe(ctx, provider, g.options.Model, func(ctx context.Context) (string, generator.Usage, error) {
		rsp, err := g.model().GenerateContent(ctx, genai.Text(prompt))
		if err != nil {
			return "", generator.Usage{}, err
		}

		var usage generator.Usage
		if rsp.UsageMetadata != nil {
			usage.InputTokens = int64(rsp.UsageMetadata.PromptTokenCount)
			usage.OutputTokens = int64(rsp.UsageMetadata.CandidatesTokenCount)
		}

		if len(rsp.Candidates) == 0 || rsp.Candidates[0].Content == nil {
			return "", usage, nil
		}

		var b strings.Builder
		for _, part := range rsp.Candidates[0].Content.Parts {
			if text, ok := part.(genai.Text); ok {
				b.WriteString(string(text))
			}
		}

		return b.String(), usage, nil
	})
}

func (g *googleGenerator) model() *genai.GenerativeModel {
	model := g.client.GenerativeModel(g.options.Model)
	model.SetMaxOutputTokens(int32(g.options.MaxTokens))
	model.SetTemperature(g.options.Temperature)

	if len(g.options.System) > 0 {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(g.options.System)},
		}
	}

	return model
}

func NewGenerator(opts ...generator.Option) generator.Generator {
	options := generator.NewOptions(opts...)

	if len(options.Model) == 0 {
		options.Model = "gemini-1.5-flash"
	}

	client, err := genai.NewClient(
		options.Context,
		genaiopt.WithAPIKey(options.ApiKey),
	)
	if err != nil {
		detail := "failed to initialize google generator"
		slog.ErrorContext(options.Context, detail, "error", err)
		panic(detail)
	}

	return &googleGenerator{
		options: options,
		client:  client,
	}
}

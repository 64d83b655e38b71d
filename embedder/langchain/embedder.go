package langchain

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/w-h-a/lio/embedder"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type langchainEmbedder struct {
	options embedder.Options
	client  embeddings.Embedder
}

func (e *langchainEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := e.client.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", embedder.ErrEmbedding, err)
	}
	return vec, nil
}

func (e *langchainEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	vectors, err := e.client.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", embedder.ErrEmbedding, err)
	}

	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts", embedder.ErrEmbedding, len(vectors), len(texts))
	}

	return vectors, nil
}

// NewEmbedder talks to any OpenAI-compatible embeddings endpoint. Set the
// base url with WithBaseURL to target a self-hosted server.
func NewEmbedder(opts ...embedder.Option) embedder.Embedder {
	options := embedder.NewOptions(opts...)

	if len(options.Model) == 0 {
		options.Model = "text-embedding-3-small"
	}

	llmOpts := []openai.Option{
		openai.WithToken(options.ApiKey),
		openai.WithEmbeddingModel(options.Model),
		openai.WithHTTPClient(&http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}),
	}

	if baseURL, ok := BaseURLFrom(options.Context); ok {
		llmOpts = append(llmOpts, openai.WithBaseURL(baseURL))
	}

	llm, err := openai.New(llmOpts...)
	if err != nil {
		detail := "failed to initialize model for langchain embedder"
		slog.ErrorContext(options.Context, detail, "error", err)
		panic(detail)
	}

	client, err := embeddings.NewEmbedder(llm)
	if err != nil {
		detail := "failed to initialize langchain embedder"
		slog.ErrorContext(options.Context, detail, "error", err)
		panic(detail)
	}

	return &langchainEmbedder{
		options: options,
		client:  client,
	}
}

package generator

import (
	"context"
	"fmt"
	"time"

	"github.com/w-h-a/lio/internal/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("github.com/w-h-a/lio/generator")

type Usage struct {
	InputTokens  int64
	OutputTokens int64
}

// Observe runs one provider call inside a span and records its latency and
// token usage. Errors come back wrapped in ErrGeneration.
func Observe(ctx context.Context, provider, model string, call func(ctx context.Context) (string, Usage, error)) (string, error) {
	ctx, span := tracer.Start(ctx, "generator.Generate")
	defer span.End()

	span.SetAttributes(
		attribute.String("gen.provider", provider),
		attribute.String("gen.model", model),
	)

	start := time.Now()
	text, usage, err := call(ctx)
	if err == nil && len(text) == 0 {
		err = fmt.Errorf("no response from %s", provider)
	}

	metrics.GenerationDuration.WithLabelValues(provider, metrics.Status(err)).Observe(time.Since(start).Seconds())
	metrics.GenerationTokens.WithLabelValues(provider, "input").Add(float64(usage.InputTokens))
	metrics.GenerationTokens.WithLabelValues(provider, "output").Add(float64(usage.OutputTokens))

	span.SetAttributes(
		attribute.Int64("gen.input_tokens", usage.InputTokens),
		attribute.Int64("gen.output_tokens", usage.OutputTokens),
	)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("%w: %w", ErrGeneration, err)
	}

	return text, nil
}

package main

import (
	"fmt"

	"github.com/w-h-a/lio/embedder"
	googleembedder "github.com/w-h-a/lio/embedder/google"
	"github.com/w-h-a/lio/embedder/hash"
	"github.com/w-h-a/lio/embedder/langchain"
	openaiembedder "github.com/w-h-a/lio/embedder/openai"
	"github.com/w-h-a/lio/generator"
	anthropicgenerator "github.com/w-h-a/lio/generator/anthropic"
	googlegenerator "github.com/w-h-a/lio/generator/google"
	openaigenerator "github.com/w-h-a/lio/generator/openai"
	"github.com/w-h-a/lio/internal/config"
	"github.com/w-h-a/lio/queue"
	asynqqueue "github.com/w-h-a/lio/queue/asynq"
	"github.com/w-h-a/lio/queue/memory"
	"github.com/w-h-a/lio/storer"
	memorystorer "github.com/w-h-a/lio/storer/memory"
	"github.com/w-h-a/lio/storer/neo4j"
	"github.com/w-h-a/lio/storer/postgres"
	"github.com/w-h-a/lio/storer/qdrant"
	"go.uber.org/zap"
)

func newStorer(cfg config.IndexConfig) storer.Storer {
	opts := []storer.Option{
		storer.WithLocation(cfg.Location),
		storer.WithApiKey(cfg.ApiKey),
	}

	switch cfg.Store {
	case "qdrant":
		return qdrant.NewStorer(opts...)
	case "postgres":
		return postgres.NewStorer(opts...)
	case "neo4j":
		return neo4j.NewStorer(opts...)
	default:
		return memorystorer.NewStorer(opts...)
	}
}

func newEmbedder(cfg config.EmbedderConfig, dimension int) embedder.Embedder {
	opts := []embedder.Option{
		embedder.WithApiKey(cfg.ApiKey),
		embedder.WithModel(cfg.Model),
		embedder.WithDimension(dimension),
	}

	switch cfg.Provider {
	case "openai":
		return openaiembedder.NewEmbedder(opts...)
	case "google":
		return googleembedder.NewEmbedder(opts...)
	case "compatible":
		return langchain.NewEmbedder(append(opts, langchain.WithBaseURL(cfg.BaseURL))...)
	default:
		return hash.NewEmbedder(opts...)
	}
}

// newRegistry registers every provider that has credentials. Each client is
// built once here and shared by the sessions that pick it.
func newRegistry(cfg config.GeneratorConfig, logger *zap.Logger) *generator.Registry {
	registry := generator.NewRegistry(cfg.Default)

	constructors := map[string]func(...generator.Option) generator.Generator{
		"openai":    openaigenerator.NewGenerator,
		"anthropic": anthropicgenerator.NewGenerator,
		"google":    googlegenerator.NewGenerator,
	}

	for name, construct := range constructors {
		creds := cfg.Credentials(name)
		if len(creds.ApiKey) == 0 {
			continue
		}

		gen := construct(
			generator.WithApiKey(creds.ApiKey),
			generator.WithModel(creds.Model),
			generator.WithMaxTokens(cfg.MaxTokens),
			generator.WithTemperature(cfg.Temperature),
			generator.WithSystem(cfg.System),
		)

		registry.Register(name, func() (generator.Generator, error) {
			return gen, nil
		})
	}

	logger.Info("generation providers", zap.Strings("available", registry.Choices()), zap.String("default", registry.Default()))

	return registry
}

func newQueue(cfg *config.Config, tracker *queue.Tracker, logger *zap.Logger) queue.Queue {
	opts := []queue.Option{
		queue.WithTracker(tracker),
		queue.WithLogger(logger),
		queue.WithName(cfg.Queue.Name),
		queue.WithConcurrency(cfg.Queue.Concurrency),
		queue.WithMaxRetry(cfg.Queue.MaxRetry),
		queue.WithTimeout(cfg.Queue.Timeout),
		queue.WithBackoff(cfg.Queue.Backoff),
	}

	if len(cfg.Redis.Addr) > 0 {
		logger.Info("using redis queue", zap.String("addr", cfg.Redis.Addr))
		opts = append(opts, asynqqueue.WithRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB))
		return asynqqueue.NewQueue(opts...)
	}

	logger.Info("using in-process queue")

	return memory.NewQueue(opts...)
}

func describe(cfg *config.Config) string {
	return fmt.Sprintf("store=%s embedder=%s generator=%s", cfg.Index.Store, cfg.Embedder.Provider, cfg.Generator.Default)
}

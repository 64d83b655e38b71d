package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/w-h-a/lio/index"
	"github.com/w-h-a/lio/storer"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, ":8000", cfg.Server.Addr)
	require.Equal(t, "memory", cfg.Index.Store)
	require.Equal(t, "documents", cfg.Index.Collection)
	require.Equal(t, 384, cfg.Index.VectorSize)
	require.Equal(t, 50, cfg.Index.BatchSize)
	require.InDelta(t, 0.7, cfg.Index.SimilarityThreshold, 1e-9)
	require.Equal(t, 50, cfg.Chat.ChunkSize)
	require.Equal(t, 5, cfg.Chat.TopK)
	require.Equal(t, 500, cfg.Chat.ContextChars)
	require.Nil(t, cfg.Chat.MinScore)
	require.Equal(t, 1024, cfg.Session.MaxSessions)
	require.Equal(t, 10*time.Minute, cfg.Queue.Timeout)
	require.Equal(t, "hash", cfg.Embedder.Provider)

	coll := cfg.IndexCollection()
	require.Equal(t, storer.Cosine, coll.Distance)
	require.NoError(t, coll.Validate())
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lio.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9000"
index:
  store: qdrant
  location: http://localhost:6333
  vector_size: 1536
  distance: dot
generator:
  default: anthropic
  anthropic:
    model: claude-3-5-haiku-latest
session:
  idle_ttl: 30m
`), 0o644))

	t.Setenv("LIO_GENERATOR_ANTHROPIC_API_KEY", "sk-test")
	t.Setenv("LIO_CHAT_TOP_K", "8")

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, ":9000", cfg.Server.Addr)
	require.Equal(t, "qdrant", cfg.Index.Store)
	require.Equal(t, 1536, cfg.Index.VectorSize)
	require.Equal(t, storer.Dot, cfg.IndexCollection().Distance)
	require.Equal(t, "sk-test", cfg.Generator.Credentials("anthropic").ApiKey)
	require.Equal(t, "claude-3-5-haiku-latest", cfg.Generator.Anthropic.Model)
	require.Equal(t, 8, cfg.Chat.TopK)
	require.Equal(t, 30*time.Minute, cfg.Session.IdleTTL)

	require.NoError(t, cfg.Validate())
}

func TestLoadMinScoreFromEnv(t *testing.T) {
	t.Setenv("LIO_CHAT_MIN_SCORE", "-0.2")

	cfg, err := Load("")
	require.NoError(t, err)
	require.NotNil(t, cfg.Chat.MinScore)
	require.InDelta(t, -0.2, *cfg.Chat.MinScore, 1e-6)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, index.ErrConfig)
}

func TestValidateCollectsProblems(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.Index.Store = "sqlite"
	cfg.Index.VectorSize = 0
	cfg.Embedder.Provider = "openai"
	cfg.Chat.ChunkSize = 0

	err = cfg.Validate()
	require.ErrorIs(t, err, index.ErrConfig)
	require.ErrorContains(t, err, "index.store must be one of")
	require.ErrorContains(t, err, "vector size must be positive")
	require.ErrorContains(t, err, "embedder.api_key is required for openai")
	require.ErrorContains(t, err, "generator.openai.api_key is required")
	require.ErrorContains(t, err, "chat.chunk_size must be positive")
}

func TestValidateBackendSpecificRules(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.Generator.OpenAI.ApiKey = "sk-test"
	cfg.Index.Store = "neo4j"
	cfg.Index.Location = "neo4j://localhost:7687"
	cfg.Index.Distance = "dot"
	cfg.Embedder.Provider = "compatible"

	err = cfg.Validate()
	require.ErrorIs(t, err, index.ErrConfig)
	require.ErrorContains(t, err, "not supported by neo4j")
	require.ErrorContains(t, err, "embedder.base_url is required for compatible")

	cfg.Index.Distance = "cosine"
	cfg.Embedder.BaseURL = "http://localhost:11434/v1"
	require.NoError(t, cfg.Validate())
}

package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/w-h-a/lio/index"
	"github.com/w-h-a/lio/storer"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Queue     QueueConfig     `mapstructure:"queue"`
	Index     IndexConfig     `mapstructure:"index"`
	Embedder  EmbedderConfig  `mapstructure:"embedder"`
	Generator GeneratorConfig `mapstructure:"generator"`
	Session   SessionConfig   `mapstructure:"session"`
	Chat      ChatConfig      `mapstructure:"chat"`
	Pool      PoolConfig      `mapstructure:"pool"`
	Upload    UploadConfig    `mapstructure:"upload"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json, console
	Output string `mapstructure:"output"`
}

// RedisConfig selects the asynq queue when Addr is set.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type QueueConfig struct {
	Name        string        `mapstructure:"name"`
	Concurrency int           `mapstructure:"concurrency"`
	MaxRetry    int           `mapstructure:"max_retry"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Backoff     time.Duration `mapstructure:"backoff"`
}

type IndexConfig struct {
	Store               string  `mapstructure:"store"` // memory, qdrant, postgres, neo4j
	Location            string  `mapstructure:"location"`
	ApiKey              string  `mapstructure:"api_key"`
	Collection          string  `mapstructure:"collection"`
	VectorSize          int     `mapstructure:"vector_size"`
	Distance            string  `mapstructure:"distance"`
	EmbeddingModel      string  `mapstructure:"embedding_model"`
	BatchSize           int     `mapstructure:"batch_size"`
	SimilarityThreshold float64 `mapstructure:"similarity_threshold"`
	Reset               bool    `mapstructure:"reset"`
}

type EmbedderConfig struct {
	Provider string `mapstructure:"provider"` // hash, openai, google, compatible
	ApiKey   string `mapstructure:"api_key"`
	Model    string `mapstructure:"model"`
	BaseURL  string `mapstructure:"base_url"`
}

type ProviderConfig struct {
	ApiKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type GeneratorConfig struct {
	Default     string         `mapstructure:"default"`
	MaxTokens   int            `mapstructure:"max_tokens"`
	Temperature float32        `mapstructure:"temperature"`
	System      string         `mapstructure:"system"`
	OpenAI      ProviderConfig `mapstructure:"openai"`
	Anthropic   ProviderConfig `mapstructure:"anthropic"`
	Google      ProviderConfig `mapstructure:"google"`
}

type SessionConfig struct {
	MaxSessions   int           `mapstructure:"max_sessions"`
	IdleTTL       time.Duration `mapstructure:"idle_ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

type ChatConfig struct {
	ChunkSize    int      `mapstructure:"chunk_size"`
	TopK         int      `mapstructure:"top_k"`
	ContextChars int      `mapstructure:"context_chars"`
	MinScore     *float32 `mapstructure:"min_score"` // unset disables the cutoff
}

type PoolConfig struct {
	Size int `mapstructure:"size"`
}

type UploadConfig struct {
	Dir        string `mapstructure:"dir"`
	MaxBytes   int64  `mapstructure:"max_bytes"`
	ChunkChars int    `mapstructure:"chunk_chars"`
}

var (
	stores    = []string{"memory", "qdrant", "postgres", "neo4j"}
	embedders = []string{"hash", "openai", "google", "compatible"}
	providers = []string{"openai", "anthropic", "google"}
)

// Validate reports every problem at once wrapped in index.ErrConfig.
func (c *Config) Validate() error {
	var problems []error

	if len(c.Server.Addr) == 0 {
		problems = append(problems, errors.New("server.addr is required"))
	}

	if !slices.Contains(stores, c.Index.Store) {
		problems = append(problems, fmt.Errorf("index.store must be one of %s", strings.Join(stores, ", ")))
	}

	if c.Index.Store != "memory" && len(c.Index.Location) == 0 {
		problems = append(problems, fmt.Errorf("index.location is required for %s", c.Index.Store))
	}

	if err := c.IndexCollection().Validate(); err != nil {
		problems = append(problems, err)
	}

	if !slices.Contains(embedders, c.Embedder.Provider) {
		problems = append(problems, fmt.Errorf("embedder.provider must be one of %s", strings.Join(embedders, ", ")))
	}

	switch c.Embedder.Provider {
	case "hash":
	case "compatible":
		if len(c.Embedder.BaseURL) == 0 {
			problems = append(problems, errors.New("embedder.base_url is required for compatible"))
		}
	default:
		if len(c.Embedder.ApiKey) == 0 {
			problems = append(problems, fmt.Errorf("embedder.api_key is required for %s", c.Embedder.Provider))
		}
	}

	if c.Index.Store == "neo4j" && c.IndexCollection().Distance == storer.Dot {
		problems = append(problems, errors.New("index.distance dot is not supported by neo4j"))
	}

	if !slices.Contains(providers, c.Generator.Default) {
		problems = append(problems, fmt.Errorf("generator.default must be one of %s", strings.Join(providers, ", ")))
	} else if len(c.Generator.Credentials(c.Generator.Default).ApiKey) == 0 {
		problems = append(problems, fmt.Errorf("generator.%s.api_key is required for the default provider", c.Generator.Default))
	}

	if c.Chat.ChunkSize <= 0 {
		problems = append(problems, errors.New("chat.chunk_size must be positive"))
	}

	if c.Chat.TopK <= 0 {
		problems = append(problems, errors.New("chat.top_k must be positive"))
	}

	if c.Session.MaxSessions < 0 {
		problems = append(problems, errors.New("session.max_sessions must not be negative"))
	}

	if len(c.Upload.Dir) == 0 {
		problems = append(problems, errors.New("upload.dir is required"))
	}

	if len(problems) == 0 {
		return nil
	}

	return fmt.Errorf("%w: %w", index.ErrConfig, errors.Join(problems...))
}

// IndexCollection maps the index section onto a collection config.
func (c *Config) IndexCollection() index.CollectionConfig {
	distance, err := storer.ParseDistance(c.Index.Distance)
	if err != nil {
		distance = storer.Distance(c.Index.Distance)
	}

	return index.CollectionConfig{
		Name:                c.Index.Collection,
		VectorSize:          c.Index.VectorSize,
		Distance:            distance,
		EmbeddingModel:      c.Index.EmbeddingModel,
		BatchSize:           c.Index.BatchSize,
		SimilarityThreshold: c.Index.SimilarityThreshold,
	}
}

// Credentials returns the api key and model configured for a provider.
func (g GeneratorConfig) Credentials(provider string) ProviderConfig {
	switch provider {
	case "openai":
		return g.OpenAI
	case "anthropic":
		return g.Anthropic
	case "google":
		return g.Google
	}
	return ProviderConfig{}
}

func setDefaults(v *viper.Viper) {
	def := index.DefaultConfig()

	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "stdout")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("queue.name", "ingest")
	v.SetDefault("queue.concurrency", 4)
	v.SetDefault("queue.max_retry", 3)
	v.SetDefault("queue.timeout", 10*time.Minute)
	v.SetDefault("queue.backoff", time.Second)

	v.SetDefault("index.store", "memory")
	v.SetDefault("index.location", "")
	v.SetDefault("index.api_key", "")
	v.SetDefault("index.collection", def.Name)
	v.SetDefault("index.vector_size", def.VectorSize)
	v.SetDefault("index.distance", string(def.Distance))
	v.SetDefault("index.embedding_model", def.EmbeddingModel)
	v.SetDefault("index.batch_size", def.BatchSize)
	v.SetDefault("index.similarity_threshold", def.SimilarityThreshold)
	v.SetDefault("index.reset", false)

	v.SetDefault("embedder.provider", "hash")
	v.SetDefault("embedder.api_key", "")
	v.SetDefault("embedder.model", "")
	v.SetDefault("embedder.base_url", "")

	v.SetDefault("generator.default", "openai")
	v.SetDefault("generator.max_tokens", 300)
	v.SetDefault("generator.temperature", 0.7)
	v.SetDefault("generator.system", "You answer questions about the user's documents. Be concise.")
	for _, p := range providers {
		v.SetDefault("generator."+p+".api_key", "")
		v.SetDefault("generator."+p+".model", "")
	}

	v.SetDefault("session.max_sessions", 1024)
	v.SetDefault("session.idle_ttl", time.Duration(0))
	v.SetDefault("session.sweep_interval", time.Minute)

	v.SetDefault("chat.chunk_size", 50)
	v.SetDefault("chat.top_k", 5)
	v.SetDefault("chat.context_chars", 500)

	v.SetDefault("pool.size", 0)

	v.SetDefault("upload.dir", "uploads")
	v.SetDefault("upload.max_bytes", 32<<20)
	v.SetDefault("upload.chunk_chars", 2000)
}

// Load reads defaults, then the optional YAML file at path, then LIO_*
// environment overrides such as LIO_INDEX_STORE.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if len(path) > 0 {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("%w: failed to read %s: %w", index.ErrConfig, path, err)
		}
	}

	v.SetEnvPrefix("LIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// no default: only an explicit value turns the cutoff on
	if err := v.BindEnv("chat.min_score"); err != nil {
		return nil, fmt.Errorf("%w: %w", index.ErrConfig, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to decode: %w", index.ErrConfig, err)
	}

	return &cfg, nil
}

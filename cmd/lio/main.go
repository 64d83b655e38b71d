package main

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/w-h-a/lio"
	"github.com/w-h-a/lio/extractor/file"
	"github.com/w-h-a/lio/index"
	"github.com/w-h-a/lio/internal/config"
	handler "github.com/w-h-a/lio/internal/handler/http"
	"github.com/w-h-a/lio/internal/logger"
	"github.com/w-h-a/lio/internal/pool"
	"github.com/w-h-a/lio/queue"
	"github.com/w-h-a/lio/server"
	httpserver "github.com/w-h-a/lio/server/http"
	"go.uber.org/zap"
)

var (
	cli struct {
		Config   string `help:"Path to a YAML config file" default:"" type:"path"`
		Env      string `help:"Path to a dotenv file loaded before config" default:".env"`
		Addr     string `help:"Listen address, overrides server.addr" default:""`
		LogLevel string `help:"Log level, overrides log.level" default:""`
	}
)

func main() {
	// Parse inputs
	_ = kong.Parse(&cli)

	if err := godotenv.Load(cli.Env); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("failed to load %s: %v", cli.Env, err)
	}

	cfg, err := config.Load(cli.Config)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if len(cli.Addr) > 0 {
		cfg.Server.Addr = cli.Addr
	}
	if len(cli.LogLevel) > 0 {
		cfg.Log.Level = cli.LogLevel
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	lg, err := logger.New(cfg.Log.Level, cfg.Log.Format, cfg.Log.Output)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer lg.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, lg); err != nil {
		lg.Fatal("lio stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, lg *zap.Logger) error {
	lg.Info("starting lio", zap.String("stack", describe(cfg)))

	// Create the blocking-call pool shared by embedding, store, and generation
	p := pool.New(cfg.Pool.Size)

	// Create the index
	emb := newEmbedder(cfg.Embedder, cfg.Index.VectorSize)

	idx := index.New(
		newStorer(cfg.Index),
		emb,
		index.WithPool(p),
		index.WithLogger(lg.Named("index")),
	)

	open := idx.Open
	if cfg.Index.Reset {
		open = idx.CreateOrReset
	}

	if err := open(ctx, cfg.IndexCollection()); err != nil {
		return err
	}

	// Create the queue and facade
	tracker := queue.NewTracker(0)

	opts := []lio.Option{
		lio.WithPool(p),
		lio.WithLogger(lg),
		lio.WithExtractor(file.NewExtractor(cfg.Upload.MaxBytes)),
		lio.WithMaxSessions(cfg.Session.MaxSessions),
		lio.WithIdleTTL(cfg.Session.IdleTTL, cfg.Session.SweepInterval),
		lio.WithChunkSize(cfg.Chat.ChunkSize),
		lio.WithTopK(cfg.Chat.TopK),
		lio.WithContextChars(cfg.Chat.ContextChars),
		lio.WithChunkChars(cfg.Upload.ChunkChars),
	}
	if cfg.Chat.MinScore != nil {
		opts = append(opts, lio.WithMinScore(*cfg.Chat.MinScore))
	}

	rag := lio.New(
		idx,
		emb,
		newRegistry(cfg.Generator, lg),
		newQueue(cfg, tracker, lg.Named("queue")),
		tracker,
		opts...,
	)

	if err := rag.Start(ctx); err != nil {
		return err
	}
	defer rag.Close()

	// Create the http server
	h := handler.New(
		rag,
		handler.WithUploadDir(cfg.Upload.Dir),
		handler.WithMaxUpload(cfg.Upload.MaxBytes),
		handler.WithLogger(lg.Named("http")),
	)

	srv := httpserver.NewServer(
		server.WithName("lio"),
		server.WithAddress(cfg.Server.Addr),
		server.WithReadTimeout(cfg.Server.ReadTimeout),
		httpserver.WithMiddleware(handler.Logging(lg.Named("http")), handler.CORS),
	)

	if err := srv.Handle(h.Routes()); err != nil {
		return err
	}

	if err := srv.Start(); err != nil {
		return err
	}

	lg.Info("listening", zap.String("addr", srv.Options().Address))

	<-ctx.Done()

	lg.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	return srv.Stop(shutdownCtx)
}

package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/w-h-a/lio"
	"github.com/w-h-a/lio/embedder"
	"github.com/w-h-a/lio/embedder/hash"
	openaiembedder "github.com/w-h-a/lio/embedder/openai"
	"github.com/w-h-a/lio/extractor/file"
	"github.com/w-h-a/lio/generator"
	anthropicgenerator "github.com/w-h-a/lio/generator/anthropic"
	openaigenerator "github.com/w-h-a/lio/generator/openai"
	"github.com/w-h-a/lio/index"
	"github.com/w-h-a/lio/queue"
	"github.com/w-h-a/lio/queue/memory"
	memorystorer "github.com/w-h-a/lio/storer/memory"
)

var (
	cfg struct {
		// Embedder config
		EmbedderKey string `help:"API Key for the OpenAI embedder; empty uses the offline hash embedder" default:""`
		Embedder    string `help:"Model identifier for embedder" default:"text-embedding-3-small"`
		Dimension   int    `help:"Vector size of the index" default:"384"`

		// Generator config
		Provider     string `help:"Generation provider for the session" default:"openai" enum:"openai,anthropic"`
		GeneratorKey string `help:"API Key for the generator" default:""`
		Generator    string `help:"Model identifier for generator" default:""`

		// Session config
		AssetId string `help:"Asset the session is bound to" default:"quickstart"`
	}
)

func main() {
	// Parse inputs
	_ = kong.Parse(&cfg)
	ctx := context.Background()

	// Create embedder and in-memory index
	var emb embedder.Embedder
	if len(cfg.EmbedderKey) > 0 {
		emb = openaiembedder.NewEmbedder(
			embedder.WithApiKey(cfg.EmbedderKey),
			embedder.WithModel(cfg.Embedder),
			embedder.WithDimension(cfg.Dimension),
		)
	} else {
		emb = hash.NewEmbedder(embedder.WithDimension(cfg.Dimension))
	}

	idx := index.New(memorystorer.NewStorer(), emb)

	coll := index.DefaultConfig()
	coll.VectorSize = cfg.Dimension
	if err := idx.CreateOrReset(ctx, coll); err != nil {
		log.Fatalf("❌ failed to create index: %v", err)
	}

	// Create the session's model
	opts := []generator.Option{
		generator.WithApiKey(cfg.GeneratorKey),
		generator.WithModel(cfg.Generator),
	}

	registry := generator.NewRegistry(cfg.Provider)
	registry.Register("openai", func() (generator.Generator, error) {
		return openaigenerator.NewGenerator(opts...), nil
	})
	registry.Register("anthropic", func() (generator.Generator, error) {
		return anthropicgenerator.NewGenerator(opts...), nil
	})

	// Create the facade
	tracker := queue.NewTracker(0)

	rag := lio.New(
		idx,
		emb,
		registry,
		memory.NewQueue(queue.WithTracker(tracker)),
		tracker,
		lio.WithExtractor(file.NewExtractor(0)),
	)
	if err := rag.Start(ctx); err != nil {
		log.Fatalf("❌ failed to start: %v", err)
	}
	defer rag.Close()

	sessionId, err := rag.StartChat(ctx, cfg.AssetId, cfg.Provider)
	if err != nil {
		log.Fatalf("❌ failed to start session: %v", err)
	}

	fmt.Println("lio quickstart. Type a message and press enter. /file <path> indexes a document.")
	fmt.Printf("✅ Started Session: %s\n", sessionId)

	reader := bufio.NewReader(os.Stdin)

	for {
		fmt.Print("> ")
		input, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println("Goodbye!")
			return
		}
		input = strings.TrimSpace(input)
		if len(input) == 0 {
			fmt.Println("Goodbye!")
			return
		}

		if path, ok := strings.CutPrefix(input, "/file "); ok {
			ingest(ctx, rag, strings.TrimSpace(path))
			continue
		}

		err = rag.SendMessage(ctx, sessionId, input, func(slice string) error {
			_, err := fmt.Print(slice)
			return err
		})
		fmt.Println()
		if err != nil {
			fmt.Println("Error generating response:", err)
		}
		fmt.Println("---")
	}
}

func ingest(ctx context.Context, rag *lio.RAG, path string) {
	jobId, err := rag.ProcessDocument(ctx, path, cfg.AssetId, nil)
	if err != nil {
		fmt.Printf("❌ Failed to queue %s: %v\n", path, err)
		return
	}

	fmt.Printf("📎 Indexing %s...\n", path)

	for {
		job, ok := rag.Job(jobId)
		if ok && (job.Status == queue.StatusSucceeded || job.Status == queue.StatusFailed) {
			if job.Status == queue.StatusFailed {
				fmt.Printf("❌ Failed to index %s: %s\n", path, job.Error)
				return
			}
			fmt.Printf("✅ Indexed %d chunk(s)\n", len(job.Outcomes))
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
}

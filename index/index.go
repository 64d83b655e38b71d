package index

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/w-h-a/lio/embedder"
	"github.com/w-h-a/lio/internal/metrics"
	"github.com/w-h-a/lio/storer"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// VectorIndex owns one collection in a vector store. Records without a
// vector are embedded before they are written.
type VectorIndex struct {
	options  Options
	store    storer.Storer
	embedder embedder.Embedder
	tracer   trace.Tracer
	config   CollectionConfig
	ready    bool
	mtx      sync.RWMutex
}

// CreateOrReset drops any existing vectors and creates the collection anew.
func (v *VectorIndex) CreateOrReset(ctx context.Context, cfg CollectionConfig) error {
	return v.init(ctx, "create_or_reset", cfg, v.store.Reset)
}

// Open attaches to the collection, creating it only when it is missing.
func (v *VectorIndex) Open(ctx context.Context, cfg CollectionConfig) error {
	return v.init(ctx, "open", cfg, v.store.Ensure)
}

func (v *VectorIndex) init(ctx context.Context, op string, cfg CollectionConfig, fn func(context.Context, storer.Collection) error) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, span := v.tracer.Start(ctx, "VectorIndex."+op)
	defer span.End()

	span.SetAttributes(
		attribute.String("collection", cfg.Name),
		attribute.Int("vector_size", cfg.VectorSize),
	)

	v.mtx.Lock()
	defer v.mtx.Unlock()

	err := v.options.Pool.Do(ctx, func(ctx context.Context) error {
		return fn(ctx, cfg.collection())
	})

	metrics.IndexOperations.WithLabelValues(op, metrics.Status(err)).Inc()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		v.options.Logger.Error("failed to initialize collection",
			zap.String("collection", cfg.Name),
			zap.String("op", op),
			zap.Error(err),
		)
		return newError(op, ErrIndexInit, err)
	}

	v.config = cfg
	v.ready = true

	v.options.Logger.Info("collection ready",
		zap.String("collection", cfg.Name),
		zap.String("op", op),
		zap.Int("vector_size", cfg.VectorSize),
		zap.String("distance", string(cfg.Distance)),
	)

	return nil
}

func (v *VectorIndex) Config() (CollectionConfig, bool) {
	v.mtx.RLock()
	defer v.mtx.RUnlock()
	return v.config, v.ready
}

// UpsertBatch writes records in chunks of at most BatchSize. The first
// failing chunk stops the batch; earlier chunks remain committed and the
// returned *BatchError says which ids landed.
func (v *VectorIndex) UpsertBatch(ctx context.Context, records []Record) error {
	cfg, ready := v.Config()
	if !ready {
		return &BatchError{Failed: ids(records), Err: newError("upsert", ErrIndexWrite, ErrNotInitialized)}
	}

	if len(records) == 0 {
		return nil
	}

	ctx, span := v.tracer.Start(ctx, "VectorIndex.UpsertBatch")
	defer span.End()

	span.SetAttributes(
		attribute.String("collection", cfg.Name),
		attribute.Int("records", len(records)),
	)

	committed := make([]string, 0, len(records))

	for start := 0; start < len(records); start += cfg.BatchSize {
		end := min(start+cfg.BatchSize, len(records))
		chunk := records[start:end]

		err := v.upsertChunk(ctx, cfg, chunk)

		metrics.IndexOperations.WithLabelValues("upsert", metrics.Status(err)).Inc()

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			v.options.Logger.Error("failed to upsert chunk",
				zap.String("collection", cfg.Name),
				zap.Int("offset", start),
				zap.Int("committed", len(committed)),
				zap.Error(err),
			)
			return &BatchError{
				Committed: committed,
				Failed:    ids(records[start:]),
				Err:       err,
			}
		}

		committed = append(committed, ids(chunk)...)
	}

	v.options.Logger.Debug("upserted records",
		zap.String("collection", cfg.Name),
		zap.Int("records", len(committed)),
	)

	return nil
}

func (v *VectorIndex) upsertChunk(ctx context.Context, cfg CollectionConfig, chunk []Record) error {
	prepared := make([]Record, len(chunk))
	copy(prepared, chunk)

	var missing []int
	var texts []string

	for i, rec := range prepared {
		if len(strings.TrimSpace(rec.Id)) == 0 {
			return newError("upsert", ErrIndexWrite, errors.New("record id is required"))
		}
		if len(rec.Kind) == 0 {
			prepared[i].Kind = KindSystem
		} else if !rec.Kind.Valid() {
			return newError("upsert", ErrIndexWrite, fmt.Errorf("record %s: unknown kind %q", rec.Id, rec.Kind))
		}
		if prepared[i].CreatedAt.IsZero() {
			prepared[i].CreatedAt = time.Now().UTC()
		}
		if len(rec.Vector) == 0 {
			missing = append(missing, i)
			texts = append(texts, rec.Content)
		}
	}

	if len(missing) > 0 {
		var vectors [][]float32

		err := v.options.Pool.Do(ctx, func(ctx context.Context) error {
			var err error
			vectors, err = v.embedder.EmbedBatch(ctx, texts)
			return err
		})
		if err == nil && len(vectors) != len(missing) {
			err = fmt.Errorf("got %d vectors for %d texts", len(vectors), len(missing))
		}
		if err != nil {
			return newError("upsert", embedder.ErrEmbedding, err)
		}

		for j, i := range missing {
			prepared[i].Vector = vectors[j]
		}
	}

	for _, rec := range prepared {
		if len(rec.Vector) != cfg.VectorSize {
			return newError("upsert", ErrIndexWrite, fmt.Errorf("%w: record %s has %d, collection expects %d", ErrDimension, rec.Id, len(rec.Vector), cfg.VectorSize))
		}
	}

	if err := v.options.Pool.Do(ctx, func(ctx context.Context) error {
		return v.store.Upsert(ctx, prepared)
	}); err != nil {
		return newError("upsert", ErrIndexWrite, err)
	}

	return nil
}

// Search returns up to topK records ordered by non-increasing score. No
// matches is an empty slice and a nil error; a store failure is always
// reported as ErrIndexQuery.
func (v *VectorIndex) Search(ctx context.Context, vector []float32, topK int, filter Filter) ([]ScoredRecord, error) {
	cfg, ready := v.Config()
	if !ready {
		return nil, newError("search", ErrIndexQuery, ErrNotInitialized)
	}

	if topK < 1 {
		return []ScoredRecord{}, nil
	}

	if len(vector) != cfg.VectorSize {
		return nil, newError("search", ErrIndexQuery, fmt.Errorf("%w: query has %d, collection expects %d", ErrDimension, len(vector), cfg.VectorSize))
	}

	ctx, span := v.tracer.Start(ctx, "VectorIndex.Search")
	defer span.End()

	span.SetAttributes(
		attribute.String("collection", cfg.Name),
		attribute.Int("top_k", topK),
	)

	start := time.Now()

	var results []ScoredRecord

	err := v.options.Pool.Do(ctx, func(ctx context.Context) error {
		var err error
		results, err = v.store.Search(ctx, vector, topK, filter)
		return err
	})

	metrics.SearchDuration.Observe(time.Since(start).Seconds())
	metrics.IndexOperations.WithLabelValues("search", metrics.Status(err)).Inc()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		v.options.Logger.Error("failed to search collection",
			zap.String("collection", cfg.Name),
			zap.Error(err),
		)
		return nil, newError("search", ErrIndexQuery, err)
	}

	if results == nil {
		results = []ScoredRecord{}
	}

	if len(results) > topK {
		results = results[:topK]
	}

	span.SetAttributes(attribute.Int("hits", len(results)))

	return results, nil
}

func (v *VectorIndex) Delete(ctx context.Context, ids []string) error {
	if _, ready := v.Config(); !ready {
		return newError("delete", ErrIndexWrite, ErrNotInitialized)
	}

	err := v.options.Pool.Do(ctx, func(ctx context.Context) error {
		return v.store.Delete(ctx, ids)
	})

	metrics.IndexOperations.WithLabelValues("delete", metrics.Status(err)).Inc()

	if err != nil {
		return newError("delete", ErrIndexWrite, err)
	}

	return nil
}

func (v *VectorIndex) DeleteConversation(ctx context.Context, conversationId string) error {
	if _, ready := v.Config(); !ready {
		return newError("delete_conversation", ErrIndexWrite, ErrNotInitialized)
	}

	err := v.options.Pool.Do(ctx, func(ctx context.Context) error {
		return v.store.DeleteConversation(ctx, conversationId)
	})

	metrics.IndexOperations.WithLabelValues("delete_conversation", metrics.Status(err)).Inc()

	if err != nil {
		return newError("delete_conversation", ErrIndexWrite, err)
	}

	return nil
}

func (v *VectorIndex) Count(ctx context.Context) (int, error) {
	if _, ready := v.Config(); !ready {
		return 0, newError("count", ErrIndexQuery, ErrNotInitialized)
	}

	var n int

	err := v.options.Pool.Do(ctx, func(ctx context.Context) error {
		var err error
		n, err = v.store.Count(ctx)
		return err
	})
	if err != nil {
		return 0, newError("count", ErrIndexQuery, err)
	}

	return n, nil
}

func ids(records []Record) []string {
	out := make([]string, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.Id)
	}
	return out
}

func New(store storer.Storer, emb embedder.Embedder, opts ...Option) *VectorIndex {
	options := NewOptions(opts...)

	return &VectorIndex{
		options:  options,
		store:    store,
		embedder: emb,
		tracer:   otel.Tracer("github.com/w-h-a/lio/index"),
		mtx:      sync.RWMutex{},
	}
}

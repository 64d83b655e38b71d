package ingest

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/w-h-a/lio/index"
	"github.com/w-h-a/lio/internal/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var (
	ErrInvalidInput = errors.New("invalid ingest input")
	ErrNoExtractor  = errors.New("no extractor configured")
)

// Input is one document to index.
type Input struct {
	Content        string         `json:"content"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	DocId          string         `json:"doc_id,omitempty"`
	ConversationId string         `json:"conversation_id,omitempty"`
}

// Service turns document text into system records in the vector index.
type Service struct {
	options Options
	index   *index.VectorIndex
	tracer  trace.Tracer
}

// Ingest indexes a single document. Re-ingesting the same DocId replaces
// the stored record.
func (s *Service) Ingest(ctx context.Context, in Input) (bool, error) {
	rec, err := s.record(in)
	if err != nil {
		return false, err
	}

	outcome, err := s.upsert(ctx, "Ingest", []index.Record{rec})

	return outcome[rec.Id], err
}

// IngestBatch indexes inputs and reports, per id, whether it was committed.
// Ids the index confirmed before a failure stay true.
func (s *Service) IngestBatch(ctx context.Context, inputs []Input) (map[string]bool, error) {
	records := make([]index.Record, 0, len(inputs))
	outcome := map[string]bool{}

	var invalid []string

	for i, in := range inputs {
		rec, err := s.record(in)
		if err != nil {
			key := in.DocId
			if len(key) == 0 {
				key = "#" + strconv.Itoa(i)
			}
			outcome[key] = false
			invalid = append(invalid, key)
			continue
		}
		records = append(records, rec)
	}

	committed, err := s.upsert(ctx, "IngestBatch", records)
	maps.Copy(outcome, committed)

	if err == nil && len(invalid) > 0 {
		err = fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(invalid, ", "))
	}

	return outcome, err
}

// Update re-embeds the content stored under id.
func (s *Service) Update(ctx context.Context, id string, content string, metadata map[string]any) (bool, error) {
	if len(strings.TrimSpace(id)) == 0 {
		return false, fmt.Errorf("%w: update requires a document id", ErrInvalidInput)
	}

	return s.Ingest(ctx, Input{Content: content, Metadata: metadata, DocId: id})
}

func (s *Service) DeleteConversation(ctx context.Context, conversationId string) error {
	if len(strings.TrimSpace(conversationId)) == 0 {
		return fmt.Errorf("%w: conversation id is required", ErrInvalidInput)
	}

	return s.index.DeleteConversation(ctx, conversationId)
}

// IngestFile extracts the text at path and indexes it under assetId. Text
// longer than the chunk size is stored as assetId#0, assetId#1, ...
func (s *Service) IngestFile(ctx context.Context, path string, assetId string, metadata map[string]any) (map[string]bool, error) {
	if s.options.Extractor == nil {
		return nil, ErrNoExtractor
	}

	if len(strings.TrimSpace(assetId)) == 0 {
		return nil, fmt.Errorf("%w: asset id is required", ErrInvalidInput)
	}

	text, err := s.options.Extractor.Extract(ctx, path)
	if err != nil {
		return nil, err
	}

	chunks := split(text, s.options.ChunkChars)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: %s has no text", ErrInvalidInput, path)
	}

	inputs := make([]Input, 0, len(chunks))

	for i, chunk := range chunks {
		md := maps.Clone(metadata)
		if md == nil {
			md = map[string]any{}
		}
		md["asset_id"] = assetId
		md["source"] = path

		id := assetId
		if len(chunks) > 1 {
			id = assetId + "#" + strconv.Itoa(i)
			md["chunk"] = i
		}

		inputs = append(inputs, Input{Content: chunk, Metadata: md, DocId: id})
	}

	s.options.Logger.Info("ingesting file",
		zap.String("asset_id", assetId),
		zap.String("path", path),
		zap.Int("chunks", len(chunks)),
	)

	return s.IngestBatch(ctx, inputs)
}

func (s *Service) record(in Input) (index.Record, error) {
	if len(strings.TrimSpace(in.Content)) == 0 {
		return index.Record{}, fmt.Errorf("%w: content is required", ErrInvalidInput)
	}

	id := in.DocId
	if len(id) == 0 {
		id = uuid.NewString()
	}

	conversation := in.ConversationId
	if len(conversation) == 0 {
		conversation = s.options.DefaultConversation
	}

	return index.Record{
		Id:             id,
		Content:        in.Content,
		Kind:           index.KindSystem,
		ConversationId: conversation,
		Metadata:       maps.Clone(in.Metadata),
	}, nil
}

func (s *Service) upsert(ctx context.Context, op string, records []index.Record) (map[string]bool, error) {
	ctx, span := s.tracer.Start(ctx, "Ingest."+op)
	defer span.End()

	span.SetAttributes(attribute.Int("records", len(records)))

	outcome := make(map[string]bool, len(records))

	err := s.index.UpsertBatch(ctx, records)

	var batchErr *index.BatchError

	switch {
	case err == nil:
		for _, rec := range records {
			outcome[rec.Id] = true
		}
	case errors.As(err, &batchErr):
		for _, id := range batchErr.Committed {
			outcome[id] = true
		}
		for _, id := range batchErr.Failed {
			outcome[id] = false
		}
	default:
		for _, rec := range records {
			outcome[rec.Id] = false
		}
	}

	for _, ok := range outcome {
		if ok {
			metrics.IngestedRecords.WithLabelValues("success").Inc()
		} else {
			metrics.IngestedRecords.WithLabelValues("error").Inc()
		}
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.options.Logger.Error("failed to ingest records", zap.String("op", op), zap.Int("records", len(records)), zap.Error(err))
		return outcome, err
	}

	s.options.Logger.Debug("ingested records", zap.String("op", op), zap.Int("records", len(records)))

	return outcome, nil
}

func NewService(idx *index.VectorIndex, opts ...Option) *Service {
	return &Service{
		options: NewOptions(opts...),
		index:   idx,
		tracer:  otel.Tracer("github.com/w-h-a/lio/internal/service/ingest"),
	}
}

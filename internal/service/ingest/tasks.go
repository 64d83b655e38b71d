package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/w-h-a/lio/extractor"
	"github.com/w-h-a/lio/queue"
)

const (
	TaskFile               = "ingest:file"
	TaskDocument           = "ingest:document"
	TaskBatch              = "ingest:batch"
	TaskUpdate             = "ingest:update"
	TaskDeleteConversation = "ingest:delete_conversation"
)

type FilePayload struct {
	Path     string         `json:"file_path"`
	AssetId  string         `json:"asset_id"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type BatchPayload struct {
	Documents []Input `json:"documents"`
}

type UpdatePayload struct {
	DocId    string         `json:"doc_id"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type DeleteConversationPayload struct {
	ConversationId string `json:"conversation_id"`
}

// NewTask encodes payload for the named ingest task. Callers assign doc
// ids before enqueueing so a retried task overwrites rather than
// duplicates.
func NewTask(name string, payload any) (queue.Task, error) {
	bs, err := json.Marshal(payload)
	if err != nil {
		return queue.Task{}, fmt.Errorf("failed to encode %s payload: %w", name, err)
	}
	return queue.Task{Name: name, Payload: bs}, nil
}

// Register binds every ingest task to q.
func (s *Service) Register(q queue.Queue) {
	q.Register(TaskFile, permanent(s.handleFile))
	q.Register(TaskDocument, permanent(s.handleDocument))
	q.Register(TaskBatch, permanent(s.handleBatch))
	q.Register(TaskUpdate, permanent(s.handleUpdate))
	q.Register(TaskDeleteConversation, permanent(s.handleDeleteConversation))
}

// permanent stops retries for failures caused by the input itself.
func permanent(h queue.Handler) queue.Handler {
	return func(ctx context.Context, t queue.Task) (queue.Outcome, error) {
		outcome, err := h(ctx, t)
		if errors.Is(err, ErrInvalidInput) ||
			errors.Is(err, ErrNoExtractor) ||
			errors.Is(err, extractor.ErrUnsupportedFormat) ||
			errors.Is(err, extractor.ErrNotFound) {
			err = queue.Permanent(err)
		}
		return outcome, err
	}
}

func (s *Service) handleFile(ctx context.Context, t queue.Task) (queue.Outcome, error) {
	var p FilePayload
	if err := decode(t, &p); err != nil {
		return nil, err
	}
	return s.IngestFile(ctx, p.Path, p.AssetId, p.Metadata)
}

func (s *Service) handleDocument(ctx context.Context, t queue.Task) (queue.Outcome, error) {
	var in Input
	if err := decode(t, &in); err != nil {
		return nil, err
	}
	ok, err := s.Ingest(ctx, in)
	return queue.Outcome{in.DocId: ok}, err
}

func (s *Service) handleBatch(ctx context.Context, t queue.Task) (queue.Outcome, error) {
	var p BatchPayload
	if err := decode(t, &p); err != nil {
		return nil, err
	}
	return s.IngestBatch(ctx, p.Documents)
}

func (s *Service) handleUpdate(ctx context.Context, t queue.Task) (queue.Outcome, error) {
	var p UpdatePayload
	if err := decode(t, &p); err != nil {
		return nil, err
	}
	ok, err := s.Update(ctx, p.DocId, p.Content, p.Metadata)
	return queue.Outcome{p.DocId: ok}, err
}

func (s *Service) handleDeleteConversation(ctx context.Context, t queue.Task) (queue.Outcome, error) {
	var p DeleteConversationPayload
	if err := decode(t, &p); err != nil {
		return nil, err
	}
	return nil, s.DeleteConversation(ctx, p.ConversationId)
}

func decode(t queue.Task, v any) error {
	if err := json.Unmarshal(t.Payload, v); err != nil {
		return fmt.Errorf("%w: bad %s payload: %v", ErrInvalidInput, t.Name, err)
	}
	return nil
}

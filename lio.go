package lio

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/w-h-a/lio/embedder"
	"github.com/w-h-a/lio/generator"
	"github.com/w-h-a/lio/index"
	"github.com/w-h-a/lio/internal/service/chat"
	"github.com/w-h-a/lio/internal/service/ingest"
	"github.com/w-h-a/lio/internal/service/session"
	"github.com/w-h-a/lio/queue"
	"github.com/w-h-a/lio/retriever"
	"github.com/w-h-a/lio/retriever/vector"
	"go.uber.org/zap"
)

type (
	Turn     = session.Turn
	Metadata = session.Metadata
	Document = ingest.Input
	Job      = queue.Job
	Snippet  = retriever.Snippet
	Emit     = chat.Emit
)

var (
	ErrSessionNotFound = session.ErrSessionNotFound
	ErrInvalidInput    = chat.ErrInvalidInput
)

// RAG ties the session, chat, retrieval, and ingestion services together
// behind the operations the HTTP surface exposes.
type RAG struct {
	options   Options
	sessions  *session.Service
	chat      *chat.Service
	ingest    *ingest.Service
	retriever retriever.Retriever
	queue     queue.Queue
	tracker   *queue.Tracker
	cancel    context.CancelFunc
}

// StartChat creates a session bound to assetId. An empty provider selects
// the registry default.
func (r *RAG) StartChat(ctx context.Context, assetId string, provider string) (string, error) {
	if len(strings.TrimSpace(assetId)) == 0 {
		return "", fmt.Errorf("%w: asset id is required", ErrInvalidInput)
	}

	sess, err := r.sessions.GetOrCreate(ctx, uuid.NewString(), assetId, provider)
	if err != nil {
		return "", err
	}

	return sess.ID(), nil
}

// ResumeChat reports whether id is a live session.
func (r *RAG) ResumeChat(ctx context.Context, id string) error {
	if !r.sessions.Exists(ctx, id) {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return nil
}

func (r *RAG) SendMessage(ctx context.Context, id string, message string, emit Emit) error {
	return r.chat.Stream(ctx, id, message, emit)
}

// History returns an empty slice for unknown sessions.
func (r *RAG) History(ctx context.Context, id string) []Turn {
	return r.sessions.History(ctx, id)
}

func (r *RAG) ActiveChats(ctx context.Context) []string {
	return r.sessions.ListIds(ctx)
}

func (r *RAG) ListChats(ctx context.Context) []Metadata {
	ids := r.sessions.ListIds(ctx)

	out := make([]Metadata, 0, len(ids))
	for _, id := range ids {
		sess, err := r.sessions.Get(ctx, id)
		if err != nil {
			// evicted since listing
			continue
		}
		out = append(out, sess.Metadata())
	}

	return out
}

func (r *RAG) ChatMetadata(ctx context.Context, id string) (Metadata, error) {
	sess, err := r.sessions.Get(ctx, id)
	if err != nil {
		return Metadata{}, err
	}
	return sess.Metadata(), nil
}

// DeleteChat is a no-op for unknown ids.
func (r *RAG) DeleteChat(ctx context.Context, id string) {
	r.sessions.Remove(ctx, id)
}

func (r *RAG) Search(ctx context.Context, query string, opts ...retriever.RetrieveOption) ([]Snippet, error) {
	return r.retriever.Retrieve(ctx, query, opts...)
}

// Ingest indexes doc before returning, bypassing the queue.
func (r *RAG) Ingest(ctx context.Context, doc Document) (bool, error) {
	return r.ingest.Ingest(ctx, doc)
}

// ProcessDocument queues extraction and indexing of the file at path under
// assetId and returns the job id.
func (r *RAG) ProcessDocument(ctx context.Context, path string, assetId string, metadata map[string]any) (string, error) {
	return r.enqueue(ctx, ingest.TaskFile, ingest.FilePayload{Path: path, AssetId: assetId, Metadata: metadata})
}

// SubmitDocuments queues docs for indexing. Missing ids are assigned here
// and returned in input order.
func (r *RAG) SubmitDocuments(ctx context.Context, docs []Document) (string, []string, error) {
	if len(docs) == 0 {
		return "", nil, fmt.Errorf("%w: no documents", ErrInvalidInput)
	}

	ids := make([]string, len(docs))
	pinned := make([]Document, len(docs))

	for i, doc := range docs {
		if len(strings.TrimSpace(doc.Content)) == 0 {
			return "", nil, fmt.Errorf("%w: document %d has no content", ErrInvalidInput, i)
		}
		if len(doc.DocId) == 0 {
			doc.DocId = uuid.NewString()
		}
		ids[i] = doc.DocId
		pinned[i] = doc
	}

	var (
		jobId string
		err   error
	)

	if len(pinned) == 1 {
		jobId, err = r.enqueue(ctx, ingest.TaskDocument, pinned[0])
	} else {
		jobId, err = r.enqueue(ctx, ingest.TaskBatch, ingest.BatchPayload{Documents: pinned})
	}
	if err != nil {
		return "", nil, err
	}

	return jobId, ids, nil
}

func (r *RAG) UpdateDocument(ctx context.Context, id string, content string, metadata map[string]any) (string, error) {
	if len(strings.TrimSpace(id)) == 0 || len(strings.TrimSpace(content)) == 0 {
		return "", fmt.Errorf("%w: doc id and content are required", ErrInvalidInput)
	}
	return r.enqueue(ctx, ingest.TaskUpdate, ingest.UpdatePayload{DocId: id, Content: content, Metadata: metadata})
}

func (r *RAG) DeleteConversation(ctx context.Context, conversationId string) (string, error) {
	if len(strings.TrimSpace(conversationId)) == 0 {
		return "", fmt.Errorf("%w: conversation id is required", ErrInvalidInput)
	}
	return r.enqueue(ctx, ingest.TaskDeleteConversation, ingest.DeleteConversationPayload{ConversationId: conversationId})
}

func (r *RAG) Job(id string) (Job, bool) {
	return r.tracker.Get(id)
}

// Start begins consuming queued work and, when an idle TTL is set,
// sweeping idle sessions.
func (r *RAG) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	if err := r.queue.Start(ctx); err != nil {
		cancel()
		return err
	}

	go r.sessions.Sweep(ctx, r.options.SweepInterval)

	return nil
}

func (r *RAG) Close() error {
	if r.cancel != nil {
		r.cancel()
	}
	return r.queue.Close()
}

func (r *RAG) enqueue(ctx context.Context, name string, payload any) (string, error) {
	task, err := ingest.NewTask(name, payload)
	if err != nil {
		return "", err
	}

	id, err := r.queue.Enqueue(ctx, task)
	if err != nil {
		r.options.Logger.Error("failed to enqueue task", zap.String("task", name), zap.Error(err))
		return "", err
	}

	r.options.Logger.Info("enqueued task", zap.String("task", name), zap.String("job_id", id))

	return id, nil
}

// New assembles the services. The tracker must be the one q reports job
// progress to.
func New(
	idx *index.VectorIndex,
	emb embedder.Embedder,
	registry *generator.Registry,
	q queue.Queue,
	tracker *queue.Tracker,
	opts ...Option,
) *RAG {
	options := NewOptions(opts...)

	sessions := session.New(
		registry,
		session.WithMaxSessions(options.MaxSessions),
		session.WithIdleTTL(options.IdleTTL),
		session.WithLogger(options.Logger.Named("session")),
	)

	ret := vector.NewRetriever(idx, emb, options.Pool)

	chatOpts := []chat.Option{
		chat.WithChunkSize(options.ChunkSize),
		chat.WithTopK(options.TopK),
		chat.WithContextChars(options.ContextChars),
		chat.WithLogger(options.Logger.Named("chat")),
	}
	if options.MinScore != nil {
		chatOpts = append(chatOpts, chat.WithMinScore(*options.MinScore))
	}

	chats := chat.New(sessions, emb, ret, options.Pool, chatOpts...)

	ingestOpts := []ingest.Option{
		ingest.WithChunkChars(options.ChunkChars),
		ingest.WithLogger(options.Logger.Named("ingest")),
	}
	if options.Extractor != nil {
		ingestOpts = append(ingestOpts, ingest.WithExtractor(options.Extractor))
	}

	ing := ingest.NewService(idx, ingestOpts...)
	ing.Register(q)

	return &RAG{
		options:   options,
		sessions:  sessions,
		chat:      chats,
		ingest:    ing,
		retriever: ret,
		queue:     q,
		tracker:   tracker,
	}
}

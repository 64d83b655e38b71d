package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/w-h-a/lio/embedder"
	"github.com/w-h-a/lio/internal/metrics"
	"github.com/w-h-a/lio/internal/pool"
	"github.com/w-h-a/lio/internal/service/session"
	"github.com/w-h-a/lio/retriever"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Emit hands one slice of output to the consumer. A non-nil error means
// the consumer is gone and no further slices should be produced.
type Emit func(slice string) error

type Service struct {
	options   Options
	sessions  *session.Service
	embedder  embedder.Embedder
	retriever retriever.Retriever
	pool      *pool.Pool
	tracer    trace.Tracer
}

type turn struct {
	span     trace.Span
	logger   *zap.Logger
	state    State
	provider string
	started  time.Time
}

func (t *turn) enter(state State) {
	t.logger.Debug("turn transition", zap.String("from", string(t.state)), zap.String("to", string(state)))
	t.span.AddEvent(string(state))
	t.state = state
}

func (t *turn) fail(err error) {
	stage := t.state
	t.logger.Error("turn failed", zap.String("stage", string(stage)), zap.Error(err))
	t.span.RecordError(err)
	t.span.SetStatus(codes.Error, err.Error())
	t.span.SetAttributes(attribute.String("failed_stage", string(stage)))
	metrics.TurnsTotal.WithLabelValues(string(StateFailed), string(stage)).Inc()
	t.state = StateFailed
}

func (t *turn) done() {
	t.enter(StateDone)
	metrics.TurnsTotal.WithLabelValues(string(StateDone), "").Inc()
	metrics.TurnDuration.WithLabelValues(t.provider).Observe(time.Since(t.started).Seconds())
}

// Stream runs one turn for the session and feeds the answer to emit in
// fixed-size slices. The exchange is appended to history only when every
// slice was delivered. Unknown sessions and empty messages are rejected
// before anything is emitted.
func (s *Service) Stream(ctx context.Context, sessionId string, message string, emit Emit) error {
	ctx, span := s.tracer.Start(ctx, "Chat.Stream")
	defer span.End()

	span.SetAttributes(attribute.String("session_id", sessionId))

	t := &turn{
		span:    span,
		logger:  s.options.Logger.With(zap.String("session_id", sessionId)),
		state:   StateReceived,
		started: time.Now(),
	}

	if len(strings.TrimSpace(message)) == 0 {
		err := fmt.Errorf("%w: message is required", ErrInvalidInput)
		t.fail(err)
		return err
	}

	sess, err := s.sessions.Get(ctx, sessionId)
	if err != nil {
		t.fail(err)
		return err
	}

	t.provider = sess.Provider()

	end := sess.BeginTurn()
	defer end()

	// EMBEDDING_QUERY
	t.enter(StateEmbeddingQuery)

	var vec []float32

	err = s.pool.Do(ctx, func(ctx context.Context) error {
		var err error
		vec, err = s.embedder.Embed(ctx, message)
		return err
	})
	if err == nil && len(vec) == 0 {
		err = fmt.Errorf("%w: empty query vector", embedder.ErrEmbedding)
	}
	if err != nil {
		return s.abort(ctx, t, err, EmbeddingFailureMessage, emit)
	}

	// RETRIEVING
	t.enter(StateRetrieving)

	opts := []retriever.RetrieveOption{retriever.WithTopK(s.options.TopK)}
	if s.options.MinScore != nil {
		opts = append(opts, retriever.WithMinScore(*s.options.MinScore))
	}

	snippets, err := s.retriever.RetrieveByVector(ctx, vec, opts...)
	if err != nil {
		return s.abort(ctx, t, err, ApologyMessage, emit)
	}

	span.SetAttributes(attribute.Int("snippets", len(snippets)))

	// GENERATING
	t.enter(StateGenerating)

	prompt := buildPrompt(snippets, message, s.options.ContextChars)

	var output string

	err = s.pool.Do(ctx, func(ctx context.Context) error {
		var err error
		output, err = sess.Generator().Generate(ctx, prompt)
		return err
	})
	if err == nil && len(output) == 0 {
		err = errors.New("empty response from provider")
	}
	if err != nil {
		return s.abort(ctx, t, err, ApologyMessage, emit)
	}

	// STREAMING
	t.enter(StateStreaming)

	for _, slice := range slices(output, s.options.ChunkSize) {
		if err := ctx.Err(); err != nil {
			t.fail(err)
			return err
		}
		if err := emit(slice); err != nil {
			t.fail(err)
			return err
		}
	}

	sess.AppendExchange(message, output)

	t.done()

	return nil
}

// abort emits one failure slice, unless the consumer already left, and
// reports the failed stage.
func (s *Service) abort(ctx context.Context, t *turn, cause error, notice string, emit Emit) error {
	stage := t.state
	t.fail(cause)

	if err := ctx.Err(); err != nil {
		return err
	}

	if err := emit(notice); err != nil {
		return err
	}

	return &TurnError{Stage: stage, Err: cause}
}

func New(
	sessions *session.Service,
	emb embedder.Embedder,
	ret retriever.Retriever,
	p *pool.Pool,
	opts ...Option,
) *Service {
	options := NewOptions(opts...)

	if p == nil {
		p = pool.New(0)
	}

	return &Service{
		options:   options,
		sessions:  sessions,
		embedder:  emb,
		retriever: ret,
		pool:      p,
		tracer:    otel.Tracer("github.com/w-h-a/lio/internal/service/chat"),
	}
}

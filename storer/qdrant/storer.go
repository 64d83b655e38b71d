package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/w-h-a/lio/storer"
	getsafe "github.com/w-h-a/lio/util/get_safe"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var errNotFound = errors.New("qdrant: not found")

type qdrantStorer struct {
	options    storer.Options
	client     *http.Client
	collection storer.Collection
	mtx        sync.RWMutex
}

func (s *qdrantStorer) Ensure(ctx context.Context, collection storer.Collection) error {
	s.setCollection(collection)

	exists, err := s.collectionExists(ctx)
	if err != nil {
		return err
	}

	if exists {
		return nil
	}

	return s.createCollection(ctx)
}

func (s *qdrantStorer) Reset(ctx context.Context, collection storer.Collection) error {
	s.setCollection(collection)

	var rsp qdrantEnvelope[json.RawMessage]

	if err := s.do(ctx, http.MethodDelete, s.path(""), nil, &rsp); err != nil && !errors.Is(err, errNotFound) {
		return err
	}

	return s.createCollection(ctx)
}

func (s *qdrantStorer) Upsert(ctx context.Context, records []storer.Record) error {
	if len(records) == 0 {
		return nil
	}

	points := make([]map[string]any, 0, len(records))

	for _, rec := range records {
		createdAt := rec.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}

		payload := map[string]any{
			"message_id":      rec.Id,
			"message_type":    string(rec.Kind),
			"conversation_id": rec.ConversationId,
			"content":         rec.Content,
			"metadata":        rec.Metadata,
			"timestamp":       createdAt.UTC().Format(time.RFC3339Nano),
		}

		points = append(points, map[string]any{
			"id":      pointId(rec.Id),
			"vector":  rec.Vector,
			"payload": payload,
		})
	}

	req := map[string]any{
		"points": points,
	}

	var rsp qdrantEnvelope[json.RawMessage]

	if err := s.do(ctx, http.MethodPut, s.path("/points?wait=true"), req, &rsp); err != nil {
		return err
	}

	return rsp.Status.err()
}

func (s *qdrantStorer) Search(ctx context.Context, vector []float32, limit int, filter storer.Filter) ([]storer.ScoredRecord, error) {
	if limit < 1 {
		return []storer.ScoredRecord{}, nil
	}

	req := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_vector":  true,
		"with_payload": true,
	}

	if f := qdrantFilter(filter); f != nil {
		req["filter"] = f
	}

	var rsp qdrantEnvelope[[]qdrantPointResult]

	if err := s.do(ctx, http.MethodPost, s.path("/points/search"), req, &rsp); err != nil {
		return nil, err
	}

	if err := rsp.Status.err(); err != nil {
		return nil, err
	}

	results := make([]storer.ScoredRecord, 0, len(rsp.Result))

	for _, point := range rsp.Result {
		payload := point.Payload

		id := getsafe.String(payload, "message_id")
		if len(id) == 0 {
			id = point.Id
		}

		rec := storer.ScoredRecord{
			Record: storer.Record{
				Id:             id,
				Content:        getsafe.String(payload, "content"),
				Vector:         point.Vector,
				Kind:           storer.Kind(getsafe.String(payload, "message_type")),
				ConversationId: getsafe.String(payload, "conversation_id"),
				CreatedAt:      getsafe.Time(payload, "timestamp"),
				Metadata:       getsafe.Metadata(payload, "metadata"),
			},
			Score: float32(point.Score),
		}

		results = append(results, rec)
	}

	return results, nil
}

func (s *qdrantStorer) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	points := make([]string, 0, len(ids))
	for _, id := range ids {
		points = append(points, pointId(id))
	}

	return s.deletePoints(ctx, map[string]any{"points": points})
}

func (s *qdrantStorer) DeleteConversation(ctx context.Context, conversationId string) error {
	return s.deletePoints(ctx, map[string]any{
		"filter": qdrantFilter(storer.Filter{ConversationId: conversationId}),
	})
}

func (s *qdrantStorer) Count(ctx context.Context) (int, error) {
	var rsp qdrantEnvelope[qdrantCount]

	if err := s.do(ctx, http.MethodPost, s.path("/points/count"), map[string]any{"exact": true}, &rsp); err != nil {
		return 0, err
	}

	if err := rsp.Status.err(); err != nil {
		return 0, err
	}

	return rsp.Result.Count, nil
}

func (s *qdrantStorer) deletePoints(ctx context.Context, req map[string]any) error {
	var rsp qdrantEnvelope[json.RawMessage]

	if err := s.do(ctx, http.MethodPost, s.path("/points/delete?wait=true"), req, &rsp); err != nil {
		return err
	}

	return rsp.Status.err()
}

func (s *qdrantStorer) do(ctx context.Context, method string, path string, req any, rsp any) error {
	u := s.options.Location + path
	var buf io.Reader
	if req != nil {
		data, err := json.Marshal(req)
		if err != nil {
			return err
		}
		buf = bytes.NewReader(data)
	}

	request, err := http.NewRequestWithContext(ctx, method, u, buf)
	if err != nil {
		return err
	}

	request.Header.Set("Content-Type", "application/json")

	if len(s.options.ApiKey) > 0 {
		request.Header.Set("api-key", s.options.ApiKey)
		request.Header.Set("Authorization", "Bearer "+s.options.ApiKey)
	}

	response, err := s.client.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	payload, err := io.ReadAll(response.Body)
	if err != nil {
		return err
	}

	if response.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", errNotFound, string(payload))
	}

	if response.StatusCode >= 400 {
		return fmt.Errorf("qdrant http %d: %s", response.StatusCode, string(payload))
	}

	if rsp != nil && len(payload) > 0 {
		if err := json.Unmarshal(payload, rsp); err != nil {
			return err
		}
	}

	return nil
}

func (s *qdrantStorer) collectionExists(ctx context.Context) (bool, error) {
	var rsp qdrantEnvelope[json.RawMessage]

	err := s.do(ctx, http.MethodGet, s.path(""), nil, &rsp)
	if errors.Is(err, errNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return strings.EqualFold(rsp.Status.State, "ok"), nil
}

func (s *qdrantStorer) createCollection(ctx context.Context) error {
	s.mtx.RLock()
	collection := s.collection
	s.mtx.RUnlock()

	req := map[string]any{
		"vectors": map[string]any{
			"size":     collection.VectorSize,
			"distance": qdrantDistance(collection.Distance),
		},
	}

	var rsp qdrantEnvelope[json.RawMessage]

	if err := s.do(ctx, http.MethodPut, s.path(""), req, &rsp); err != nil {
		return err
	}

	if !strings.EqualFold(rsp.Status.State, "ok") {
		return errors.New(rsp.Status.Error)
	}

	return nil
}

func (s *qdrantStorer) setCollection(collection storer.Collection) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.collection = collection
}

func (s *qdrantStorer) path(suffix string) string {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return fmt.Sprintf("/collections/%s%s", url.PathEscape(s.collection.Name), suffix)
}

func qdrantFilter(filter storer.Filter) map[string]any {
	must := []map[string]any{}

	if len(filter.ConversationId) > 0 {
		must = append(must, map[string]any{
			"key":   "conversation_id",
			"match": map[string]any{"value": filter.ConversationId},
		})
	}

	if len(filter.Kind) > 0 {
		must = append(must, map[string]any{
			"key":   "message_type",
			"match": map[string]any{"value": string(filter.Kind)},
		})
	}

	if len(must) == 0 {
		return nil
	}

	return map[string]any{"must": must}
}

// Qdrant only accepts unsigned integers or UUIDs as point ids.
func pointId(id string) string {
	if parsed, err := uuid.Parse(id); err == nil {
		return parsed.String()
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(id)).String()
}

func NewStorer(opts ...storer.Option) storer.Storer {
	options := storer.NewOptions(opts...)

	if len(options.Location) == 0 {
		panic("missing location for qdrant storer")
	}

	options.Location = strings.TrimRight(options.Location, "/")

	client := &http.Client{
		Timeout:   options.Timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	s := &qdrantStorer{
		options: options,
		client:  client,
		mtx:     sync.RWMutex{},
	}

	return s
}

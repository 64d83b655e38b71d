package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/w-h-a/lio/storer"
)

type fakeQdrant struct {
	mtx      sync.Mutex
	requests []string
	bodies   map[string]map[string]any
	search   string
	status   int
}

func (f *fakeQdrant) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mtx.Lock()
	defer f.mtx.Unlock()

	key := r.Method + " " + r.URL.Path
	f.requests = append(f.requests, key)

	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)
	f.bodies[key] = body

	if f.status != 0 {
		w.WriteHeader(f.status)
		_, _ = w.Write([]byte(`{"status":{"error":"boom"}}`))
		return
	}

	switch key {
	case "GET /collections/documents":
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"status":{"error":"Not found"}}`))
	case "POST /collections/documents/points/search":
		_, _ = w.Write([]byte(f.search))
	case "POST /collections/documents/points/count":
		_, _ = w.Write([]byte(`{"status":"ok","result":{"count":3}}`))
	default:
		_, _ = w.Write([]byte(`{"status":"ok","result":true}`))
	}
}

func newFake(t *testing.T) (*fakeQdrant, storer.Storer) {
	t.Helper()

	fake := &fakeQdrant{bodies: map[string]map[string]any{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	return fake, NewStorer(storer.WithLocation(srv.URL + "/"))
}

func TestEnsureCreatesMissingCollection(t *testing.T) {
	fake, s := newFake(t)

	err := s.Ensure(context.Background(), storer.Collection{Name: "documents", VectorSize: 384, Distance: storer.Cosine})
	require.NoError(t, err)

	require.Equal(t, []string{"GET /collections/documents", "PUT /collections/documents"}, fake.requests)

	vectors := fake.bodies["PUT /collections/documents"]["vectors"].(map[string]any)
	require.Equal(t, float64(384), vectors["size"])
	require.Equal(t, "Cosine", vectors["distance"])
}

func TestResetDropsThenCreates(t *testing.T) {
	fake, s := newFake(t)

	err := s.Reset(context.Background(), storer.Collection{Name: "documents", VectorSize: 8, Distance: storer.Euclidean})
	require.NoError(t, err)

	require.Equal(t, []string{"DELETE /collections/documents", "PUT /collections/documents"}, fake.requests)

	vectors := fake.bodies["PUT /collections/documents"]["vectors"].(map[string]any)
	require.Equal(t, "Euclid", vectors["distance"])
}

func TestUpsertPayload(t *testing.T) {
	fake, s := newFake(t)
	ctx := context.Background()

	require.NoError(t, s.Ensure(ctx, storer.Collection{Name: "documents", VectorSize: 2}))

	err := s.Upsert(ctx, []storer.Record{
		{Id: "doc1", Content: "The sky is blue.", Vector: []float32{1, 0}, Kind: storer.KindSystem, ConversationId: "default"},
	})
	require.NoError(t, err)

	body := fake.bodies["PUT /collections/documents/points"]
	points := body["points"].([]any)
	require.Len(t, points, 1)

	point := points[0].(map[string]any)
	require.Equal(t, pointId("doc1"), point["id"])

	payload := point["payload"].(map[string]any)
	require.Equal(t, "doc1", payload["message_id"])
	require.Equal(t, "system", payload["message_type"])
	require.Equal(t, "default", payload["conversation_id"])
	require.Equal(t, "The sky is blue.", payload["content"])
}

func TestSearchDecodesPayloadAndFilter(t *testing.T) {
	fake, s := newFake(t)
	ctx := context.Background()

	fake.search = `{"status":"ok","result":[
		{"id":"` + pointId("doc1") + `","score":0.91,"payload":{"message_id":"doc1","content":"The sky is blue.","message_type":"system","conversation_id":"default","metadata":{"source":"test"}},"vector":[1,0]}
	]}`

	require.NoError(t, s.Ensure(ctx, storer.Collection{Name: "documents", VectorSize: 2}))

	rsp, err := s.Search(ctx, []float32{1, 0}, 5, storer.Filter{ConversationId: "default"})
	require.NoError(t, err)
	require.Len(t, rsp, 1)
	require.Equal(t, "doc1", rsp[0].Id)
	require.Equal(t, storer.KindSystem, rsp[0].Kind)
	require.InDelta(t, 0.91, rsp[0].Score, 1e-6)
	require.Equal(t, "test", rsp[0].Metadata["source"])

	body := fake.bodies["POST /collections/documents/points/search"]
	require.NotNil(t, body["filter"])
}

func TestSearchEmptyResult(t *testing.T) {
	fake, s := newFake(t)
	fake.search = `{"status":"ok","result":[]}`

	require.NoError(t, s.Ensure(context.Background(), storer.Collection{Name: "documents", VectorSize: 2}))

	rsp, err := s.Search(context.Background(), []float32{1, 0}, 5, storer.Filter{})
	require.NoError(t, err)
	require.NotNil(t, rsp)
	require.Empty(t, rsp)
}

func TestSearchServerError(t *testing.T) {
	fake, s := newFake(t)
	fake.status = http.StatusInternalServerError

	_, err := s.Search(context.Background(), []float32{1, 0}, 5, storer.Filter{})
	require.Error(t, err)
}

func TestCount(t *testing.T) {
	_, s := newFake(t)

	require.NoError(t, s.Ensure(context.Background(), storer.Collection{Name: "documents", VectorSize: 2}))

	n, err := s.Count(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, n)
}

func TestPointIdStable(t *testing.T) {
	require.Equal(t, pointId("doc1"), pointId("doc1"))
	require.NotEqual(t, pointId("doc1"), pointId("doc2"))

	id := "0b4a4a50-6f7b-4e0f-9c0a-1d2e3f405060"
	require.Equal(t, id, pointId(id))
}

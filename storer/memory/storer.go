package memory

import (
	"context"
	"maps"
	"sort"
	"sync"

	"github.com/w-h-a/lio/storer"
)

type memoryStorer struct {
	options    storer.Options
	collection storer.Collection
	records    map[string]storer.Record
	mtx        sync.RWMutex
}

func (s *memoryStorer) Ensure(ctx context.Context, collection storer.Collection) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.collection = collection

	return nil
}

func (s *memoryStorer) Reset(ctx context.Context, collection storer.Collection) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.collection = collection
	s.records = map[string]storer.Record{}

	return nil
}

func (s *memoryStorer) Upsert(ctx context.Context, records []storer.Record) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	for _, rec := range records {
		cpy := make([]float32, len(rec.Vector))
		copy(cpy, rec.Vector)
		rec.Vector = cpy

		if rec.Metadata != nil {
			rec.Metadata = maps.Clone(rec.Metadata)
		}

		s.records[rec.Id] = rec
	}

	return nil
}

func (s *memoryStorer) Search(ctx context.Context, vector []float32, limit int, filter storer.Filter) ([]storer.ScoredRecord, error) {
	if limit < 1 {
		return []storer.ScoredRecord{}, nil
	}

	s.mtx.RLock()
	defer s.mtx.RUnlock()

	candidates := make([]storer.ScoredRecord, 0, len(s.records))

	for _, rec := range s.records {
		if !filter.Match(rec) {
			continue
		}
		candidates = append(candidates, storer.ScoredRecord{
			Record: rec,
			Score:  storer.Score(s.collection.Distance, vector, rec.Vector),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score == candidates[j].Score {
			return candidates[i].Id < candidates[j].Id
		}
		return candidates[i].Score > candidates[j].Score
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	return candidates, nil
}

func (s *memoryStorer) Delete(ctx context.Context, ids []string) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	for _, id := range ids {
		delete(s.records, id)
	}

	return nil
}

func (s *memoryStorer) DeleteConversation(ctx context.Context, conversationId string) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	for id, rec := range s.records {
		if rec.ConversationId == conversationId {
			delete(s.records, id)
		}
	}

	return nil
}

func (s *memoryStorer) Count(ctx context.Context) (int, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return len(s.records), nil
}

func NewStorer(opts ...storer.Option) storer.Storer {
	options := storer.NewOptions(opts...)

	s := &memoryStorer{
		options: options,
		collection: storer.Collection{
			Distance: storer.Cosine,
		},
		records: map[string]storer.Record{},
		mtx:     sync.RWMutex{},
	}

	return s
}

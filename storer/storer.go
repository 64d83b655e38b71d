package storer

import "context"

type Storer interface {
	Ensure(ctx context.Context, collection Collection) error
	Reset(ctx context.Context, collection Collection) error
	Upsert(ctx context.Context, records []Record) error
	Search(ctx context.Context, vector []float32, limit int, filter Filter) ([]ScoredRecord, error)
	Delete(ctx context.Context, ids []string) error
	DeleteConversation(ctx context.Context, conversationId string) error
	Count(ctx context.Context) (int, error)
}

package retriever

import "context"

type Retriever interface {
	Retrieve(ctx context.Context, query string, opts ...RetrieveOption) ([]Snippet, error)
	RetrieveByVector(ctx context.Context, vector []float32, opts ...RetrieveOption) ([]Snippet, error)
}

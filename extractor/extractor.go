package extractor

import (
	"context"
	"errors"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrNotFound          = errors.New("file not found")
)

type Extractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

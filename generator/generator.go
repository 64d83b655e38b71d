package generator

import (
	"context"
	"errors"
)

var ErrGeneration = errors.New("generation failed")

type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Package hash provides a deterministic, offline embedder that projects
// word and bigram features into a fixed-size vector with the hashing trick.
package hash

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"regexp"
	"strings"

	"github.com/w-h-a/lio/embedder"
)

const defaultDimension = 384

var tokenPattern = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`)

type hashEmbedder struct {
	options   embedder.Options
	stopwords map[string]struct{}
}

func (e *hashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", embedder.ErrEmbedding, err)
	}

	tokens := e.tokenize(text)
	if len(tokens) == 0 {
		return nil, fmt.Errorf("%w: no tokens in input", embedder.ErrEmbedding)
	}

	vec := make([]float64, e.options.Dimension)

	for i, tok := range tokens {
		e.add(vec, tok, 1)
		if i > 0 {
			e.add(vec, tokens[i-1]+" "+tok, 0.5)
		}
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	out := make([]float32, len(vec))
	if norm == 0 {
		return out, nil
	}

	for i, v := range vec {
		out[i] = float32(v / norm)
	}

	return out, nil
}

func (e *hashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for _, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, vec)
	}
	return vectors, nil
}

func (e *hashEmbedder) add(vec []float64, feature string, weight float64) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()

	idx := int(sum % uint64(len(vec)))

	// the top bit picks the sign so collisions tend to cancel
	if sum>>63 == 1 {
		weight = -weight
	}

	vec[idx] += weight
}

func (e *hashEmbedder) tokenize(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)

	tokens := make([]string, 0, len(raw))
	for _, tok := range raw {
		if _, stop := e.stopwords[tok]; stop {
			continue
		}
		tokens = append(tokens, tok)
	}

	if len(tokens) == 0 {
		return raw
	}

	return tokens
}

func NewEmbedder(opts ...embedder.Option) embedder.Embedder {
	options := embedder.NewOptions(opts...)

	if options.Dimension <= 0 {
		options.Dimension = defaultDimension
	}

	e := &hashEmbedder{
		options:   options,
		stopwords: stopwords(),
	}

	return e
}

func stopwords() map[string]struct{} {
	words := []string{
		"a", "an", "and", "are", "as", "at", "be", "but", "by", "can", "do", "does",
		"for", "from", "has", "have", "how", "i", "in", "is", "it", "its", "me", "my",
		"of", "on", "or", "so", "that", "the", "their", "there", "this", "to", "was",
		"we", "what", "when", "where", "which", "who", "why", "will", "with", "you", "your",
	}

	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

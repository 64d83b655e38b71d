package generator

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var ErrUnknownProvider = errors.New("unknown generation provider")

type Factory func() (Generator, error)

// Registry resolves a provider choice to a generator once, when a session
// is created. Choices are matched case-insensitively.
type Registry struct {
	factories map[string]Factory
	fallback  string
	mtx       sync.RWMutex
}

func (r *Registry) Register(choice string, factory Factory) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.factories[normalize(choice)] = factory
}

func (r *Registry) Resolve(choice string) (Generator, error) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	key := normalize(choice)
	if len(key) == 0 {
		key = r.fallback
	}

	factory, ok := r.factories[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, choice)
	}

	return factory()
}

func (r *Registry) Default() string {
	return r.fallback
}

func (r *Registry) Choices() []string {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	choices := make([]string, 0, len(r.factories))
	for k := range r.factories {
		choices = append(choices, k)
	}
	sort.Strings(choices)
	return choices
}

func NewRegistry(fallback string) *Registry {
	return &Registry{
		factories: map[string]Factory{},
		fallback:  normalize(fallback),
		mtx:       sync.RWMutex{},
	}
}

func normalize(choice string) string {
	return strings.ToLower(strings.TrimSpace(choice))
}

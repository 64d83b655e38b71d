package session

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/w-h-a/lio/generator"
	"github.com/w-h-a/lio/internal/metrics"
	"go.uber.org/zap"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidSession  = errors.New("invalid session")
)

type Service struct {
	options  Options
	registry *generator.Registry
	sessions map[string]*list.Element
	order    *list.List
	mtx      sync.RWMutex
}

// GetOrCreate returns the session for id, creating it on first use. When
// the session exists, assetId and provider are ignored. Concurrent callers
// with the same id observe the same *Session.
func (s *Service) GetOrCreate(ctx context.Context, id string, assetId string, provider string) (*Session, error) {
	if len(strings.TrimSpace(id)) == 0 {
		return nil, fmt.Errorf("%w: session id is required", ErrInvalidSession)
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	if elem, ok := s.sessions[id]; ok {
		sess := elem.Value.(*Session)
		s.touch(elem)
		return sess, nil
	}

	if len(strings.TrimSpace(provider)) == 0 {
		provider = s.registry.Default()
	}

	gen, err := s.registry.Resolve(provider)
	if err != nil {
		return nil, err
	}

	now := s.options.Clock()

	sess := &Session{
		id:        id,
		assetId:   assetId,
		provider:  strings.ToLower(strings.TrimSpace(provider)),
		generator: gen,
		createdAt: now,
		lastUsed:  now,
		history:   []Turn{},
	}

	s.sessions[id] = s.order.PushFront(sess)

	s.options.Logger.Info("created session",
		zap.String("session_id", id),
		zap.String("asset_id", assetId),
		zap.String("provider", sess.provider),
	)

	if s.options.MaxSessions > 0 {
		for s.order.Len() > s.options.MaxSessions {
			s.removeElement(s.order.Back(), "capacity")
		}
	}

	metrics.ActiveSessions.Set(float64(len(s.sessions)))

	return sess, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Session, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	elem, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	s.touch(elem)

	return elem.Value.(*Session), nil
}

func (s *Service) Exists(ctx context.Context, id string) bool {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	_, ok := s.sessions[id]
	return ok
}

// Remove drops the session and its history. Removing an unknown id is a
// no-op.
func (s *Service) Remove(ctx context.Context, id string) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	elem, ok := s.sessions[id]
	if !ok {
		s.options.Logger.Debug("remove of unknown session", zap.String("session_id", id))
		return
	}

	s.removeElement(elem, "removed")

	metrics.ActiveSessions.Set(float64(len(s.sessions)))
}

// History never fails: an unknown session has an empty history.
func (s *Service) History(ctx context.Context, id string) []Turn {
	s.mtx.RLock()
	elem, ok := s.sessions[id]
	s.mtx.RUnlock()

	if !ok {
		return []Turn{}
	}

	return elem.Value.(*Session).History()
}

func (s *Service) ListIds(ctx context.Context) []string {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *Service) Len() int {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return len(s.sessions)
}

// Evict drops sessions idle since before now minus the idle TTL and
// returns their ids.
func (s *Service) Evict(now time.Time) []string {
	if s.options.IdleTTL <= 0 {
		return nil
	}

	cutoff := now.Add(-s.options.IdleTTL)

	s.mtx.Lock()
	defer s.mtx.Unlock()

	var evicted []string

	for elem := s.order.Back(); elem != nil; {
		sess := elem.Value.(*Session)
		if !sess.lastUsed.Before(cutoff) {
			break
		}
		prev := elem.Prev()
		evicted = append(evicted, sess.id)
		s.removeElement(elem, "idle")
		elem = prev
	}

	metrics.ActiveSessions.Set(float64(len(s.sessions)))

	return evicted
}

// Sweep runs Evict every interval until ctx is done.
func (s *Service) Sweep(ctx context.Context, interval time.Duration) {
	if s.options.IdleTTL <= 0 || interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Evict(s.options.Clock())
		}
	}
}

func (s *Service) touch(elem *list.Element) {
	elem.Value.(*Session).lastUsed = s.options.Clock()
	s.order.MoveToFront(elem)
}

func (s *Service) removeElement(elem *list.Element, reason string) {
	sess := elem.Value.(*Session)
	s.order.Remove(elem)
	delete(s.sessions, sess.id)
	s.options.Logger.Info("dropped session",
		zap.String("session_id", sess.id),
		zap.String("reason", reason),
	)
}

func New(registry *generator.Registry, opts ...Option) *Service {
	options := NewOptions(opts...)

	return &Service{
		options:  options,
		registry: registry,
		sessions: map[string]*list.Element{},
		order:    list.New(),
		mtx:      sync.RWMutex{},
	}
}

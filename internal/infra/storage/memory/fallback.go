package memory

import (
	"context"
	"sort"
	"sync"

	"villabook/internal/domain/reservation"
)

// FallbackStore keeps offline reservations for the life of the process.
type FallbackStore struct {
	mu      sync.RWMutex
	items   map[string]*reservation.Reservation
	failErr error
}

func NewFallbackStore() *FallbackStore {
	return &FallbackStore{items: make(map[string]*reservation.Reservation)}
}

// SetFailure makes writes fail with err until cleared with nil.
func (s *FallbackStore) SetFailure(err error) {
	s.mu.Lock()
	s.failErr = err
	s.mu.Unlock()
}

func (s *FallbackStore) Put(_ context.Context, r *reservation.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return s.failErr
	}
	s.items[r.LocalKey] = r.Clone()
	return nil
}

func (s *FallbackStore) Get(_ context.Context, localKey string) (*reservation.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.items[localKey]
	if !ok {
		return nil, reservation.ErrNotFound
	}
	return r.Clone(), nil
}

func (s *FallbackStore) List(_ context.Context) ([]*reservation.Reservation, error) {
	s.mu.RLock()
	out := make([]*reservation.Reservation, 0, len(s.items))
	for _, r := range s.items {
		out = append(out, r.Clone())
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *FallbackStore) Delete(_ context.Context, localKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return s.failErr
	}
	delete(s.items, localKey)
	return nil
}

var _ reservation.FallbackStore = (*FallbackStore)(nil)

package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"villabook/internal/domain/reservation"
)

// ReservationStore is the in-process remote collection used in dev and tests.
// Create checks overlap and code uniqueness under one lock.
type ReservationStore struct {
	mu       sync.RWMutex
	items    map[string]*reservation.Reservation
	byCode   map[reservation.Code]string
	seq      int
	watchers map[int]chan struct{}
	nextW    int

	faultMu sync.RWMutex
	failErr error
	latency time.Duration
}

func NewReservationStore() *ReservationStore {
	return &ReservationStore{
		items:    make(map[string]*reservation.Reservation),
		byCode:   make(map[reservation.Code]string),
		watchers: make(map[int]chan struct{}),
	}
}

// SetFailure makes every call fail with err until cleared with nil.
func (s *ReservationStore) SetFailure(err error) {
	s.faultMu.Lock()
	s.failErr = err
	s.faultMu.Unlock()
}

// SetLatency delays every call by d.
func (s *ReservationStore) SetLatency(d time.Duration) {
	s.faultMu.Lock()
	s.latency = d
	s.faultMu.Unlock()
}

func (s *ReservationStore) fault(ctx context.Context) error {
	s.faultMu.RLock()
	err, latency := s.failErr, s.latency
	s.faultMu.RUnlock()
	if latency > 0 {
		timer := time.NewTimer(latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}

func (s *ReservationStore) Create(ctx context.Context, r *reservation.Reservation) (string, error) {
	if err := s.fault(ctx); err != nil {
		return "", err
	}
	s.mu.Lock()
	if id, exists := s.byCode[r.ID]; exists {
		s.mu.Unlock()
		return id, reservation.ErrAlreadyStored
	}
	for _, other := range s.items {
		if r.Conflicts(other) {
			s.mu.Unlock()
			return "", fmt.Errorf("%w: overlaps %s", reservation.ErrAvailabilityConflict, other.ID)
		}
	}
	s.seq++
	id := fmt.Sprintf("res-%06d", s.seq)
	stored := r.Clone()
	stored.RemoteID = id
	stored.Origin = reservation.OriginRemote
	s.items[id] = stored
	s.byCode[r.ID] = id
	s.mu.Unlock()

	s.notify()
	return id, nil
}

func (s *ReservationStore) List(ctx context.Context) ([]*reservation.Reservation, error) {
	if err := s.fault(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]*reservation.Reservation, 0, len(s.items))
	for _, r := range s.items {
		out = append(out, r.Clone())
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].RemoteID < out[j].RemoteID })
	return out, nil
}

func (s *ReservationStore) Get(ctx context.Context, remoteID string) (*reservation.Reservation, error) {
	if err := s.fault(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.items[remoteID]
	if !ok {
		return nil, reservation.ErrNotFound
	}
	return r.Clone(), nil
}

// Update overwrites the stored document; last write wins.
func (s *ReservationStore) Update(ctx context.Context, r *reservation.Reservation) error {
	if err := s.fault(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	if _, ok := s.items[r.RemoteID]; !ok {
		s.mu.Unlock()
		return reservation.ErrNotFound
	}
	s.items[r.RemoteID] = r.Clone()
	s.mu.Unlock()
	s.notify()
	return nil
}

func (s *ReservationStore) Delete(ctx context.Context, remoteID string) error {
	if err := s.fault(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	r, ok := s.items[remoteID]
	if !ok {
		s.mu.Unlock()
		return reservation.ErrNotFound
	}
	delete(s.items, remoteID)
	delete(s.byCode, r.ID)
	s.mu.Unlock()
	s.notify()
	return nil
}

func (s *ReservationStore) Watch(ctx context.Context, onChange func()) error {
	ch := make(chan struct{}, 1)
	s.mu.Lock()
	id := s.nextW
	s.nextW++
	s.watchers[id] = ch
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.watchers, id)
		s.mu.Unlock()
	}()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
			onChange()
		}
	}
}

func (s *ReservationStore) notify() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

var _ reservation.RemoteStore = (*ReservationStore)(nil)

// Watchers counts active Watch calls.
func (s *ReservationStore) Watchers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.watchers)
}

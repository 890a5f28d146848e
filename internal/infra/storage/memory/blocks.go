package memory

import (
	"context"
	"sort"
	"sync"

	"villabook/internal/domain/availability"
)

type BlockStore struct {
	mu      sync.RWMutex
	items   map[availability.BlockID]*availability.BlockedRange
	failErr error
}

func NewBlockStore() *BlockStore {
	return &BlockStore{items: make(map[availability.BlockID]*availability.BlockedRange)}
}

func (s *BlockStore) SetFailure(err error) {
	s.mu.Lock()
	s.failErr = err
	s.mu.Unlock()
}

// List returns blocks ordered by start day.
func (s *BlockStore) List(_ context.Context) ([]*availability.BlockedRange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failErr != nil {
		return nil, s.failErr
	}
	out := make([]*availability.BlockedRange, 0, len(s.items))
	for _, b := range s.items {
		out = append(out, copyBlock(b))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Range.Start == out[j].Range.Start {
			return out[i].ID < out[j].ID
		}
		return out[i].Range.Start < out[j].Range.Start
	})
	return out, nil
}

func (s *BlockStore) Add(_ context.Context, block *availability.BlockedRange) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return s.failErr
	}
	s.items[block.ID] = copyBlock(block)
	return nil
}

func (s *BlockStore) Delete(_ context.Context, id availability.BlockID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return s.failErr
	}
	if _, ok := s.items[id]; !ok {
		return availability.ErrBlockNotFound
	}
	delete(s.items, id)
	return nil
}

func copyBlock(b *availability.BlockedRange) *availability.BlockedRange {
	return &availability.BlockedRange{ID: b.ID, Range: b.Range, Reason: b.Reason, UnitID: b.UnitID, CreatedAt: b.CreatedAt}
}

var _ availability.BlockStore = (*BlockStore)(nil)

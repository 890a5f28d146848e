package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"villabook/internal/domain/reservation"
	"villabook/internal/infra/storage/codec"
)

// FallbackStore keeps fallback reservations in one JSON file keyed by local
// key. Every write rewrites the whole file through a temp file and rename.
type FallbackStore struct {
	mu   sync.Mutex
	path string
}

func NewFallbackStore(path string) (*FallbackStore, error) {
	if path == "" {
		return nil, errors.New("file: fallback path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("file: create fallback dir: %w", err)
	}
	return &FallbackStore{path: path}, nil
}

func (s *FallbackStore) Put(_ context.Context, r *reservation.Reservation) error {
	if r.LocalKey == "" {
		return errors.New("file: fallback reservation needs a local key")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.read()
	if err != nil {
		return err
	}
	records[r.LocalKey] = codec.RecordOf(r)
	return s.write(records)
}

func (s *FallbackStore) Get(_ context.Context, localKey string) (*reservation.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.read()
	if err != nil {
		return nil, err
	}
	rec, ok := records[localKey]
	if !ok {
		return nil, reservation.ErrNotFound
	}
	return rec.Reservation(), nil
}

func (s *FallbackStore) List(_ context.Context) ([]*reservation.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.read()
	if err != nil {
		return nil, err
	}
	out := make([]*reservation.Reservation, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.Reservation())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *FallbackStore) Delete(_ context.Context, localKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.read()
	if err != nil {
		return err
	}
	if _, ok := records[localKey]; !ok {
		return reservation.ErrNotFound
	}
	delete(records, localKey)
	return s.write(records)
}

func (s *FallbackStore) read() (map[string]codec.ReservationRecord, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]codec.ReservationRecord{}, nil
	}
	if err != nil {
		return nil, err
	}
	records := map[string]codec.ReservationRecord{}
	if len(data) == 0 {
		return records, nil
	}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("file: corrupt fallback file %s: %w", s.path, err)
	}
	return records, nil
}

func (s *FallbackStore) write(records map[string]codec.ReservationRecord) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".fallback-*.json")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

var _ reservation.FallbackStore = (*FallbackStore)(nil)

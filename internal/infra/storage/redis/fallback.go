package redisstore

import (
	"context"
	"errors"
	"sort"

	"github.com/go-redis/redis/v8"

	"villabook/internal/domain/reservation"
	"villabook/internal/infra/storage/codec"
)

// FallbackStore keeps fallback reservations in one hash, field = local key.
type FallbackStore struct {
	client *redis.Client
	key    string
}

func NewFallbackStore(client *redis.Client, prefix string) *FallbackStore {
	return &FallbackStore{client: client, key: prefix + "fallback:reservations"}
}

func (s *FallbackStore) Put(ctx context.Context, r *reservation.Reservation) error {
	if r.LocalKey == "" {
		return errors.New("redis: fallback reservation needs a local key")
	}
	data, err := codec.Marshal(r)
	if err != nil {
		return err
	}
	return s.client.HSet(ctx, s.key, r.LocalKey, data).Err()
}

func (s *FallbackStore) Get(ctx context.Context, localKey string) (*reservation.Reservation, error) {
	data, err := s.client.HGet(ctx, s.key, localKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, reservation.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return codec.Unmarshal(data)
}

// List returns entries oldest first.
func (s *FallbackStore) List(ctx context.Context) ([]*reservation.Reservation, error) {
	all, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, err
	}
	out := make([]*reservation.Reservation, 0, len(all))
	for _, raw := range all {
		r, err := codec.Unmarshal([]byte(raw))
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *FallbackStore) Delete(ctx context.Context, localKey string) error {
	n, err := s.client.HDel(ctx, s.key, localKey).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return reservation.ErrNotFound
	}
	return nil
}

var _ reservation.FallbackStore = (*FallbackStore)(nil)

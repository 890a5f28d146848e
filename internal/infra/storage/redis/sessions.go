package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"

	domainauth "villabook/internal/domain/auth"
)

// SessionStore keeps admin sessions as keys that expire with the session.
type SessionStore struct {
	client *redis.Client
	prefix string
}

func NewSessionStore(client *redis.Client, prefix string) *SessionStore {
	return &SessionStore{client: client, prefix: prefix + "session:"}
}

type sessionRecord struct {
	Admin     string    `json:"admin"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (s *SessionStore) Save(ctx context.Context, session *domainauth.Session) error {
	ttl := session.Remaining(time.Now())
	if ttl <= 0 {
		return domainauth.ErrSessionExpired
	}
	data, err := json.Marshal(sessionRecord{Admin: session.Admin, CreatedAt: session.CreatedAt, ExpiresAt: session.ExpiresAt})
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.prefix+string(session.Token), data, ttl).Err()
}

func (s *SessionStore) Get(ctx context.Context, token domainauth.Token) (*domainauth.Session, error) {
	data, err := s.client.Get(ctx, s.prefix+string(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domainauth.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	var rec sessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &domainauth.Session{Token: token, Admin: rec.Admin, CreatedAt: rec.CreatedAt, ExpiresAt: rec.ExpiresAt}, nil
}

func (s *SessionStore) Delete(ctx context.Context, token domainauth.Token) error {
	return s.client.Del(ctx, s.prefix+string(token)).Err()
}

var _ domainauth.SessionStore = (*SessionStore)(nil)

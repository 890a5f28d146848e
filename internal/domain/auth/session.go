package auth

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrTokenRequired   = errors.New("auth: token is required")
	ErrAdminRequired   = errors.New("auth: admin name is required")
	ErrTTLInvalid      = errors.New("auth: ttl must be positive")
	ErrSessionNotFound = errors.New("auth: session not found")
	ErrSessionExpired  = errors.New("auth: session expired")
)

type Token string

// Session is a server-issued admin login.
type Session struct {
	Token     Token
	Admin     string
	CreatedAt time.Time
	ExpiresAt time.Time
}

type CreateSessionParams struct {
	Token Token
	Admin string
	TTL   time.Duration
	Now   time.Time
}

func NewSession(params CreateSessionParams) (*Session, error) {
	token := strings.TrimSpace(string(params.Token))
	if token == "" {
		return nil, ErrTokenRequired
	}
	admin := strings.TrimSpace(params.Admin)
	if admin == "" {
		return nil, ErrAdminRequired
	}
	if params.TTL <= 0 {
		return nil, ErrTTLInvalid
	}
	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()
	return &Session{
		Token:     Token(token),
		Admin:     admin,
		CreatedAt: now,
		ExpiresAt: now.Add(params.TTL),
	}, nil
}

func (s *Session) Expired(at time.Time) bool {
	if at.IsZero() {
		at = time.Now()
	}
	return !s.ExpiresAt.After(at.UTC())
}

// TTL left at the given instant, never negative.
func (s *Session) Remaining(at time.Time) time.Duration {
	left := s.ExpiresAt.Sub(at.UTC())
	if left < 0 {
		return 0
	}
	return left
}

type SessionStore interface {
	Save(ctx context.Context, session *Session) error
	Get(ctx context.Context, token Token) (*Session, error)
	Delete(ctx context.Context, token Token) error
}

type principalKey struct{}

// WithPrincipal stores the verified session on ctx.
func WithPrincipal(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, principalKey{}, s)
}

func PrincipalFromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(principalKey{}).(*Session)
	return s, ok && s != nil
}

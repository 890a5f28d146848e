package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSession(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	s, err := NewSession(CreateSessionParams{Token: " tok ", Admin: "admin", TTL: time.Hour, Now: now})
	require.NoError(t, err)
	assert.Equal(t, Token("tok"), s.Token)
	assert.False(t, s.Expired(now.Add(59*time.Minute)))
	assert.True(t, s.Expired(now.Add(time.Hour)))
	assert.Equal(t, 30*time.Minute, s.Remaining(now.Add(30*time.Minute)))
	assert.Zero(t, s.Remaining(now.Add(2*time.Hour)))

	_, err = NewSession(CreateSessionParams{Admin: "admin", TTL: time.Hour})
	assert.ErrorIs(t, err, ErrTokenRequired)
	_, err = NewSession(CreateSessionParams{Token: "t", TTL: time.Hour})
	assert.ErrorIs(t, err, ErrAdminRequired)
	_, err = NewSession(CreateSessionParams{Token: "t", Admin: "a"})
	assert.ErrorIs(t, err, ErrTTLInvalid)
}

func TestPrincipalContext(t *testing.T) {
	_, ok := PrincipalFromContext(context.Background())
	assert.False(t, ok)

	s := &Session{Token: "t", Admin: "admin"}
	got, ok := PrincipalFromContext(WithPrincipal(context.Background(), s))
	require.True(t, ok)
	assert.Same(t, s, got)
}

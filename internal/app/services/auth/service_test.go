package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "villabook/internal/domain/auth"
	"villabook/internal/infra/security"
	"villabook/internal/infra/storage/memory"
)

func newService(t *testing.T, now *time.Time) *Service {
	t.Helper()
	hasher := security.BcryptHasher{Cost: 4}
	hash, err := hasher.Hash("maribella-2026")
	require.NoError(t, err)
	return &Service{
		PasswordHash: hash,
		Sessions:     memory.NewSessionStore(),
		Passwords:    hasher,
		Tokens:       security.RandomTokenGenerator{},
		SessionTTL:   time.Hour,
		Now:          func() time.Time { return *now },
	}
}

func TestLoginResolveLogout(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	svc := newService(t, &now)

	res, err := svc.Login(ctx, "maribella-2026")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "admin", res.Admin)

	session, err := svc.Resolve(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, "admin", session.Admin)

	require.NoError(t, svc.Logout(ctx, res.Token))
	_, err = svc.Resolve(ctx, res.Token)
	assert.ErrorIs(t, err, domainauth.ErrSessionNotFound)
}

func TestLogin_RejectsWrongPassword(t *testing.T) {
	now := time.Now()
	svc := newService(t, &now)
	_, err := svc.Login(context.Background(), "1234")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_RequiresConfiguredHash(t *testing.T) {
	now := time.Now()
	svc := newService(t, &now)
	svc.PasswordHash = ""
	_, err := svc.Login(context.Background(), "anything")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestResolve_ExpiredSession(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	svc := newService(t, &now)
	res, err := svc.Login(ctx, "maribella-2026")
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	_, err = svc.Resolve(ctx, res.Token)
	assert.Error(t, err)
	_, err = svc.Resolve(ctx, "")
	assert.ErrorIs(t, err, domainauth.ErrTokenRequired)
}

type adminCommand struct{}

func (adminCommand) Key() string { return "admin.test" }
func (adminCommand) AdminOnly()  {}

type publicCommand struct{}

func (publicCommand) Key() string { return "public.test" }

func TestAdminAuthorizer(t *testing.T) {
	var a AdminAuthorizer
	ctx := context.Background()
	assert.NoError(t, a.Authorize(ctx, publicCommand{}))
	assert.ErrorIs(t, a.Authorize(ctx, adminCommand{}), ErrUnauthorized)

	session, err := domainauth.NewSession(domainauth.CreateSessionParams{Token: "t", Admin: "admin", TTL: time.Minute})
	require.NoError(t, err)
	assert.NoError(t, a.Authorize(domainauth.WithPrincipal(ctx, session), adminCommand{}))
}

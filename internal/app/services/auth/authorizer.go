package auth

import (
	"context"

	domainauth "villabook/internal/domain/auth"
)

// AdminOnly marks bus messages that need a verified admin session.
type AdminOnly interface {
	AdminOnly()
}

// AdminAuthorizer rejects AdminOnly messages dispatched without a principal.
type AdminAuthorizer struct{}

func (AdminAuthorizer) Authorize(ctx context.Context, message any) error {
	if _, ok := message.(AdminOnly); !ok {
		return nil
	}
	if _, ok := domainauth.PrincipalFromContext(ctx); !ok {
		return ErrUnauthorized
	}
	return nil
}

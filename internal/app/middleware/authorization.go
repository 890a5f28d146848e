package middleware

import (
	"context"

	"villabook/internal/app/commands"
	"villabook/internal/app/queries"
)

// Authorizer decides whether the caller in ctx may run message. Admin-only
// commands and queries are rejected before they reach a handler.
type Authorizer interface {
	Authorize(ctx context.Context, message any) error
}

type AuthorizerFunc func(ctx context.Context, message any) error

func (f AuthorizerFunc) Authorize(ctx context.Context, message any) error { return f(ctx, message) }

func Authorization(a Authorizer) CommandMiddleware {
	mustAuthorizer(a)
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			if err := a.Authorize(ctx, cmd); err != nil {
				return nil, err
			}
			return next.Dispatch(ctx, cmd)
		})
	}
}

func QueryAuthorization(a Authorizer) QueryMiddleware {
	mustAuthorizer(a)
	return func(next queries.Bus) queries.Bus {
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			if err := a.Authorize(ctx, q); err != nil {
				return nil, err
			}
			return next.Ask(ctx, q)
		})
	}
}

func mustAuthorizer(a Authorizer) {
	if a == nil {
		panic("middleware: authorizer required")
	}
}

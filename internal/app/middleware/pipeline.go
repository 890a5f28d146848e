package middleware

import (
	"context"

	"villabook/internal/app/commands"
	"villabook/internal/app/queries"
)

// CommandMiddleware decorates the command bus.
type CommandMiddleware func(next commands.Bus) commands.Bus

// QueryMiddleware decorates the query bus.
type QueryMiddleware func(next queries.Bus) queries.Bus

// ChainCommands wraps base so the first middleware sees a command first.
// Nil entries are skipped, which lets optional stages be listed inline.
func ChainCommands(base commands.Bus, mws ...CommandMiddleware) commands.Bus {
	return chain(base, mws)
}

// ChainQueries is ChainCommands for the query side.
func ChainQueries(base queries.Bus, mws ...QueryMiddleware) queries.Bus {
	return chain(base, mws)
}

func chain[B any, M ~func(B) B](base B, mws []M) B {
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] != nil {
			base = mws[i](base)
		}
	}
	return base
}

type commandFunc func(ctx context.Context, cmd commands.Command) (any, error)

func (f commandFunc) Dispatch(ctx context.Context, cmd commands.Command) (any, error) {
	return f(ctx, cmd)
}

type queryFunc func(ctx context.Context, q queries.Query) (any, error)

func (f queryFunc) Ask(ctx context.Context, q queries.Query) (any, error) {
	return f(ctx, q)
}

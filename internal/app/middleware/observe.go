package middleware

import (
	"context"
	"log/slog"
	"time"

	"villabook/internal/app/commands"
	"villabook/internal/app/queries"
)

// Observer receives the outcome of every dispatched message.
type Observer interface {
	ObserveMessage(kind, key string, elapsed time.Duration, err error)
}

func Observe(logger *slog.Logger, obs Observer) CommandMiddleware {
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			started := time.Now()
			res, err := next.Dispatch(ctx, cmd)
			report(logger, obs, "command", cmd.Key(), time.Since(started), err)
			return res, err
		})
	}
}

func ObserveQueries(logger *slog.Logger, obs Observer) QueryMiddleware {
	return func(next queries.Bus) queries.Bus {
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			started := time.Now()
			res, err := next.Ask(ctx, q)
			report(logger, obs, "query", q.Key(), time.Since(started), err)
			return res, err
		})
	}
}

func report(logger *slog.Logger, obs Observer, kind, key string, elapsed time.Duration, err error) {
	if obs != nil {
		obs.ObserveMessage(kind, key, elapsed, err)
	}
	if logger == nil {
		return
	}
	if err != nil {
		logger.Debug(kind+" failed", "key", key, "elapsed", elapsed, "error", err)
		return
	}
	logger.Debug(kind+" handled", "key", key, "elapsed", elapsed)
}

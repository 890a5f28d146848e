package middleware

import (
	"context"
	"log/slog"

	"villabook/internal/app/commands"
	"villabook/internal/app/outbox"
)

// OutboxFlush flushes buffered events once a command succeeds. A flush
// failure is logged and does not undo the command; the events stay buffered
// for the next flush.
func OutboxFlush(box outbox.Outbox, logger *slog.Logger) CommandMiddleware {
	if box == nil {
		panic("middleware: outbox required")
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			res, err := next.Dispatch(ctx, cmd)
			if err != nil {
				return nil, err
			}
			if err := box.Flush(ctx); err != nil && logger != nil {
				logger.Warn("outbox flush failed", "command", cmd.Key(), "error", err)
			}
			return res, nil
		})
	}
}

package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"villabook/internal/app/policies"
	"villabook/internal/domain/shared/money"
)

var ErrUnsupportedMethod = errors.New("payments: unsupported method")

// Simulated approves every charge after Delay. No money moves.
type Simulated struct {
	Delay  time.Duration
	Logger *slog.Logger
}

func (p Simulated) Charge(ctx context.Context, code string, method string, amount money.Money) (string, error) {
	switch method {
	case "card", "paypal", "transfer":
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedMethod, method)
	}
	if p.Delay > 0 {
		timer := time.NewTimer(p.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
		}
	}
	ref := "sim_" + uuid.NewString()
	if p.Logger != nil {
		p.Logger.Info("payment simulated", "code", code, "method", method, "amount", amount.String(), "reference", ref)
	}
	return ref, nil
}

var _ policies.PaymentsPort = Simulated{}

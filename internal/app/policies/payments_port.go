package policies

import (
	"context"

	"villabook/internal/domain/shared/money"
)

// PaymentsPort settles a reservation before it is written. Method is one of
// card, paypal or transfer; the returned reference is informational only.
type PaymentsPort interface {
	Charge(ctx context.Context, reservationCode string, method string, amount money.Money) (string, error)
}

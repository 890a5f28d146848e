package booking

import (
	"errors"
	"fmt"
)

var (
	ErrRemoteTimeout = errors.New("booking: remote write timed out")
	ErrCodeTaken     = errors.New("booking: confirmation code belongs to another reservation")
	ErrNoFreeCode    = errors.New("booking: could not draw an unused confirmation code")
	ErrPayment       = errors.New("booking: payment failed")
)

// PersistenceError means neither the remote store nor the local fallback
// accepted the reservation. The guest should retry.
type PersistenceError struct {
	Remote error
	Local  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("booking: reservation not stored (remote: %v; fallback: %v)", e.Remote, e.Local)
}

func (e *PersistenceError) Unwrap() []error {
	return []error{e.Remote, e.Local}
}

// NotificationError wraps a failed confirmation email. It is only logged.
type NotificationError struct {
	Code string
	Err  error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("booking: notification for %s failed: %v", e.Code, e.Err)
}

func (e *NotificationError) Unwrap() error { return e.Err }

package reservation

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"villabook/internal/domain/shared/daterange"
	"villabook/internal/domain/shared/events"
	"villabook/internal/domain/shared/money"
	"villabook/internal/domain/units"
)

var (
	ErrNotFound             = errors.New("reservation: not found")
	ErrAlreadyStored        = errors.New("reservation: confirmation code already stored")
	ErrAvailabilityConflict = errors.New("reservation: dates are not available")
	ErrLocalOnly            = errors.New("reservation: reservation exists only in the local fallback")
	ErrInvalidStatus        = errors.New("reservation: invalid status")
	ErrInvalidPayment       = errors.New("reservation: invalid payment method")
)

// Code is the human-readable confirmation code handed to the guest.
type Code string

const codePrefix = "VM-"

// NewCode draws a code in the VM-0..VM-99999 space. Uniqueness is the
// caller's concern.
func NewCode() Code {
	return Code(fmt.Sprintf("%s%d", codePrefix, rand.IntN(100000)))
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

func ParseStatus(raw string) (Status, error) {
	switch s := Status(strings.ToLower(strings.TrimSpace(raw))); s {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return s, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
}

type PaymentMethod string

const (
	PaymentCard     PaymentMethod = "card"
	PaymentPayPal   PaymentMethod = "paypal"
	PaymentTransfer PaymentMethod = "transfer"
)

func ParsePaymentMethod(raw string) (PaymentMethod, error) {
	switch m := PaymentMethod(strings.ToLower(strings.TrimSpace(raw))); m {
	case PaymentCard, PaymentPayPal, PaymentTransfer:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPayment, raw)
	}
}

// InitialStatus: bank transfers wait for manual validation, everything else
// is confirmed at checkout.
func (m PaymentMethod) InitialStatus() Status {
	if m == PaymentTransfer {
		return StatusPending
	}
	return StatusConfirmed
}

type Origin string

const (
	OriginRemote        Origin = "remote"
	OriginLocalFallback Origin = "local-fallback"
)

type Reservation struct {
	ID            Code
	RemoteID      string
	LocalKey      string
	UnitID        units.UnitID
	GuestName     string
	GuestEmail    string
	Range         daterange.DateRange
	NumGuests     int
	Total         money.Money
	Status        Status
	PaymentMethod PaymentMethod
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Origin        Origin
	Sync          SyncState
	events.EventRecorder
}

type CreateParams struct {
	ID        Code
	Draft     ValidDraft
	CreatedAt time.Time
}

// New builds a submitted reservation from a validated draft.
func New(params CreateParams) (*Reservation, error) {
	if params.ID == "" {
		return nil, errors.New("reservation: confirmation code required")
	}
	d := params.Draft
	now := params.CreatedAt.UTC()
	r := &Reservation{
		ID:            params.ID,
		UnitID:        d.Unit.ID,
		GuestName:     d.GuestName,
		GuestEmail:    d.GuestEmail,
		Range:         d.Range,
		NumGuests:     d.NumGuests,
		Total:         d.Quote.Total,
		Status:        d.PaymentMethod.InitialStatus(),
		PaymentMethod: d.PaymentMethod,
		CreatedAt:     now,
		UpdatedAt:     now,
		Sync:          SyncSubmitted,
	}
	return r, nil
}

// Active reservations hold their dates.
func (r *Reservation) Active() bool {
	return r.Status == StatusPending || r.Status == StatusConfirmed
}

// OnUnit applies the legacy identifier shim.
func (r *Reservation) OnUnit(unit units.UnitID) bool {
	return units.Matches(string(r.UnitID), unit)
}

// Conflicts reports whether r and other would double-book the same unit.
func (r *Reservation) Conflicts(other *Reservation) bool {
	if r == nil || other == nil || r.ID == other.ID {
		return false
	}
	if !r.Active() || !other.Active() {
		return false
	}
	if !r.OnUnit(other.UnitID) && !other.OnUnit(r.UnitID) {
		return false
	}
	return r.Range.Overlaps(other.Range)
}

// Offline is true while the reservation lives only in the local fallback.
func (r *Reservation) Offline() bool {
	return r.Origin == OriginLocalFallback && r.RemoteID == ""
}

// Clone copies the record without pending events.
func (r *Reservation) Clone() *Reservation {
	if r == nil {
		return nil
	}
	out := *r
	out.EventRecorder = events.EventRecorder{}
	return &out
}

// ConfirmRemote records a successful remote write.
func (r *Reservation) ConfirmRemote(remoteID string, now time.Time) error {
	if err := r.advance(SyncRemoteConfirmed); err != nil {
		return err
	}
	r.RemoteID = remoteID
	r.Origin = OriginRemote
	r.UpdatedAt = now.UTC()
	r.Record(Created{Code: r.ID, RemoteID: remoteID, UnitID: r.UnitID, Range: r.Range, Total: r.Total, Status: r.Status, At: r.UpdatedAt})
	return nil
}

// FallBack records that the remote write failed and the record went to the
// local store under localKey.
func (r *Reservation) FallBack(localKey string, cause error, now time.Time) error {
	if err := r.advance(SyncRemoteFailed); err != nil {
		return err
	}
	if err := r.advance(SyncLocalFallback); err != nil {
		return err
	}
	r.LocalKey = localKey
	r.Origin = OriginLocalFallback
	r.UpdatedAt = now.UTC()
	reason := ""
	if cause != nil {
		reason = cause.Error()
	}
	r.Record(FallbackStored{Code: r.ID, LocalKey: localKey, UnitID: r.UnitID, Range: r.Range, Reason: reason, At: r.UpdatedAt})
	return nil
}

// Promote replaces the fallback copy with the remote one.
func (r *Reservation) Promote(remoteID string, now time.Time) error {
	if err := r.advance(SyncReconciled); err != nil {
		return err
	}
	r.RemoteID = remoteID
	r.Origin = OriginRemote
	r.UpdatedAt = now.UTC()
	r.Record(Reconciled{Code: r.ID, RemoteID: remoteID, LocalKey: r.LocalKey, At: r.UpdatedAt})
	return nil
}

// Rekey swaps the confirmation code of a reservation the remote store has
// not accepted.
func (r *Reservation) Rekey(code Code) error {
	if code == "" {
		return errors.New("reservation: confirmation code required")
	}
	if r.Sync != SyncRemotePending && r.Sync != SyncLocalFallback {
		return fmt.Errorf("%w: rekey in %s", ErrInvalidTransition, r.Sync)
	}
	r.ID = code
	return nil
}

// MarkDeleted records the removal so subscribers can drop the dates.
func (r *Reservation) MarkDeleted(now time.Time) {
	r.Record(Deleted{Code: r.ID, RemoteID: r.RemoteID, UnitID: r.UnitID, Range: r.Range, At: now.UTC()})
}

// Patch carries admin edits; nil fields stay untouched.
type Patch struct {
	GuestName  *string
	GuestEmail *string
	CheckIn    *string
	CheckOut   *string
	NumGuests  *int
	Status     *Status
}

// Apply validates the edit against the unit and recomputes the total from its
// nightly rate.
func (r *Reservation) Apply(p Patch, unit units.Unit, now time.Time) error {
	next := r.Clone()
	verr := &ValidationError{}
	if p.GuestName != nil {
		next.GuestName = strings.TrimSpace(*p.GuestName)
	}
	if p.GuestEmail != nil {
		next.GuestEmail = strings.TrimSpace(*p.GuestEmail)
	}
	if next.GuestName == "" {
		verr.add("guestName", "guest name is required")
	}
	if !validEmail(next.GuestEmail) {
		verr.add("guestEmail", "guest email is invalid")
	}
	checkIn, checkOut := string(r.Range.CheckIn), string(r.Range.CheckOut)
	if p.CheckIn != nil {
		checkIn = *p.CheckIn
	}
	if p.CheckOut != nil {
		checkOut = *p.CheckOut
	}
	dr, err := daterange.Parse(checkIn, checkOut)
	if err != nil {
		verr.add("checkOut", "check-out must be after check-in")
	} else {
		next.Range = dr
	}
	if p.NumGuests != nil {
		next.NumGuests = *p.NumGuests
	}
	if next.NumGuests < 1 || next.NumGuests > unit.MaxGuests {
		verr.add("numGuests", fmt.Sprintf("guests must be between 1 and %d", unit.MaxGuests))
	}
	if p.Status != nil {
		if _, err := ParseStatus(string(*p.Status)); err != nil {
			verr.add("status", "unknown status")
		} else {
			next.Status = *p.Status
		}
	}
	if verr.HasErrors() {
		return verr
	}
	next.Total = unit.Quote(next.Range).Total
	next.UpdatedAt = now.UTC()

	pending := r.EventRecorder
	*r = *next
	r.EventRecorder = pending
	r.Record(Updated{Code: r.ID, RemoteID: r.RemoteID, UnitID: r.UnitID, Range: r.Range, Status: r.Status, At: r.UpdatedAt})
	return nil
}

// RemoteStore is the shared document collection of reservations.
type RemoteStore interface {
	// Create persists r and returns the store-assigned id. It fails with
	// ErrAvailabilityConflict when an active reservation on the same unit
	// overlaps, and with ErrAlreadyStored (plus the existing id) when the
	// confirmation code is already present.
	Create(ctx context.Context, r *Reservation) (string, error)
	List(ctx context.Context) ([]*Reservation, error)
	Get(ctx context.Context, remoteID string) (*Reservation, error)
	Update(ctx context.Context, r *Reservation) error
	Delete(ctx context.Context, remoteID string) error
	// Watch blocks until ctx ends, calling onChange after every change.
	Watch(ctx context.Context, onChange func()) error
}

// FallbackStore keeps reservations that could not reach the remote store.
// Records are keyed by LocalKey.
type FallbackStore interface {
	Put(ctx context.Context, r *Reservation) error
	Get(ctx context.Context, localKey string) (*Reservation, error)
	List(ctx context.Context) ([]*Reservation, error)
	Delete(ctx context.Context, localKey string) error
}

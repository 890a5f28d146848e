package reservation

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"villabook/internal/domain/shared/daterange"
	"villabook/internal/domain/units"
)

var now = time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)

func validDraft() Draft {
	return Draft{
		UnitID:        "4D",
		GuestName:     "Ana Pérez",
		GuestEmail:    "ana@example.com",
		CheckIn:       "2026-01-10",
		CheckOut:      "2026-01-13",
		NumGuests:     4,
		PaymentMethod: "card",
	}
}

func newReservation(t *testing.T, d Draft, code Code) *Reservation {
	t.Helper()
	vd, err := d.Validate(units.DefaultCatalog())
	require.NoError(t, err)
	r, err := New(CreateParams{ID: code, Draft: vd, CreatedAt: now})
	require.NoError(t, err)
	return r
}

func TestDraftValidate_QuotesTotal(t *testing.T) {
	vd, err := validDraft().Validate(units.DefaultCatalog())
	require.NoError(t, err)
	assert.Equal(t, 3, vd.Quote.Nights)
	assert.Equal(t, "$255.00", vd.Quote.Total.String())
	assert.Equal(t, PaymentCard, vd.PaymentMethod)
}

func TestDraftValidate_RejectsTooManyGuests(t *testing.T) {
	d := validDraft()
	d.NumGuests = 5

	_, err := d.Validate(units.DefaultCatalog())
	require.ErrorIs(t, err, ErrValidation)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.True(t, verr.Has("numGuests"))
	assert.Len(t, verr.Fields, 1)
}

func TestDraftValidate_RejectsReversedDates(t *testing.T) {
	d := validDraft()
	d.CheckIn, d.CheckOut = "2026-01-13", "2026-01-13"

	_, err := d.Validate(units.DefaultCatalog())
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.True(t, verr.Has("checkOut"))
}

func TestDraftValidate_CollectsEveryField(t *testing.T) {
	d := Draft{UnitID: "9Z", CheckIn: "bad", CheckOut: "2026-01-13", PaymentMethod: "cash"}

	_, err := d.Validate(units.DefaultCatalog())
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	for _, field := range []string{"unitId", "guestName", "guestEmail", "checkIn", "numGuests", "paymentMethod"} {
		assert.True(t, verr.Has(field), field)
	}
	assert.True(t, strings.HasPrefix(verr.Error(), "reservation: validation failed: "))
}

func TestDraftValidate_RejectsMalformedEmail(t *testing.T) {
	d := validDraft()
	d.GuestEmail = "Ana <ana@example.com>"
	_, err := d.Validate(units.DefaultCatalog())
	assert.ErrorIs(t, err, ErrValidation)

	d.GuestEmail = "ana.example.com"
	_, err = d.Validate(units.DefaultCatalog())
	assert.ErrorIs(t, err, ErrValidation)
}

func TestNew_StatusFollowsPaymentMethod(t *testing.T) {
	card := newReservation(t, validDraft(), "VM-1")
	assert.Equal(t, StatusConfirmed, card.Status)
	assert.Equal(t, SyncSubmitted, card.Sync)

	d := validDraft()
	d.PaymentMethod = "transfer"
	transfer := newReservation(t, d, "VM-2")
	assert.Equal(t, StatusPending, transfer.Status)

	d.PaymentMethod = "PayPal"
	paypal := newReservation(t, d, "VM-3")
	assert.Equal(t, StatusConfirmed, paypal.Status)
}

func TestNewCode_Format(t *testing.T) {
	for i := 0; i < 50; i++ {
		code := string(NewCode())
		require.True(t, strings.HasPrefix(code, "VM-"))
		assert.LessOrEqual(t, len(code), len("VM-99999"))
	}
}

func TestConflicts(t *testing.T) {
	a := newReservation(t, validDraft(), "VM-1")

	d := validDraft()
	d.CheckIn, d.CheckOut = "2026-01-12", "2026-01-15"
	overlapping := newReservation(t, d, "VM-2")
	assert.True(t, a.Conflicts(overlapping))

	d.CheckIn, d.CheckOut = "2026-01-13", "2026-01-15"
	adjacent := newReservation(t, d, "VM-3")
	assert.False(t, a.Conflicts(adjacent))

	d = validDraft()
	d.UnitID = "5E"
	otherUnit := newReservation(t, d, "VM-4")
	assert.False(t, a.Conflicts(otherUnit))

	cancelled := newReservation(t, validDraft(), "VM-5")
	cancelled.Status = StatusCancelled
	assert.False(t, a.Conflicts(cancelled))

	assert.False(t, a.Conflicts(a))
}

func TestSync_HappyPathAndFallback(t *testing.T) {
	r := newReservation(t, validDraft(), "VM-1")
	require.NoError(t, r.BeginRemote())
	require.NoError(t, r.ConfirmRemote("abc", now))
	assert.Equal(t, OriginRemote, r.Origin)
	assert.Equal(t, SyncRemoteConfirmed, r.Sync)
	assert.True(t, r.Sync.Terminal())
	assert.ErrorIs(t, r.Promote("abc", now), ErrInvalidTransition)

	events := r.Drain()
	require.Len(t, events, 1)
	assert.Equal(t, EventCreated, events[0].EventName())

	f := newReservation(t, validDraft(), "VM-2")
	assert.ErrorIs(t, f.FallBack("local_1", errors.New("timeout"), now), ErrInvalidTransition)
	require.NoError(t, f.BeginRemote())
	require.NoError(t, f.FallBack("local_1", errors.New("timeout"), now))
	assert.True(t, f.Offline())
	assert.Equal(t, SyncLocalFallback, f.Sync)

	require.NoError(t, f.Promote("remote-9", now))
	assert.Equal(t, SyncReconciled, f.Sync)
	assert.Equal(t, OriginRemote, f.Origin)
	assert.False(t, f.Offline())
	names := []string{}
	for _, e := range f.Drain() {
		names = append(names, e.EventName())
	}
	assert.Equal(t, []string{EventFallbackStored, EventReconciled}, names)
}

func TestApply_RecomputesTotalWithUnitRate(t *testing.T) {
	r := newReservation(t, validDraft(), "VM-1")
	unit, _ := units.DefaultCatalog().ByID("4D")
	out := "2026-01-15"
	cancelled := StatusCancelled

	require.NoError(t, r.Apply(Patch{CheckOut: &out, Status: &cancelled}, unit, now.Add(time.Hour)))
	assert.Equal(t, daterange.Day("2026-01-15"), r.Range.CheckOut)
	assert.Equal(t, "$425.00", r.Total.String())
	assert.Equal(t, StatusCancelled, r.Status)
	assert.Equal(t, EventUpdated, r.PendingEvents()[0].EventName())
}

func TestApply_RejectsInvalidPatchAndLeavesRecord(t *testing.T) {
	r := newReservation(t, validDraft(), "VM-1")
	unit, _ := units.DefaultCatalog().ByID("4D")
	guests := 7
	in := "2026-01-20"

	err := r.Apply(Patch{NumGuests: &guests, CheckIn: &in}, unit, now)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.True(t, verr.Has("numGuests"))
	assert.True(t, verr.Has("checkOut"))
	assert.Equal(t, 4, r.NumGuests)
	assert.Equal(t, "$255.00", r.Total.String())
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus(" Cancelled ")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, s)
	_, err = ParseStatus("archived")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

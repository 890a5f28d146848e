package mongo

import (
	"time"

	"villabook/internal/domain/availability"
	"villabook/internal/domain/reservation"
	"villabook/internal/domain/shared/daterange"
	"villabook/internal/domain/shared/money"
	"villabook/internal/domain/units"
)

// Dates are stored as YYYY-MM-DD strings so range filters compare them
// lexically, the same way the domain does.
type reservationDocument struct {
	ID            string    `bson:"_id"`
	Code          string    `bson:"code"`
	UnitID        string    `bson:"unit_id"`
	GuestName     string    `bson:"guest_name"`
	GuestEmail    string    `bson:"guest_email"`
	CheckIn       string    `bson:"check_in"`
	CheckOut      string    `bson:"check_out"`
	NumGuests     int       `bson:"num_guests"`
	TotalCents    int64     `bson:"total_cents"`
	Currency      string    `bson:"currency"`
	Status        string    `bson:"status"`
	PaymentMethod string    `bson:"payment_method"`
	LocalKey      string    `bson:"local_key,omitempty"`
	CreatedAt     time.Time `bson:"created_at"`
	UpdatedAt     time.Time `bson:"updated_at"`
}

func newReservationDocument(id string, r *reservation.Reservation) reservationDocument {
	return reservationDocument{
		ID:            id,
		Code:          string(r.ID),
		UnitID:        string(r.UnitID),
		GuestName:     r.GuestName,
		GuestEmail:    r.GuestEmail,
		CheckIn:       string(r.Range.CheckIn),
		CheckOut:      string(r.Range.CheckOut),
		NumGuests:     r.NumGuests,
		TotalCents:    r.Total.Cents,
		Currency:      r.Total.Currency,
		Status:        string(r.Status),
		PaymentMethod: string(r.PaymentMethod),
		LocalKey:      r.LocalKey,
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
	}
}

func (d reservationDocument) toAggregate() *reservation.Reservation {
	currency := d.Currency
	if currency == "" {
		currency = money.DefaultCurrency
	}
	return &reservation.Reservation{
		ID:            reservation.Code(d.Code),
		RemoteID:      d.ID,
		LocalKey:      d.LocalKey,
		UnitID:        units.UnitID(d.UnitID),
		GuestName:     d.GuestName,
		GuestEmail:    d.GuestEmail,
		Range:         daterange.DateRange{CheckIn: daterange.Day(d.CheckIn), CheckOut: daterange.Day(d.CheckOut)},
		NumGuests:     d.NumGuests,
		Total:         money.Money{Cents: d.TotalCents, Currency: currency},
		Status:        reservation.Status(d.Status),
		PaymentMethod: reservation.PaymentMethod(d.PaymentMethod),
		CreatedAt:     d.CreatedAt.UTC(),
		UpdatedAt:     d.UpdatedAt.UTC(),
		Origin:        reservation.OriginRemote,
		Sync:          reservation.SyncRemoteConfirmed,
	}
}

type blockDocument struct {
	ID        string    `bson:"_id"`
	Start     string    `bson:"start"`
	End       string    `bson:"end"`
	Reason    string    `bson:"reason"`
	UnitID    string    `bson:"unit_id,omitempty"`
	CreatedAt time.Time `bson:"created_at"`
}

func newBlockDocument(b *availability.BlockedRange) blockDocument {
	return blockDocument{
		ID:        string(b.ID),
		Start:     string(b.Range.Start),
		End:       string(b.Range.End),
		Reason:    b.Reason,
		UnitID:    string(b.UnitID),
		CreatedAt: b.CreatedAt.UTC(),
	}
}

func (d blockDocument) toAggregate() *availability.BlockedRange {
	return &availability.BlockedRange{
		ID:        availability.BlockID(d.ID),
		Range:     daterange.ClosedRange{Start: daterange.Day(d.Start), End: daterange.Day(d.End)},
		Reason:    d.Reason,
		UnitID:    units.UnitID(d.UnitID),
		CreatedAt: d.CreatedAt.UTC(),
	}
}

// Package codec holds the JSON shape of fallback reservations shared by the
// redis and file stores.
package codec

import (
	"encoding/json"
	"time"

	"villabook/internal/domain/reservation"
	"villabook/internal/domain/shared/daterange"
	"villabook/internal/domain/shared/money"
	"villabook/internal/domain/units"
)

type ReservationRecord struct {
	ID            string    `json:"id"`
	RemoteID      string    `json:"remoteId,omitempty"`
	LocalKey      string    `json:"localKey"`
	UnitID        string    `json:"unitId"`
	GuestName     string    `json:"guestName"`
	GuestEmail    string    `json:"guestEmail"`
	CheckIn       string    `json:"checkIn"`
	CheckOut      string    `json:"checkOut"`
	NumGuests     int       `json:"numGuests"`
	TotalCents    int64     `json:"totalCents"`
	Currency      string    `json:"currency"`
	Status        string    `json:"status"`
	PaymentMethod string    `json:"paymentMethod"`
	Origin        string    `json:"origin"`
	Sync          string    `json:"sync"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func RecordOf(r *reservation.Reservation) ReservationRecord {
	return ReservationRecord{
		ID:            string(r.ID),
		RemoteID:      r.RemoteID,
		LocalKey:      r.LocalKey,
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
		Origin:        string(r.Origin),
		Sync:          string(r.Sync),
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
	}
}

func (rec ReservationRecord) Reservation() *reservation.Reservation {
	currency := rec.Currency
	if currency == "" {
		currency = money.DefaultCurrency
	}
	origin := reservation.Origin(rec.Origin)
	if origin == "" {
		origin = reservation.OriginLocalFallback
	}
	sync := reservation.SyncState(rec.Sync)
	if sync == "" {
		sync = reservation.SyncLocalFallback
	}
	return &reservation.Reservation{
		ID:            reservation.Code(rec.ID),
		RemoteID:      rec.RemoteID,
		LocalKey:      rec.LocalKey,
		UnitID:        units.UnitID(rec.UnitID),
		GuestName:     rec.GuestName,
		GuestEmail:    rec.GuestEmail,
		Range:         daterange.DateRange{CheckIn: daterange.Day(rec.CheckIn), CheckOut: daterange.Day(rec.CheckOut)},
		NumGuests:     rec.NumGuests,
		Total:         money.Money{Cents: rec.TotalCents, Currency: currency},
		Status:        reservation.Status(rec.Status),
		PaymentMethod: reservation.PaymentMethod(rec.PaymentMethod),
		Origin:        origin,
		Sync:          sync,
		CreatedAt:     rec.CreatedAt,
		UpdatedAt:     rec.UpdatedAt,
	}
}

func Marshal(r *reservation.Reservation) ([]byte, error) {
	return json.Marshal(RecordOf(r))
}

func Unmarshal(data []byte) (*reservation.Reservation, error) {
	var rec ReservationRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return rec.Reservation(), nil
}

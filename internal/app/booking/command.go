package booking

import (
	"time"

	"villabook/internal/domain/reservation"
)

const CreateReservationKey = "booking.create_reservation"

type CreateReservationCommand struct {
	Draft   reservation.Draft
	IdemKey string
}

func (c CreateReservationCommand) Key() string            { return CreateReservationKey }
func (c CreateReservationCommand) IdempotencyKey() string { return c.IdemKey }
func (c CreateReservationCommand) ResultPrototype() any   { return &Result{} }

// Result is what the guest sees. It never says which store took the write.
type Result struct {
	Code          string    `json:"code"`
	UnitID        string    `json:"unitId"`
	UnitName      string    `json:"unitName"`
	GuestName     string    `json:"guestName"`
	CheckIn       string    `json:"checkIn"`
	CheckOut      string    `json:"checkOut"`
	Nights        int       `json:"nights"`
	NumGuests     int       `json:"numGuests"`
	Total         string    `json:"total"`
	Status        string    `json:"status"`
	PaymentMethod string    `json:"paymentMethod"`
	CreatedAt     time.Time `json:"createdAt"`
}

func resultFor(r *reservation.Reservation, unitName string) Result {
	return Result{
		Code:          string(r.ID),
		UnitID:        string(r.UnitID),
		UnitName:      unitName,
		GuestName:     r.GuestName,
		CheckIn:       r.Range.CheckIn.String(),
		CheckOut:      r.Range.CheckOut.String(),
		Nights:        r.Range.Nights(),
		NumGuests:     r.NumGuests,
		Total:         r.Total.String(),
		Status:        string(r.Status),
		PaymentMethod: string(r.PaymentMethod),
		CreatedAt:     r.CreatedAt,
	}
}

package policies

import "context"

// Notification is the reservation summary handed to the email relay. Dates
// are already formatted for the guest (d/m/yyyy) and Total has two decimals.
type Notification struct {
	GuestName     string `json:"guestName"`
	GuestEmail    string `json:"guestEmail"`
	ReservationID string `json:"reservationId"`
	CheckIn       string `json:"checkIn"`
	CheckOut      string `json:"checkOut"`
	Total         string `json:"total"`
	VillaNumber   string `json:"villaNumber"`
}

type Notifier interface {
	NotifyReservation(ctx context.Context, n Notification) error
}

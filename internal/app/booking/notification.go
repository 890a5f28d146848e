package booking

import (
	"fmt"

	"villabook/internal/app/policies"
	"villabook/internal/domain/reservation"
	"villabook/internal/domain/shared/daterange"
	"villabook/internal/domain/units"
)

// NotificationFor builds the email relay payload for r.
func NotificationFor(r *reservation.Reservation, unit units.Unit) policies.Notification {
	return policies.Notification{
		GuestName:     r.GuestName,
		GuestEmail:    r.GuestEmail,
		ReservationID: string(r.ID),
		CheckIn:       spanishDate(r.Range.CheckIn),
		CheckOut:      spanishDate(r.Range.CheckOut),
		Total:         r.Total.Decimal(),
		VillaNumber:   string(unit.ID),
	}
}

// spanishDate renders d as d/m/yyyy without zero padding.
func spanishDate(d daterange.Day) string {
	t := d.Time()
	return fmt.Sprintf("%d/%d/%d", t.Day(), int(t.Month()), t.Year())
}

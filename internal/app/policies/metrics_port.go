package policies

// BookingMetrics counts booking outcomes. Implementations must be safe for
// concurrent use.
type BookingMetrics interface {
	ReservationStored(origin string)
	ReservationPromoted(source string)
	PersistenceFailed()
	NotificationFailed()
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) ReservationStored(string)   {}
func (NopMetrics) ReservationPromoted(string) {}
func (NopMetrics) PersistenceFailed()         {}
func (NopMetrics) NotificationFailed()        {}

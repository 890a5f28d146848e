package reservation

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"villabook/internal/domain/shared/daterange"
	"villabook/internal/domain/units"
)

var ErrValidation = errors.New("reservation: validation failed")

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every failed precondition of a booking request.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

// Has reports whether field failed.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

func (e *ValidationError) add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// Draft is the raw booking request as submitted by the guest.
type Draft struct {
	UnitID        units.UnitID
	GuestName     string
	GuestEmail    string
	CheckIn       string
	CheckOut      string
	NumGuests     int
	PaymentMethod string
}

// ValidDraft is a draft that passed every precondition, with its quote.
type ValidDraft struct {
	Unit          units.Unit
	GuestName     string
	GuestEmail    string
	Range         daterange.DateRange
	NumGuests     int
	PaymentMethod PaymentMethod
	Quote         units.Quote
}

// Validate checks the booking preconditions. It never touches storage.
func (d Draft) Validate(catalog *units.Catalog) (ValidDraft, error) {
	verr := &ValidationError{}
	out := ValidDraft{
		GuestName:  strings.TrimSpace(d.GuestName),
		GuestEmail: strings.TrimSpace(d.GuestEmail),
		NumGuests:  d.NumGuests,
	}

	unit, err := catalog.ByID(units.UnitID(strings.TrimSpace(string(d.UnitID))))
	unitKnown := err == nil
	if !unitKnown {
		verr.add("unitId", "unit is not configured")
	}
	out.Unit = unit

	if out.GuestName == "" {
		verr.add("guestName", "guest name is required")
	}
	switch {
	case out.GuestEmail == "":
		verr.add("guestEmail", "guest email is required")
	case !validEmail(out.GuestEmail):
		verr.add("guestEmail", "guest email is invalid")
	}

	dr, err := daterange.Parse(d.CheckIn, d.CheckOut)
	switch {
	case errors.Is(err, daterange.ErrInvalidDay):
		verr.add("checkIn", "dates must be YYYY-MM-DD")
	case err != nil:
		verr.add("checkOut", "check-out must be after check-in")
	default:
		out.Range = dr
	}

	if d.NumGuests < 1 {
		verr.add("numGuests", "at least one guest is required")
	} else if unitKnown && d.NumGuests > unit.MaxGuests {
		verr.add("numGuests", fmt.Sprintf("unit %s admits at most %d guests", unit.ID, unit.MaxGuests))
	}

	method, err := ParsePaymentMethod(d.PaymentMethod)
	if err != nil {
		verr.add("paymentMethod", "payment method must be card, paypal or transfer")
	}
	out.PaymentMethod = method

	if verr.HasErrors() {
		return ValidDraft{}, verr
	}
	out.Quote = unit.Quote(out.Range)
	return out, nil
}

// NotBefore rejects a stay that starts before today.
func (d ValidDraft) NotBefore(today daterange.Day) error {
	if !d.Range.CheckIn.Before(today) {
		return nil
	}
	verr := &ValidationError{}
	verr.add("checkIn", "check-in cannot be in the past")
	return verr
}

func validEmail(raw string) bool {
	if raw == "" || strings.ContainsAny(raw, " <>") {
		return false
	}
	addr, err := mail.ParseAddress(raw)
	return err == nil && addr.Address == raw
}

package daterange

import (
	"errors"
	"fmt"
	"time"
)

const (
	// DayLayout is the canonical storage format for calendar days.
	DayLayout   = "2006-01-02"
	MonthLayout = "2006-01"
)

var (
	ErrInvalidRange = errors.New("daterange: checkout must be after checkin")
	ErrInvalidDay   = errors.New("daterange: day must be formatted as YYYY-MM-DD")
	ErrInvalidMonth = errors.New("daterange: month must be formatted as YYYY-MM")
	ErrInvalidBlock = errors.New("daterange: end must not be before start")
)

// Day is a calendar date kept in its canonical YYYY-MM-DD form. Time of day
// and zone never take part in a comparison.
type Day string

func ParseDay(raw string) (Day, error) {
	t, err := time.Parse(DayLayout, raw)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDay, raw)
	}
	return Day(t.Format(DayLayout)), nil
}

// MustDay panics on malformed input; useful in tests and fixtures.
func MustDay(raw string) Day {
	d, err := ParseDay(raw)
	if err != nil {
		panic(err)
	}
	return d
}

// DayOf takes the wall-clock date of t in its own location.
func DayOf(t time.Time) Day {
	return Day(t.Format(DayLayout))
}

func (d Day) Valid() bool {
	_, err := time.Parse(DayLayout, string(d))
	return err == nil
}

func (d Day) String() string { return string(d) }

// Time returns midnight UTC of the day.
func (d Day) Time() time.Time {
	t, _ := time.Parse(DayLayout, string(d))
	return t
}

func (d Day) AddDays(n int) Day {
	return DayOf(d.Time().AddDate(0, 0, n))
}

func (d Day) Before(other Day) bool { return d < other }
func (d Day) After(other Day) bool  { return d > other }

// Month returns the YYYY-MM prefix.
func (d Day) Month() string {
	if len(d) < 7 {
		return ""
	}
	return string(d[:7])
}

func (d Day) Format(layout string) string {
	return d.Time().Format(layout)
}

// DaysBetween counts calendar days from a to b.
func DaysBetween(a, b Day) int {
	return int(b.Time().Sub(a.Time()).Hours() / 24)
}

// DateRange represents a half-open interval [CheckIn, CheckOut).
type DateRange struct {
	CheckIn  Day
	CheckOut Day
}

func New(checkIn, checkOut Day) (DateRange, error) {
	dr := DateRange{CheckIn: checkIn, CheckOut: checkOut}
	if err := dr.Validate(); err != nil {
		return DateRange{}, err
	}
	return dr, nil
}

// Parse builds a range from two raw YYYY-MM-DD strings.
func Parse(checkIn, checkOut string) (DateRange, error) {
	in, err := ParseDay(checkIn)
	if err != nil {
		return DateRange{}, err
	}
	out, err := ParseDay(checkOut)
	if err != nil {
		return DateRange{}, err
	}
	return New(in, out)
}

func (dr DateRange) Validate() error {
	if !dr.CheckIn.Valid() || !dr.CheckOut.Valid() {
		return ErrInvalidRange
	}
	if !dr.CheckOut.After(dr.CheckIn) {
		return ErrInvalidRange
	}
	return nil
}

func (dr DateRange) Nights() int {
	return DaysBetween(dr.CheckIn, dr.CheckOut)
}

func (dr DateRange) Overlaps(other DateRange) bool {
	return dr.CheckIn.Before(other.CheckOut) && other.CheckIn.Before(dr.CheckOut)
}

// ContainsDay reports whether d is one of the booked nights. The checkout day
// is free for the next guest.
func (dr DateRange) ContainsDay(d Day) bool {
	return d >= dr.CheckIn && d < dr.CheckOut
}

// Days lists every night of the stay.
func (dr DateRange) Days() []Day {
	out := make([]Day, 0, dr.Nights())
	for d := dr.CheckIn; d.Before(dr.CheckOut); d = d.AddDays(1) {
		out = append(out, d)
	}
	return out
}

// ClosedRange is an inclusive interval [Start, End] used for blocked dates.
type ClosedRange struct {
	Start Day
	End   Day
}

func NewClosed(start, end Day) (ClosedRange, error) {
	if !start.Valid() || !end.Valid() {
		return ClosedRange{}, ErrInvalidDay
	}
	if end.Before(start) {
		return ClosedRange{}, ErrInvalidBlock
	}
	return ClosedRange{Start: start, End: end}, nil
}

func (cr ClosedRange) Contains(d Day) bool {
	return d >= cr.Start && d <= cr.End
}

// Len counts both endpoints.
func (cr ClosedRange) Len() int {
	return DaysBetween(cr.Start, cr.End) + 1
}

func (cr ClosedRange) Days() []Day {
	out := make([]Day, 0, cr.Len())
	for d := cr.Start; !d.After(cr.End); d = d.AddDays(1) {
		out = append(out, d)
	}
	return out
}

// FirstOfMonth parses YYYY-MM and returns its first day.
func FirstOfMonth(month string) (Day, error) {
	t, err := time.Parse(MonthLayout, month)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidMonth, month)
	}
	return DayOf(t), nil
}

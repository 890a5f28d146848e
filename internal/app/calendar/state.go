package calendar

import (
	appavailability "villabook/internal/app/availability"
	"villabook/internal/domain/shared/daterange"
	"villabook/internal/domain/units"
)

// State is everything the date picker needs to render. Operations return a
// new State; nothing is shared between sessions.
type State struct {
	UnitID    units.UnitID  `json:"unitId"`
	Month     string        `json:"month"`
	CheckIn   daterange.Day `json:"checkIn,omitempty"`
	CheckOut  daterange.Day `json:"checkOut,omitempty"`
	NumGuests int           `json:"numGuests"`
}

func NewState(unit units.Unit, today daterange.Day) State {
	return State{UnitID: unit.ID, Month: today.Month(), NumGuests: min(2, unit.MaxGuests)}
}

// Select applies one click on day. The first click, or any click once both
// ends are set, starts a new range. A later day closes the range; an earlier
// or equal day restarts it.
func (s State) Select(day daterange.Day) State {
	switch {
	case s.CheckIn == "" || s.CheckOut != "":
		s.CheckIn, s.CheckOut = day, ""
	case day.After(s.CheckIn):
		s.CheckOut = day
	default:
		s.CheckIn, s.CheckOut = day, ""
	}
	return s
}

// Pick is Select limited to days the picker offers: not before today and
// free on the unit in view. Any other click leaves the state unchanged.
func (s State) Pick(view *appavailability.View, day, today daterange.Day) State {
	if day.Before(today) || !view.IsAvailable(s.UnitID, day) {
		return s
	}
	return s.Select(day)
}

func (s State) Clear() State {
	s.CheckIn, s.CheckOut = "", ""
	return s
}

// Range returns the selected stay once both ends are picked.
func (s State) Range() (daterange.DateRange, bool) {
	if s.CheckIn == "" || s.CheckOut == "" {
		return daterange.DateRange{}, false
	}
	dr, err := daterange.New(s.CheckIn, s.CheckOut)
	if err != nil {
		return daterange.DateRange{}, false
	}
	return dr, true
}

func (s State) NextMonth() State { return s.shiftMonth(1) }
func (s State) PrevMonth() State { return s.shiftMonth(-1) }

func (s State) shiftMonth(delta int) State {
	first, err := daterange.FirstOfMonth(s.Month)
	if err != nil {
		return s
	}
	s.Month = daterange.DayOf(first.Time().AddDate(0, delta, 0)).Month()
	return s
}

// SwitchUnit moves the picker to unit, keeping the dates and clamping guests
// to its capacity.
func (s State) SwitchUnit(unit units.Unit) State {
	s.UnitID = unit.ID
	return s.ClampGuests(unit)
}

func (s State) ClampGuests(unit units.Unit) State {
	switch {
	case s.NumGuests < 1:
		s.NumGuests = 1
	case s.NumGuests > unit.MaxGuests:
		s.NumGuests = unit.MaxGuests
	}
	return s
}

// ChangeGuests applies +/- delta and ignores steps outside [1, maxGuests].
func (s State) ChangeGuests(unit units.Unit, delta int) State {
	next := s.NumGuests + delta
	if next >= 1 && next <= unit.MaxGuests {
		s.NumGuests = next
	}
	return s
}

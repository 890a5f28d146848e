package calendar

import (
	"context"
	"fmt"
	"time"

	appavailability "villabook/internal/app/availability"
	"villabook/internal/domain/shared/daterange"
	"villabook/internal/domain/shared/money"
	"villabook/internal/domain/units"
)

var (
	weekdays   = []string{"Dom", "Lun", "Mar", "Mié", "Jue", "Vie", "Sáb"}
	monthNames = []string{"enero", "febrero", "marzo", "abril", "mayo", "junio", "julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre"}
)

type Cell struct {
	Day        daterange.Day `json:"day"`
	Number     int           `json:"number"`
	Past       bool          `json:"past"`
	Reserved   bool          `json:"reserved"`
	Selected   bool          `json:"selected"`
	InRange    bool          `json:"inRange"`
	Selectable bool          `json:"selectable"`
}

type Month struct {
	Month        string       `json:"month"`
	Title        string       `json:"title"`
	UnitID       units.UnitID `json:"unitId"`
	Weekdays     []string     `json:"weekdays"`
	Leading      int          `json:"leading"`
	Cells        []Cell       `json:"cells"`
	RemoteLoaded bool         `json:"remoteLoaded"`
	// State is the picker state the grid was drawn for, after any pick.
	State State `json:"-"`
}

// Snapshotter reads availability sources once per render.
type Snapshotter interface {
	Snapshot(ctx context.Context) (*appavailability.View, error)
}

// Render lays out state's month starting on Sunday. Past days are never
// selectable and are not checked against availability.
func Render(ctx context.Context, oracle Snapshotter, state State, today daterange.Day) (Month, error) {
	if _, err := daterange.FirstOfMonth(state.Month); err != nil {
		return Month{}, err
	}
	view, err := oracle.Snapshot(ctx)
	if err != nil {
		return Month{}, err
	}
	return renderView(view, state, today)
}

func renderView(view *appavailability.View, state State, today daterange.Day) (Month, error) {
	first, err := daterange.FirstOfMonth(state.Month)
	if err != nil {
		return Month{}, err
	}
	start := first.Time()
	daysIn := start.AddDate(0, 1, -1).Day()
	out := Month{
		Month:        state.Month,
		Title:        fmt.Sprintf("%s de %d", monthNames[start.Month()-1], start.Year()),
		UnitID:       state.UnitID,
		Weekdays:     weekdays,
		Leading:      int(start.Weekday()),
		Cells:        make([]Cell, 0, daysIn),
		RemoteLoaded: view.RemoteLoaded,
		State:        state,
	}
	selected, hasRange := state.Range()
	for n := 1; n <= daysIn; n++ {
		day := first.AddDays(n - 1)
		cell := Cell{Day: day, Number: n}
		switch {
		case day.Before(today):
			cell.Past = true
		case !view.IsAvailable(state.UnitID, day):
			cell.Reserved = true
		default:
			cell.Selected = day == state.CheckIn || day == state.CheckOut
			cell.InRange = hasRange && day.After(selected.CheckIn) && day.Before(selected.CheckOut)
			cell.Selectable = true
		}
		out.Cells = append(out.Cells, cell)
	}
	return out, nil
}

type QuoteView struct {
	UnitID   units.UnitID `json:"unitId"`
	Nights   int          `json:"nights"`
	Nightly  money.Money  `json:"-"`
	Total    money.Money  `json:"-"`
	Complete bool         `json:"complete"`
}

// Quote prices the current selection; an incomplete one costs $0.00.
func Quote(unit units.Unit, state State) QuoteView {
	out := QuoteView{UnitID: unit.ID, Nightly: unit.NightlyRate, Total: unit.NightlyRate.Multiply(0)}
	dr, ok := state.Range()
	if !ok {
		return out
	}
	q := unit.Quote(dr)
	out.Nights = q.Nights
	out.Total = q.Total
	out.Complete = true
	return out
}

// Today is the guest-facing calendar day in loc.
func Today(now time.Time, loc *time.Location) daterange.Day {
	if loc != nil {
		now = now.In(loc)
	}
	return daterange.DayOf(now)
}

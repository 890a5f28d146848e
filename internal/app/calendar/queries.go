package calendar

import (
	"context"
	"time"

	"villabook/internal/app/queries"
	"villabook/internal/domain/shared/daterange"
	"villabook/internal/domain/units"
)

const (
	GetCalendarKey = "calendar.month"
	GetQuoteKey    = "calendar.quote"
)

// GetCalendarQuery renders State's month. A non-empty Pick is a click on that
// day, applied before rendering against the same availability snapshot.
type GetCalendarQuery struct {
	State State
	Pick  daterange.Day
}

func (q GetCalendarQuery) Key() string { return GetCalendarKey }

type GetCalendarHandler struct {
	Oracle   Snapshotter
	Catalog  *units.Catalog
	Location *time.Location
	Now      func() time.Time
}

func (h *GetCalendarHandler) Handle(ctx context.Context, q GetCalendarQuery) (Month, error) {
	unit, err := h.Catalog.ByID(q.State.UnitID)
	if err != nil {
		return Month{}, err
	}
	today := Today(h.now(), h.Location)
	state := q.State.ClampGuests(unit)
	if state.Month == "" {
		state.Month = today.Month()
	}
	if _, err := daterange.FirstOfMonth(state.Month); err != nil {
		return Month{}, err
	}
	view, err := h.Oracle.Snapshot(ctx)
	if err != nil {
		return Month{}, err
	}
	if q.Pick != "" {
		state = state.Pick(view, q.Pick, today)
	}
	return renderView(view, state, today)
}

func (h *GetCalendarHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

type GetQuoteQuery struct {
	UnitID   units.UnitID
	CheckIn  daterange.Day
	CheckOut daterange.Day
}

func (q GetQuoteQuery) Key() string { return GetQuoteKey }

type GetQuoteHandler struct {
	Catalog *units.Catalog
}

func (h *GetQuoteHandler) Handle(_ context.Context, q GetQuoteQuery) (QuoteView, error) {
	unit, err := h.Catalog.ByID(q.UnitID)
	if err != nil {
		return QuoteView{}, err
	}
	return Quote(unit, State{UnitID: unit.ID, CheckIn: q.CheckIn, CheckOut: q.CheckOut}), nil
}

var (
	_ queries.Handler[GetCalendarQuery, Month]   = (*GetCalendarHandler)(nil)
	_ queries.Handler[GetQuoteQuery, QuoteView] = (*GetQuoteHandler)(nil)
)

package ginserver

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	gin "github.com/gin-gonic/gin"

	appavailability "villabook/internal/app/availability"
	"villabook/internal/app/calendar"
	"villabook/internal/app/queries"
	"villabook/internal/domain/shared/daterange"
	"villabook/internal/domain/units"
)

type CalendarHandler struct {
	Queries     queries.Bus
	Catalog     *units.Catalog
	Broadcaster *appavailability.Broadcaster
	Logger      *slog.Logger
	// KeepAlive is the SSE comment interval; zero means 25s.
	KeepAlive time.Duration
}

type calendarResponse struct {
	State    calendar.State `json:"state"`
	Calendar calendar.Month `json:"calendar"`
	Quote    quoteResponse  `json:"quote"`
}

// Month renders one month of the picker. The client sends its state back on
// every call: unitId, month, checkIn, checkOut, numGuests, plus an optional
// select=YYYY-MM-DD click, nav=next|prev, or guests=+1|-1.
func (h CalendarHandler) Month(c *gin.Context) {
	state, pick, err := h.stateFrom(c)
	if err != nil {
		writeError(c, err)
		return
	}
	resp, err := h.render(c.Request.Context(), state, pick)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Stream pushes a fresh render of the requested month whenever availability
// for the unit may have changed.
func (h CalendarHandler) Stream(c *gin.Context) {
	state, pick, err := h.stateFrom(c)
	if err != nil {
		writeError(c, err)
		return
	}
	if h.Broadcaster == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "stream unavailable"})
		return
	}
	ctx := c.Request.Context()
	first, err := h.render(ctx, state, pick)
	if err != nil {
		writeError(c, err)
		return
	}
	state = first.State
	changes, cancel := h.Broadcaster.Subscribe(4)
	defer cancel()

	keepAlive := h.KeepAlive
	if keepAlive <= 0 {
		keepAlive = 25 * time.Second
	}
	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("calendar", first)
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
			_, _ = w.Write([]byte(": keep-alive\n\n"))
			return true
		case change, ok := <-changes:
			if !ok {
				return false
			}
			if change.UnitID != "" && !units.Matches(string(change.UnitID), state.UnitID) {
				return true
			}
			resp, err := h.render(ctx, state, "")
			if err != nil {
				if h.Logger != nil {
					h.Logger.Warn("calendar stream render failed", "unit", state.UnitID, "error", err)
				}
				return true
			}
			c.SSEvent("calendar", resp)
			return true
		}
	})
}

func (h CalendarHandler) render(ctx context.Context, state calendar.State, pick daterange.Day) (calendarResponse, error) {
	month, err := queries.Ask[calendar.GetCalendarQuery, calendar.Month](ctx, h.Queries, calendar.GetCalendarQuery{State: state, Pick: pick})
	if err != nil {
		return calendarResponse{}, err
	}
	state = month.State
	quote, err := queries.Ask[calendar.GetQuoteQuery, calendar.QuoteView](ctx, h.Queries, calendar.GetQuoteQuery{
		UnitID: state.UnitID, CheckIn: state.CheckIn, CheckOut: state.CheckOut,
	})
	if err != nil {
		return calendarResponse{}, err
	}
	return calendarResponse{State: state, Calendar: month, Quote: quoteResponseOf(quote)}, nil
}

// stateFrom also returns the select= click; the query handler applies it
// once it knows which days are offered.
func (h CalendarHandler) stateFrom(c *gin.Context) (calendar.State, daterange.Day, error) {
	unit, err := h.Catalog.ByID(units.UnitID(c.Param("id")))
	if err != nil {
		return calendar.State{}, "", err
	}
	state := calendar.State{
		UnitID:    unit.ID,
		Month:     c.Query("month"),
		CheckIn:   optionalDay(c.Query("checkIn")),
		CheckOut:  optionalDay(c.Query("checkOut")),
		NumGuests: 2,
	}
	if raw := c.Query("numGuests"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			state.NumGuests = n
		}
	}
	state = state.ClampGuests(unit)
	if raw := c.Query("guests"); raw != "" {
		if delta, err := strconv.Atoi(raw); err == nil {
			state = state.ChangeGuests(unit, delta)
		}
	}
	var pick daterange.Day
	if raw := c.Query("select"); raw != "" {
		if pick, err = daterange.ParseDay(raw); err != nil {
			return calendar.State{}, "", err
		}
	}
	switch c.Query("nav") {
	case "next":
		state = state.NextMonth()
	case "prev":
		state = state.PrevMonth()
	}
	return state, pick, nil
}

func optionalDay(raw string) daterange.Day {
	day, err := daterange.ParseDay(raw)
	if err != nil {
		return ""
	}
	return day
}

var _ CalendarHTTP = CalendarHandler{}

package ginserver

import (
	"net/http"

	gin "github.com/gin-gonic/gin"

	"villabook/internal/app/calendar"
	"villabook/internal/app/queries"
	"villabook/internal/domain/shared/daterange"
	"villabook/internal/domain/units"
)

type CatalogHandler struct {
	Catalog *units.Catalog
	Queries queries.Bus
}

type unitResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	NightlyRate string `json:"nightlyRate"`
	MaxGuests   int    `json:"maxGuests"`
}

type quoteResponse struct {
	UnitID   string `json:"unitId"`
	Nights   int    `json:"nights"`
	Nightly  string `json:"nightly"`
	Total    string `json:"total"`
	Complete bool   `json:"complete"`
}

func quoteResponseOf(q calendar.QuoteView) quoteResponse {
	return quoteResponse{
		UnitID:   string(q.UnitID),
		Nights:   q.Nights,
		Nightly:  q.Nightly.String(),
		Total:    q.Total.String(),
		Complete: q.Complete,
	}
}

func (h CatalogHandler) Units(c *gin.Context) {
	list := h.Catalog.All()
	out := make([]unitResponse, 0, len(list))
	for _, u := range list {
		out = append(out, unitResponse{ID: string(u.ID), Name: u.Name, NightlyRate: u.NightlyRate.String(), MaxGuests: u.MaxGuests})
	}
	c.JSON(http.StatusOK, gin.H{"units": out})
}

// Quote prices checkIn..checkOut; missing or reversed dates give $0.00.
func (h CatalogHandler) Quote(c *gin.Context) {
	q := calendar.GetQuoteQuery{
		UnitID:   units.UnitID(c.Param("id")),
		CheckIn:  daterange.Day(c.Query("checkIn")),
		CheckOut: daterange.Day(c.Query("checkOut")),
	}
	view, err := queries.Ask[calendar.GetQuoteQuery, calendar.QuoteView](c.Request.Context(), h.Queries, q)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, quoteResponseOf(view))
}

var _ CatalogHTTP = CatalogHandler{}

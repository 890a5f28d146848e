package ginserver

import (
	"net/http"

	gin "github.com/gin-gonic/gin"

	"villabook/internal/app/booking"
	"villabook/internal/app/commands"
	"villabook/internal/domain/reservation"
	"villabook/internal/domain/units"
)

type ReservationHandler struct {
	Commands commands.Bus
}

type createReservationRequest struct {
	UnitID        string `json:"unitId"`
	GuestName     string `json:"guestName"`
	GuestEmail    string `json:"guestEmail"`
	CheckIn       string `json:"checkIn"`
	CheckOut      string `json:"checkOut"`
	NumGuests     int    `json:"numGuests"`
	PaymentMethod string `json:"paymentMethod"`
}

func (h ReservationHandler) Create(c *gin.Context) {
	if h.Commands == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "commands unavailable"})
		return
	}
	var req createReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := booking.CreateReservationCommand{
		Draft: reservation.Draft{
			UnitID:        units.UnitID(req.UnitID),
			GuestName:     req.GuestName,
			GuestEmail:    req.GuestEmail,
			CheckIn:       req.CheckIn,
			CheckOut:      req.CheckOut,
			NumGuests:     req.NumGuests,
			PaymentMethod: req.PaymentMethod,
		},
		IdemKey: c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[booking.CreateReservationCommand, booking.Result](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

var _ ReservationHTTP = ReservationHandler{}

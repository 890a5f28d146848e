package ginserver

import (
	"errors"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"villabook/internal/app/admin"
	"villabook/internal/app/booking"
	"villabook/internal/app/services/auth"
	"villabook/internal/domain/availability"
	"villabook/internal/domain/reservation"
	"villabook/internal/domain/shared/daterange"
	"villabook/internal/domain/units"
)

// writeError maps application errors to status codes. Unknown errors are
// reported as 500 without their message.
func writeError(c *gin.Context, err error) {
	var verr *reservation.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation failed", "fields": verr.Fields})
		return
	}
	var perr *booking.PersistenceError
	if errors.As(err, &perr) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "No pudimos guardar la reserva. Inténtalo de nuevo.", "retry": true})
		return
	}
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	c.JSON(status, gin.H{"error": msg})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, auth.ErrUnauthorized), errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, reservation.ErrAvailabilityConflict),
		errors.Is(err, reservation.ErrLocalOnly),
		errors.Is(err, booking.ErrCodeTaken):
		return http.StatusConflict
	case errors.Is(err, booking.ErrPayment):
		return http.StatusPaymentRequired
	case errors.Is(err, reservation.ErrNotFound),
		errors.Is(err, availability.ErrBlockNotFound),
		errors.Is(err, units.ErrUnitNotFound):
		return http.StatusNotFound
	case errors.Is(err, admin.ErrInvalidMonth),
		errors.Is(err, reservation.ErrInvalidStatus),
		errors.Is(err, availability.ErrInvalidBlock),
		errors.Is(err, daterange.ErrInvalidDay),
		errors.Is(err, daterange.ErrInvalidRange),
		errors.Is(err, daterange.ErrInvalidMonth):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrNotConfigured),
		errors.Is(err, admin.ErrExportUnavailable),
		errors.Is(err, admin.ErrReconcileUnavailable),
		errors.Is(err, booking.ErrNoFreeCode):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

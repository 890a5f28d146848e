package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"villabook/internal/app/policies"
	"villabook/internal/infra/email"
)

// EmailHandler relays confirmation requests to the mail provider.
type EmailHandler struct {
	Mailer email.Mailer
	Logger *slog.Logger
}

func (h EmailHandler) Send(c *gin.Context) {
	var req policies.Notification
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	msg, err := email.Confirmation(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sent, err := h.Mailer.Send(c.Request.Context(), msg)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Error("confirmation email failed", "reservation", req.ReservationID, "error", err)
		}
		var perr *email.ProviderError
		if errors.As(err, &perr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": perr})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Email sent successfully", "data": sent})
}

var _ EmailHTTP = EmailHandler{}

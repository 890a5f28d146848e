package ginserver

import (
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"

	"villabook/internal/app/admin"
	"villabook/internal/app/commands"
	"villabook/internal/app/queries"
	"villabook/internal/app/reconcile"
	"villabook/internal/app/services/auth"
	"villabook/internal/domain/availability"
	"villabook/internal/domain/reservation"
	"villabook/internal/domain/units"
)

type AdminHandler struct {
	Auth     *auth.Service
	Commands commands.Bus
	Queries  queries.Bus
}

type loginRequest struct {
	Password string `json:"password"`
}

func (h AdminHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.Auth.Login(c.Request.Context(), req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h AdminHandler) Logout(c *gin.Context) {
	token := currentToken(c)
	if token == "" {
		writeError(c, auth.ErrUnauthorized)
		return
	}
	if err := h.Auth.Logout(c.Request.Context(), token); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h AdminHandler) ListReservations(c *gin.Context) {
	rows, err := queries.Ask[admin.ListReservationsQuery, []admin.Row](c.Request.Context(), h.Queries, admin.ListReservationsQuery{Month: c.Query("month")})
	if err != nil {
		writeError(c, err)
		return
	}
	if rows == nil {
		rows = []admin.Row{}
	}
	c.JSON(http.StatusOK, gin.H{"reservations": rows})
}

type updateReservationRequest struct {
	GuestName  *string `json:"guestName"`
	GuestEmail *string `json:"guestEmail"`
	CheckIn    *string `json:"checkIn"`
	CheckOut   *string `json:"checkOut"`
	NumGuests  *int    `json:"numGuests"`
	Status     *string `json:"status"`
}

func (h AdminHandler) UpdateReservation(c *gin.Context) {
	var req updateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	patch := reservation.Patch{
		GuestName:  req.GuestName,
		GuestEmail: req.GuestEmail,
		CheckIn:    req.CheckIn,
		CheckOut:   req.CheckOut,
		NumGuests:  req.NumGuests,
	}
	if req.Status != nil {
		status, err := reservation.ParseStatus(*req.Status)
		if err != nil {
			writeError(c, err)
			return
		}
		patch.Status = &status
	}
	row, err := commands.Dispatch[admin.UpdateReservationCommand, admin.Row](c.Request.Context(), h.Commands,
		admin.UpdateReservationCommand{RemoteID: c.Param("id"), Patch: patch})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h AdminHandler) SetStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	status, err := reservation.ParseStatus(req.Status)
	if err != nil {
		writeError(c, err)
		return
	}
	row, err := commands.Dispatch[admin.SetStatusCommand, admin.Row](c.Request.Context(), h.Commands,
		admin.SetStatusCommand{RemoteID: c.Param("id"), Status: status})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

func (h AdminHandler) DeleteReservation(c *gin.Context) {
	_, err := commands.Dispatch[admin.DeleteReservationCommand, struct{}](c.Request.Context(), h.Commands,
		admin.DeleteReservationCommand{RemoteID: c.Param("id")})
	if err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h AdminHandler) Stats(c *gin.Context) {
	stats, err := queries.Ask[admin.StatsQuery, admin.Stats](c.Request.Context(), h.Queries, admin.StatsQuery{})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

type blockResponse struct {
	ID        string    `json:"id"`
	Start     string    `json:"start"`
	End       string    `json:"end"`
	Reason    string    `json:"reason"`
	UnitID    string    `json:"unitId,omitempty"`
	Days      int       `json:"days"`
	CreatedAt time.Time `json:"createdAt"`
}

func blockResponseOf(b *availability.BlockedRange) blockResponse {
	return blockResponse{
		ID:        string(b.ID),
		Start:     b.Range.Start.String(),
		End:       b.Range.End.String(),
		Reason:    b.Reason,
		UnitID:    string(b.UnitID),
		Days:      b.Range.Len(),
		CreatedAt: b.CreatedAt,
	}
}

func (h AdminHandler) ListBlocks(c *gin.Context) {
	list, err := queries.Ask[admin.ListBlocksQuery, []*availability.BlockedRange](c.Request.Context(), h.Queries, admin.ListBlocksQuery{})
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]blockResponse, 0, len(list))
	for _, b := range list {
		out = append(out, blockResponseOf(b))
	}
	c.JSON(http.StatusOK, gin.H{"blocks": out})
}

type blockRequest struct {
	Start  string `json:"start"`
	End    string `json:"end"`
	Reason string `json:"reason"`
	UnitID string `json:"unitId"`
}

func (h AdminHandler) Block(c *gin.Context) {
	var req blockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	block, err := commands.Dispatch[admin.BlockDatesCommand, *availability.BlockedRange](c.Request.Context(), h.Commands,
		admin.BlockDatesCommand{Request: admin.BlockRequest{Start: req.Start, End: req.End, Reason: req.Reason, UnitID: units.UnitID(req.UnitID)}})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, blockResponseOf(block))
}

func (h AdminHandler) Unblock(c *gin.Context) {
	_, err := commands.Dispatch[admin.UnblockDatesCommand, struct{}](c.Request.Context(), h.Commands,
		admin.UnblockDatesCommand{ID: availability.BlockID(c.Param("id"))})
	if err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h AdminHandler) Export(c *gin.Context) {
	res, err := commands.Dispatch[admin.ExportCommand, admin.ExportResult](c.Request.Context(), h.Commands, admin.ExportCommand{Month: c.Query("month")})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h AdminHandler) Reconcile(c *gin.Context) {
	report, err := commands.Dispatch[admin.ReconcileCommand, reconcile.Report](c.Request.Context(), h.Commands, admin.ReconcileCommand{})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

var _ AdminHTTP = AdminHandler{}

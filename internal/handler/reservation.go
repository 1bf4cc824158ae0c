package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"concertgate/internal/apperr"
	"concertgate/internal/service"
)

// ReservationHandler serves seat reservation requests.
type ReservationHandler struct {
	reservations *service.ReservationService
}

// NewReservationHandler constructs a ReservationHandler.
func NewReservationHandler(reservations *service.ReservationService) *ReservationHandler {
	if reservations == nil {
		panic("nil reservation service passed to NewReservationHandler")
	}
	return &ReservationHandler{reservations: reservations}
}

type reserveRequest struct {
	UserID     uint64 `json:"user_id" validate:"required,gt=0"`
	ScheduleID uint64 `json:"schedule_id" validate:"required,gt=0"`
	SeatID     uint64 `json:"seat_id" validate:"required,gt=0"`
}

type reserveResponse struct {
	ReservationID uint64    `json:"reservation_id"`
	Status        string    `json:"status"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// Reserve handles POST /api/v1/reservations. It places a five minute
// PENDING hold on the seat; if the hold is not paid before expires_at a
// background sweep releases the seat. Contention on a seat resolves to a
// single winner, everyone else gets 409.
func (h *ReservationHandler) Reserve(c echo.Context) error {
	var body reserveRequest
	if err := c.Bind(&body); err != nil {
		return fail(c, apperr.ErrInvalidArgument)
	}
	if err := c.Validate(&body); err != nil {
		return fail(c, err)
	}
	token := c.Request().Header.Get(queueTokenHeader)
	res, err := h.reservations.Reserve(c.Request().Context(), token, body.UserID, body.ScheduleID, body.SeatID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, reserveResponse{
		ReservationID: res.ReservationID,
		Status:        string(res.Status),
		ExpiresAt:     res.ExpiresAt,
	})
}

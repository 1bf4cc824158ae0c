package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"concertgate/internal/apperr"
	"concertgate/internal/service"
)

// PointHandler serves the point balance endpoints. These sit outside the
// waiting room: users top up before joining the queue, so no queue token
// is required.
type PointHandler struct {
	points *service.PointService
}

// NewPointHandler constructs a PointHandler.
func NewPointHandler(points *service.PointService) *PointHandler {
	if points == nil {
		panic("nil point service passed to NewPointHandler")
	}
	return &PointHandler{points: points}
}

type chargeRequest struct {
	Amount int64 `json:"amount" validate:"required,gt=0"`
}

type balanceResponse struct {
	UserID  uint64 `json:"user_id"`
	Balance int64  `json:"balance"`
}

// Charge handles POST /api/v1/users/:id/points. A version conflict with a
// concurrent debit returns 409 and the client retries; charges are never
// replayed server side.
func (h *PointHandler) Charge(c echo.Context) error {
	userID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || userID == 0 {
		return fail(c, apperr.ErrInvalidArgument)
	}
	var body chargeRequest
	if err := c.Bind(&body); err != nil {
		return fail(c, apperr.ErrInvalidArgument)
	}
	if err := c.Validate(&body); err != nil {
		return fail(c, err)
	}
	res, err := h.points.Charge(c.Request().Context(), userID, body.Amount)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, balanceResponse{UserID: res.UserID, Balance: res.Balance})
}

// GetBalance handles GET /api/v1/users/:id/points. Users without a
// balance row read as zero.
func (h *PointHandler) GetBalance(c echo.Context) error {
	userID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || userID == 0 {
		return fail(c, apperr.ErrInvalidArgument)
	}
	res, err := h.points.Get(c.Request().Context(), userID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, balanceResponse{UserID: res.UserID, Balance: res.Balance})
}

package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"concertgate/internal/apperr"
	"concertgate/internal/service"
)

// PaymentHandler serves reservation payment.
type PaymentHandler struct {
	payments *service.PaymentService
}

// NewPaymentHandler constructs a PaymentHandler.
func NewPaymentHandler(payments *service.PaymentService) *PaymentHandler {
	if payments == nil {
		panic("nil payment service passed to NewPaymentHandler")
	}
	return &PaymentHandler{payments: payments}
}

type payRequest struct {
	UserID        uint64 `json:"user_id" validate:"required,gt=0"`
	ReservationID uint64 `json:"reservation_id" validate:"required,gt=0"`
}

type payResponse struct {
	PaymentID uint64    `json:"payment_id"`
	Status    string    `json:"status"`
	Amount    int64     `json:"amount"`
	PaidAt    time.Time `json:"paid_at"`
}

// Pay handles POST /api/v1/payments. It debits the seat price from the
// user's balance, confirms the reservation and finalizes the seat in one
// transaction. On success the queue token is retired asynchronously via
// the payment.completed event.
func (h *PaymentHandler) Pay(c echo.Context) error {
	var body payRequest
	if err := c.Bind(&body); err != nil {
		return fail(c, apperr.ErrInvalidArgument)
	}
	if err := c.Validate(&body); err != nil {
		return fail(c, err)
	}
	token := c.Request().Header.Get(queueTokenHeader)
	res, err := h.payments.Confirm(c.Request().Context(), token, body.UserID, body.ReservationID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, payResponse{
		PaymentID: res.PaymentID,
		Status:    string(res.Status),
		Amount:    res.Amount,
		PaidAt:    res.PaidAt,
	})
}

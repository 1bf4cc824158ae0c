// Package handler exposes the HTTP API. Handlers bind and validate the
// request, delegate to the service layer and translate its errors into
// HTTP responses; no business rules live here.
package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"concertgate/internal/apperr"
)

// queueTokenHeader carries the waiting-room token on protected endpoints.
const queueTokenHeader = "X-Queue-Token"

// RequestValidator adapts validator/v10 to echo's Validator interface.
type RequestValidator struct {
	v *validator.Validate
}

// NewRequestValidator builds the validator used by echo's c.Validate.
func NewRequestValidator() *RequestValidator {
	return &RequestValidator{v: validator.New()}
}

// Validate implements echo.Validator.
func (rv *RequestValidator) Validate(i interface{}) error {
	return rv.v.Struct(i)
}

// statusOf maps a service error to its HTTP status code.
func statusOf(err error) int {
	switch {
	case errors.Is(err, apperr.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrTokenNotFound),
		errors.Is(err, apperr.ErrTokenNotActive),
		errors.Is(err, apperr.ErrTokenExpired):
		return http.StatusUnauthorized
	case errors.Is(err, apperr.ErrReservationNotOwned):
		return http.StatusForbidden
	case errors.Is(err, apperr.ErrConcertNotFound),
		errors.Is(err, apperr.ErrScheduleNotFound),
		errors.Is(err, apperr.ErrSeatNotFound),
		errors.Is(err, apperr.ErrReservationNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrSeatNotAvailable),
		errors.Is(err, apperr.ErrReservationNotPending),
		errors.Is(err, apperr.ErrReservationExpired),
		errors.Is(err, apperr.ErrConcurrencyConflict),
		errors.Is(err, apperr.ErrLockAcquisitionFailed):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrInsufficientBalance),
		errors.Is(err, apperr.ErrPointLimitExceeded):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// fail writes the error as a JSON body with its mapped status. Unknown
// errors are logged and hidden behind a generic message.
func fail(c echo.Context, err error) error {
	status := statusOf(err)

	var ae *apperr.Error
	if errors.As(err, &ae) {
		return c.JSON(status, echo.Map{"code": ae.Code, "error": ae.Message})
	}

	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		return c.JSON(http.StatusBadRequest, echo.Map{"code": apperr.ErrInvalidArgument.Code, "error": ve.Error()})
	}

	log.Printf("handler: %s %s: %v", c.Request().Method, c.Request().URL.Path, err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"code": "INTERNAL", "error": "internal server error"})
}

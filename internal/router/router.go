// Package router maps HTTP routes to their handlers.
package router

import (
	"github.com/labstack/echo/v4"

	"concertgate/internal/handler"
)

// Handlers bundles everything RegisterRoutes needs.
type Handlers struct {
	Queue       *handler.QueueHandler
	Catalog     *handler.CatalogHandler
	Reservation *handler.ReservationHandler
	Payment     *handler.PaymentHandler
	Point       *handler.PointHandler
}

// RegisterRoutes wires all endpoints onto the Echo instance. Browse,
// reservation and payment endpoints expect the waiting-room token in the
// X-Queue-Token header; token issuance, status polling and point
// operations sit outside the waiting room.
func RegisterRoutes(e *echo.Echo, h Handlers) {
	e.GET("/healthz", handler.Health)

	v1 := e.Group("/api/v1")

	v1.POST("/queue/token", h.Queue.IssueToken)
	v1.GET("/queue/status", h.Queue.GetStatus)

	v1.GET("/concerts/:id/dates", h.Catalog.GetAvailableDates)
	v1.GET("/schedules/:id/seats", h.Catalog.GetSeats)

	v1.POST("/reservations", h.Reservation.Reserve)
	v1.POST("/payments", h.Payment.Pay)

	v1.POST("/users/:id/points", h.Point.Charge)
	v1.GET("/users/:id/points", h.Point.GetBalance)
}

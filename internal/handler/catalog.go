package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"concertgate/internal/apperr"
	"concertgate/internal/model"
	"concertgate/internal/service"
)

// CatalogHandler serves the browse endpoints: schedules for a concert and
// the seat map of a schedule.
type CatalogHandler struct {
	catalog    *service.CatalogService
	admissions *service.AdmissionService
}

// NewCatalogHandler constructs a CatalogHandler.
func NewCatalogHandler(catalog *service.CatalogService, admissions *service.AdmissionService) *CatalogHandler {
	if catalog == nil || admissions == nil {
		panic("nil service passed to NewCatalogHandler")
	}
	return &CatalogHandler{catalog: catalog, admissions: admissions}
}

type scheduleView struct {
	ID        uint64    `json:"id"`
	ConcertID uint64    `json:"concert_id"`
	ShowDate  time.Time `json:"show_date"`
}

type seatView struct {
	ID         uint64 `json:"id"`
	ScheduleID uint64 `json:"schedule_id"`
	SeatNumber uint32 `json:"seat_number"`
	Price      int64  `json:"price"`
	Status     string `json:"status"`
}

func toSeatView(s model.Seat) seatView {
	return seatView{
		ID:         s.ID,
		ScheduleID: s.ScheduleID,
		SeatNumber: s.SeatNumber,
		Price:      s.Price,
		Status:     string(s.Status),
	}
}

// GetAvailableDates handles GET /api/v1/concerts/:id/dates. Requires an
// ACTIVE queue token.
func (h *CatalogHandler) GetAvailableDates(c echo.Context) error {
	if _, err := h.admissions.Validate(c.Request().Context(), c.Request().Header.Get(queueTokenHeader)); err != nil {
		return fail(c, err)
	}
	concertID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || concertID == 0 {
		return fail(c, apperr.ErrInvalidArgument)
	}
	schedules, err := h.catalog.GetAvailableDates(c.Request().Context(), concertID)
	if err != nil {
		return fail(c, err)
	}
	out := make([]scheduleView, 0, len(schedules))
	for _, s := range schedules {
		out = append(out, scheduleView{ID: s.ID, ConcertID: s.ConcertID, ShowDate: s.ShowDate})
	}
	return c.JSON(http.StatusOK, echo.Map{"schedules": out})
}

// GetSeats handles GET /api/v1/schedules/:id/seats. Requires an ACTIVE
// queue token. The seat map may be served from cache, so a just-reserved
// seat can briefly still show as AVAILABLE; reservation itself always
// checks the database.
func (h *CatalogHandler) GetSeats(c echo.Context) error {
	if _, err := h.admissions.Validate(c.Request().Context(), c.Request().Header.Get(queueTokenHeader)); err != nil {
		return fail(c, err)
	}
	scheduleID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || scheduleID == 0 {
		return fail(c, apperr.ErrInvalidArgument)
	}
	seats, err := h.catalog.GetSeats(c.Request().Context(), scheduleID)
	if err != nil {
		return fail(c, err)
	}
	out := make([]seatView, 0, len(seats))
	for _, s := range seats {
		out = append(out, toSeatView(s))
	}
	return c.JSON(http.StatusOK, echo.Map{"seats": out})
}

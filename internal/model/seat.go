package model

import (
	"time"

	"concertgate/internal/apperr"
)

// SeatStatus enumerates the states of a seat. The only legal transitions
// are AVAILABLE→TEMP_RESERVED→RESERVED on the happy path and
// TEMP_RESERVED→AVAILABLE when a hold expires or is cancelled.
type SeatStatus string

const (
	SeatAvailable    SeatStatus = "AVAILABLE"
	SeatTempReserved SeatStatus = "TEMP_RESERVED"
	SeatReserved     SeatStatus = "RESERVED"
)

// Seat is one sellable seat of a concert schedule. Seats are mutated only
// while the distributed lock for their ID is held; Version backs an
// optimistic check so a writer bypassing the lock surfaces a conflict
// instead of silently losing an update.
//
// Fields:
//
//	ID         – primary key identifier.
//	ScheduleID – schedule this seat belongs to.
//	SeatNumber – number of the seat within the schedule.
//	Price      – price in points.
//	Status     – AVAILABLE, TEMP_RESERVED or RESERVED.
//	Version    – optimistic concurrency counter, bumped on every write.
//	CreatedAt  – creation timestamp.
//	UpdatedAt  – last update timestamp.
type Seat struct {
	ID         uint64     // seats.id
	ScheduleID uint64     // seats.schedule_id
	SeatNumber uint32     // seats.seat_number
	Price      int64      // seats.price
	Status     SeatStatus // seats.status
	Version    int64      // seats.version
	CreatedAt  time.Time  // seats.created_at
	UpdatedAt  time.Time  // seats.updated_at
}

// IsAvailable reports whether the seat can be temp-reserved.
func (s *Seat) IsAvailable() bool {
	return s.Status == SeatAvailable
}

// Reserve moves the seat AVAILABLE→TEMP_RESERVED.
func (s *Seat) Reserve() error {
	if !s.IsAvailable() {
		return apperr.ErrSeatNotAvailable
	}
	s.Status = SeatTempReserved
	return nil
}

// Confirm moves the seat TEMP_RESERVED→RESERVED on successful payment.
func (s *Seat) Confirm() error {
	if s.Status != SeatTempReserved {
		return apperr.ErrSeatNotAvailable
	}
	s.Status = SeatReserved
	return nil
}

// Release returns the seat to AVAILABLE when its hold expires or the
// reservation is cancelled.
func (s *Seat) Release() {
	s.Status = SeatAvailable
}

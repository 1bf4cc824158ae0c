package model

import (
	"time"

	"concertgate/internal/apperr"
)

// ReservationStatus enumerates reservation states. PENDING is the only
// state from which CONFIRMED is reachable; EXPIRED and CANCELLED release
// the seat reference.
type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "PENDING"
	ReservationConfirmed ReservationStatus = "CONFIRMED"
	ReservationCancelled ReservationStatus = "CANCELLED"
	ReservationExpired   ReservationStatus = "EXPIRED"
)

// Reservation is a time-boxed hold on one seat. It is created PENDING with
// a fixed-length lease; payment must confirm it before the lease elapses or
// the expiry sweep reclaims it and frees the seat.
//
// Fields:
//
//	ID         – primary key identifier.
//	UserID     – user the hold belongs to.
//	ScheduleID – schedule of the reserved seat.
//	SeatID     – seat held by this reservation.
//	Status     – PENDING, CONFIRMED, CANCELLED or EXPIRED.
//	CreatedAt  – creation timestamp.
//	ExpiresAt  – lease deadline; sweep reclaims PENDING rows past it.
type Reservation struct {
	ID         uint64            // reservations.id
	UserID     uint64            // reservations.user_id
	ScheduleID uint64            // reservations.schedule_id
	SeatID     uint64            // reservations.seat_id
	Status     ReservationStatus // reservations.status
	CreatedAt  time.Time         // reservations.created_at
	ExpiresAt  time.Time         // reservations.expires_at
}

// NewReservation creates a PENDING reservation whose lease runs for the
// given window from now.
func NewReservation(userID, scheduleID, seatID uint64, lease time.Duration) *Reservation {
	now := time.Now().UTC()
	return &Reservation{
		UserID:     userID,
		ScheduleID: scheduleID,
		SeatID:     seatID,
		Status:     ReservationPending,
		CreatedAt:  now,
		ExpiresAt:  now.Add(lease),
	}
}

// IsExpired reports whether the lease deadline has passed.
func (r *Reservation) IsExpired() bool {
	return time.Now().UTC().After(r.ExpiresAt)
}

// Confirm moves the reservation PENDING→CONFIRMED. Confirming any other
// state, or a reservation whose lease has elapsed, is a state conflict.
func (r *Reservation) Confirm() error {
	if r.Status != ReservationPending {
		return apperr.ErrReservationNotPending
	}
	if r.IsExpired() {
		return apperr.ErrReservationExpired
	}
	r.Status = ReservationConfirmed
	return nil
}

// Cancel marks the reservation CANCELLED.
func (r *Reservation) Cancel() {
	r.Status = ReservationCancelled
}

// Expire marks the reservation EXPIRED. Called by the sweep only.
func (r *Reservation) Expire() {
	r.Status = ReservationExpired
}

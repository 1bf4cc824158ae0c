package model

import "time"

// Concert is a bookable performance. Each concert has one admission queue
// keyed by its ID and one or more schedules (dates) with their own seats.
//
// Fields:
//
//	ID        – primary key identifier.
//	Title     – display title.
//	CreatedAt – creation timestamp.
//	UpdatedAt – last update timestamp.
type Concert struct {
	ID        uint64    // concerts.id
	Title     string    // concerts.title
	CreatedAt time.Time // concerts.created_at
	UpdatedAt time.Time // concerts.updated_at
}

// ConcertSchedule is a single dated occurrence of a concert. Seats belong
// to a schedule, not to the concert itself.
//
// Fields:
//
//	ID        – primary key identifier.
//	ConcertID – concert this schedule belongs to.
//	ShowDate  – date and time of the performance.
//	CreatedAt – creation timestamp.
type ConcertSchedule struct {
	ID        uint64    // concert_schedules.id
	ConcertID uint64    // concert_schedules.concert_id
	ShowDate  time.Time // concert_schedules.show_date
	CreatedAt time.Time // concert_schedules.created_at
}

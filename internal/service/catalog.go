package service

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"concertgate/internal/model"
)

// CatalogScheduleStore lists concert schedules for the read-side catalog.
type CatalogScheduleStore interface {
	ListByConcert(ctx context.Context, concertID uint64) ([]model.ConcertSchedule, error)
	ListAll(ctx context.Context) ([]model.ConcertSchedule, error)
}

// CatalogSeatStore lists seats for a schedule.
type CatalogSeatStore interface {
	ListBySchedule(ctx context.Context, scheduleID uint64) ([]model.Seat, error)
}

// CatalogService serves the browse endpoints: bookable dates for a concert
// and the seat map for a schedule. Seat maps are cached in Redis as JSON
// with a short TTL and refreshed eagerly after every state change, so the
// cache can lag the database by at most the TTL when a refresh is missed.
// When no Redis client is configured every read falls through to MySQL.
type CatalogService struct {
	schedules CatalogScheduleStore
	seats     CatalogSeatStore
	rdb       *redis.Client
	ttl       time.Duration
}

// NewCatalogService wires the catalog reads. rdb may be nil, which
// disables caching.
func NewCatalogService(schedules CatalogScheduleStore, seats CatalogSeatStore, rdb *redis.Client, ttl time.Duration) *CatalogService {
	return &CatalogService{schedules: schedules, seats: seats, rdb: rdb, ttl: ttl}
}

func seatCacheKey(scheduleID uint64) string {
	return "cache:seats:" + strconv.FormatUint(scheduleID, 10)
}

// GetAvailableDates returns the schedules of a concert. Missing concerts
// surface as apperr.ErrConcertNotFound from the store.
func (s *CatalogService) GetAvailableDates(ctx context.Context, concertID uint64) ([]model.ConcertSchedule, error) {
	return s.schedules.ListByConcert(ctx, concertID)
}

// GetSeats returns the seat map of a schedule, preferring the cache.
func (s *CatalogService) GetSeats(ctx context.Context, scheduleID uint64) ([]model.Seat, error) {
	if s.rdb != nil {
		raw, err := s.rdb.Get(ctx, seatCacheKey(scheduleID)).Bytes()
		if err == nil {
			var seats []model.Seat
			if err := json.Unmarshal(raw, &seats); err == nil {
				return seats, nil
			}
			// Corrupt entry; fall through and rewrite it.
		} else if err != redis.Nil {
			log.Printf("catalog: seat cache read schedule=%d: %v", scheduleID, err)
		}
	}

	seats, err := s.seats.ListBySchedule(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	s.storeSeats(ctx, scheduleID, seats)
	return seats, nil
}

// RefreshSeats re-reads a schedule's seats from the database and rewrites
// the cache entry. Called after reservations, confirmations and sweeps; a
// failure only delays freshness until the TTL, so it is logged and dropped.
func (s *CatalogService) RefreshSeats(ctx context.Context, scheduleID uint64) {
	if s.rdb == nil {
		return
	}
	seats, err := s.seats.ListBySchedule(ctx, scheduleID)
	if err != nil {
		log.Printf("catalog: seat refresh schedule=%d: %v", scheduleID, err)
		return
	}
	s.storeSeats(ctx, scheduleID, seats)
}

// WarmUp pre-populates the seat cache for every schedule. Individual
// failures are logged and skipped so one bad schedule cannot block startup.
func (s *CatalogService) WarmUp(ctx context.Context) {
	if s.rdb == nil {
		return
	}
	schedules, err := s.schedules.ListAll(ctx)
	if err != nil {
		log.Printf("catalog: warmup list schedules: %v", err)
		return
	}
	for _, sc := range schedules {
		seats, err := s.seats.ListBySchedule(ctx, sc.ID)
		if err != nil {
			log.Printf("catalog: warmup schedule=%d: %v", sc.ID, err)
			continue
		}
		s.storeSeats(ctx, sc.ID, seats)
	}
	log.Printf("catalog: warmed seat cache for %d schedules", len(schedules))
}

func (s *CatalogService) storeSeats(ctx context.Context, scheduleID uint64, seats []model.Seat) {
	if s.rdb == nil {
		return
	}
	raw, err := json.Marshal(seats)
	if err != nil {
		log.Printf("catalog: seat cache marshal schedule=%d: %v", scheduleID, err)
		return
	}
	if err := s.rdb.Set(ctx, seatCacheKey(scheduleID), raw, s.ttl).Err(); err != nil {
		log.Printf("catalog: seat cache write schedule=%d: %v", scheduleID, err)
	}
}

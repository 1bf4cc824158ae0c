package main

import (
	"context"
	"log"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/labstack/echo/v4"

	"concertgate/internal/config"
	"concertgate/internal/database"
	"concertgate/internal/event"
	"concertgate/internal/handler"
	"concertgate/internal/lock"
	"concertgate/internal/repository"
	"concertgate/internal/router"
	"concertgate/internal/service"
	"concertgate/internal/worker"
)

func main() {
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("mysql: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Fatal("redis: connection required for queue, locks and cache")
	}
	defer rdb.Close()

	// Repositories.
	var tokenStore repository.TokenStore
	if os.Getenv("QUEUE_STORE") == "memory" {
		// Single-node dev mode; queue state is lost on restart.
		tokenStore = repository.NewMemoryTokenStore()
		log.Println("queue: using in-memory token store")
	} else {
		tokenStore = repository.NewRedisTokenStore(rdb)
	}
	scheduleRepo := repository.NewScheduleRepo(db)
	seatRepo := repository.NewSeatRepo(db)
	reservationRepo := repository.NewReservationRepo(db)
	paymentRepo := repository.NewPaymentRepo(db)
	pointRepo := repository.NewPointRepo(db)
	outboxRepo := repository.NewOutboxRepo(db)

	// Services.
	admissions := service.NewAdmissionService(tokenStore, service.AdmissionConfig{
		Capacity:           cfg.QueueCapacity,
		TokenTTL:           cfg.TokenTTL,
		WaitSecondsPerUser: cfg.WaitSecondsPerUser,
	})
	catalog := service.NewCatalogService(scheduleRepo, seatRepo, rdb, cfg.CacheTTL)
	locker := lock.NewManager(rdb)
	reservations := service.NewReservationService(db, locker, admissions, scheduleRepo,
		seatRepo, reservationRepo, catalog, service.ReservationConfig{
			Lease:     cfg.ReservationLease,
			LockWait:  cfg.LockWait,
			LockLease: cfg.LockLease,
		})
	payments := service.NewPaymentService(db, admissions, reservationRepo, seatRepo,
		pointRepo, paymentRepo, outboxRepo, catalog)
	points := service.NewPointService(db, pointRepo)

	publisher := event.NewPublisher()
	defer publisher.Close()
	relay := service.NewRelayService(outboxRepo, publisher, service.RelayConfig{
		BatchSize: cfg.OutboxBatchSize,
		MaxRetry:  cfg.OutboxMaxRetry,
		Retention: cfg.OutboxRetention,
	})

	// Background jobs and the payment.completed consumer.
	w, err := worker.New(admissions, reservations, relay, &cfg)
	if err != nil {
		log.Fatalf("worker: %v", err)
	}
	if err := w.Start(); err != nil {
		log.Fatalf("worker: %v", err)
	}
	defer w.Stop()

	go event.StartPaymentCompletedConsumer(admissions)
	go catalog.WarmUp(context.Background())

	// HTTP server.
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewRequestValidator()
	router.RegisterRoutes(e, router.Handlers{
		Queue:       handler.NewQueueHandler(admissions),
		Catalog:     handler.NewCatalogHandler(catalog, admissions),
		Reservation: handler.NewReservationHandler(reservations),
		Payment:     handler.NewPaymentHandler(payments),
		Point:       handler.NewPointHandler(points),
	})

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
